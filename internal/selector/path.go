package selector

import (
	"fmt"
	"strings"

	"snaptool/internal/content"
)

// PathItem is one step on the path from the root of a Content tree to the
// value currently being visited.
type PathItem struct {
	kind  pathItemKind
	field string
	key   content.Content
	index uint64
	total uint64
}

type pathItemKind uint8

const (
	pathField pathItemKind = iota
	pathKey
	pathIndex
)

// FieldItem addresses a struct field or map entry by name.
func FieldItem(name string) PathItem { return PathItem{kind: pathField, field: name} }

// KeyItem addresses a map entry by its (possibly non-string) key.
func KeyItem(key content.Content) PathItem { return PathItem{kind: pathKey, key: key} }

// IndexItem addresses position index inside a sequence of total elements.
func IndexItem(index, total uint64) PathItem {
	return PathItem{kind: pathIndex, index: index, total: total}
}

func (p PathItem) String() string {
	switch p.kind {
	case pathField:
		return p.field
	case pathKey:
		if s, ok := p.key.StringKey(); ok {
			return s
		}
		return fmt.Sprintf("%v", p.key)
	default:
		return fmt.Sprintf("%d", p.index)
	}
}

// Path is the location of a value inside a Content tree, root first.
type Path []PathItem

func (p Path) String() string {
	var b strings.Builder
	for _, item := range p {
		if item.kind == pathIndex {
			fmt.Fprintf(&b, "[%d]", item.index)
		} else {
			b.WriteByte('.')
			b.WriteString(item.String())
		}
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}

// IsMatch reports whether the selector selects the given path.
func (s *Selector) IsMatch(path Path) bool {
	for _, segs := range s.alts {
		if matchSegments(segs, path) {
			return true
		}
	}
	return false
}

func matchSegments(segs []segment, path Path) bool {
	if len(segs) == 0 {
		return len(path) == 0
	}
	seg := segs[0]
	if seg.kind == segDeepWildcard {
		// try to resume the remainder at every suffix, including here
		for i := 0; i <= len(path); i++ {
			if matchSegments(segs[1:], path[i:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if !matchOne(seg, path[0]) {
		return false
	}
	return matchSegments(segs[1:], path[1:])
}

func matchOne(seg segment, item PathItem) bool {
	switch seg.kind {
	case segWildcard:
		return true
	case segKey:
		switch item.kind {
		case pathField:
			return item.field == seg.key
		case pathKey:
			s, ok := item.key.StringKey()
			return ok && s == seg.key
		}
		return false
	case segIndex:
		return item.kind == pathIndex && item.index == seg.index
	case segRange:
		if item.kind != pathIndex {
			return false
		}
		from, to := expandRange(seg.from, seg.to, item.total)
		return item.index >= from && item.index < to
	}
	return false
}

// expandRange resolves optional and negative bounds against the sequence
// length, clamping out-of-bounds values.
func expandRange(fromPtr, toPtr *int64, total uint64) (uint64, uint64) {
	clamp := func(v int64) uint64 {
		if v < 0 {
			v += int64(total)
		}
		if v < 0 {
			return 0
		}
		if uint64(v) > total {
			return total
		}
		return uint64(v)
	}
	from := uint64(0)
	if fromPtr != nil {
		from = clamp(*fromPtr)
	}
	to := total
	if toPtr != nil {
		to = clamp(*toPtr)
	}
	return from, to
}
