package selector

import (
	"math"
	"sort"

	"snaptool/internal/content"
)

// Redaction is the action applied at every location a selector matches.
type Redaction struct {
	apply func(v content.Content, path Path) content.Content
}

// Static replaces the matched value with a fixed placeholder.
func Static(replacement any) Redaction {
	repl := content.FromValue(replacement)
	return Redaction{apply: func(content.Content, Path) content.Content {
		return repl.Clone()
	}}
}

// Dynamic computes the replacement from the matched value and its path. The
// callback must not retain the value.
func Dynamic(fn func(v content.Content, path Path) content.Content) Redaction {
	return Redaction{apply: fn}
}

// Sorted orders the matched collection, making snapshot output stable when the
// producer emits entries in nondeterministic order. Sequences sort by value,
// maps by key, structs by field name. Nested collections are left alone.
func Sorted() Redaction {
	return Redaction{apply: func(v content.Content, _ Path) content.Content {
		inner := v.ResolveInner()
		switch inner.Kind() {
		case content.KindSeq, content.KindTuple:
			items := append([]content.Content(nil), inner.Items()...)
			sort.SliceStable(items, func(i, j int) bool {
				return content.Compare(items[i], items[j]) < 0
			})
			if inner.Kind() == content.KindTuple {
				return content.NewTuple(items...)
			}
			return content.NewSeq(items...)
		case content.KindMap:
			entries := append([]content.MapEntry(nil), inner.Entries()...)
			sort.SliceStable(entries, func(i, j int) bool {
				return content.Compare(entries[i].Key, entries[j].Key) < 0
			})
			return content.NewMap(entries...)
		case content.KindStruct:
			fields := append([]content.Field(nil), inner.Fields()...)
			sort.SliceStable(fields, func(i, j int) bool {
				return fields[i].Name < fields[j].Name
			})
			return content.NewStruct(inner.Name(), fields...)
		}
		return v
	}}
}

// Rounded rounds the matched float to the given number of decimal places.
// Non-float values pass through unchanged.
func Rounded(decimals int) Redaction {
	factor := math.Pow(10, float64(decimals))
	return Redaction{apply: func(v content.Content, _ Path) content.Content {
		inner := v.ResolveInner()
		switch inner.Kind() {
		case content.KindFloat32, content.KindFloat64:
			f, _ := inner.AsFloat64()
			return content.NewFloat64(math.Round(f*factor) / factor)
		}
		return v
	}}
}

// Redact rewrites every value the selector matches and returns the new tree.
// Paths that match nothing are a no-op. The input is not modified.
func (s *Selector) Redact(v content.Content, r Redaction) content.Content {
	return s.redact(v, r, nil)
}

func (s *Selector) redact(v content.Content, r Redaction, path Path) content.Content {
	if s.IsMatch(path) {
		return r.apply(v, path)
	}
	switch v.Kind() {
	case content.KindSome:
		return content.Some(s.redact(v.Child(), r, path))
	case content.KindNewtypeStruct:
		return content.NewNewtypeStruct(v.Name(), s.redact(v.Child(), r, path))
	case content.KindNewtypeVariant:
		return content.NewNewtypeVariant(v.Name(), v.VariantIndex(), v.Variant(),
			s.redact(v.Child(), r, path))
	case content.KindSeq, content.KindTuple, content.KindTupleStruct, content.KindTupleVariant:
		items := v.Items()
		out := make([]content.Content, len(items))
		total := uint64(len(items))
		for i, item := range items {
			out[i] = s.redact(item, r, append(path, IndexItem(uint64(i), total)))
		}
		switch v.Kind() {
		case content.KindTuple:
			return content.NewTuple(out...)
		case content.KindTupleStruct:
			return content.NewTupleStruct(v.Name(), out...)
		case content.KindTupleVariant:
			return content.NewTupleVariant(v.Name(), v.VariantIndex(), v.Variant(), out...)
		default:
			return content.NewSeq(out...)
		}
	case content.KindMap:
		entries := v.Entries()
		out := make([]content.MapEntry, len(entries))
		for i, e := range entries {
			out[i] = content.MapEntry{
				Key:   e.Key,
				Value: s.redact(e.Value, r, append(path, KeyItem(e.Key))),
			}
		}
		return content.NewMap(out...)
	case content.KindStruct, content.KindStructVariant:
		fields := v.Fields()
		out := make([]content.Field, len(fields))
		for i, f := range fields {
			out[i] = content.Field{
				Name:  f.Name,
				Value: s.redact(f.Value, r, append(path, FieldItem(f.Name))),
			}
		}
		if v.Kind() == content.KindStructVariant {
			return content.NewStructVariant(v.Name(), v.VariantIndex(), v.Variant(), out...)
		}
		return content.NewStruct(v.Name(), out...)
	}
	return v
}
