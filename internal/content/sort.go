package content

import "sort"

// Compare defines a total order over Content values so that mappings and
// set-like sequences can be given a stable, deterministic order. Values of
// different kinds order by kind tag; numeric kinds compare numerically with
// each other.
func Compare(a, b Content) int {
	ar, br := a.ResolveInner(), b.ResolveInner()

	if an, aok := numeric(ar); aok {
		if bn, bok := numeric(br); bok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}

	if ar.kind != br.kind {
		if ar.kind < br.kind {
			return -1
		}
		return 1
	}

	switch ar.kind {
	case KindBool:
		return boolCmp(ar.boolVal, br.boolVal)
	case KindChar, KindString:
		return stringCmp(ar.strVal, br.strVal)
	case KindBytes:
		return bytesCmp(ar.bytesVal, br.bytesVal)
	case KindUnitStruct:
		return stringCmp(ar.name, br.name)
	case KindUnitVariant:
		return stringCmp(ar.variant, br.variant)
	case KindSeq, KindTuple, KindTupleStruct, KindTupleVariant:
		return sliceCmp(ar.items, br.items)
	case KindMap:
		for i := 0; i < len(ar.pairs) && i < len(br.pairs); i++ {
			if c := Compare(ar.pairs[i].Key, br.pairs[i].Key); c != 0 {
				return c
			}
			if c := Compare(ar.pairs[i].Value, br.pairs[i].Value); c != 0 {
				return c
			}
		}
		return intCmp(len(ar.pairs), len(br.pairs))
	case KindStruct, KindStructVariant:
		for i := 0; i < len(ar.fields) && i < len(br.fields); i++ {
			if c := stringCmp(ar.fields[i].Name, br.fields[i].Name); c != 0 {
				return c
			}
			if c := Compare(ar.fields[i].Value, br.fields[i].Value); c != 0 {
				return c
			}
		}
		return intCmp(len(ar.fields), len(br.fields))
	}
	return 0
}

// SortMaps recursively sorts every mapping in the tree by key. The sort is
// stable; a no-op when the tree contains no mappings.
func (c *Content) SortMaps() {
	c.Walk(func(node *Content) bool {
		if node.kind == KindMap {
			sort.SliceStable(node.pairs, func(i, j int) bool {
				return Compare(node.pairs[i].Key, node.pairs[j].Key) < 0
			})
		}
		return true
	})
}

func numeric(c Content) (float64, bool) {
	switch c.kind {
	case KindUint:
		return float64(c.uintVal), true
	case KindInt:
		return float64(c.intVal), true
	case KindFloat32, KindFloat64:
		return c.floatVal, true
	}
	return 0, false
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func stringCmp(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func bytesCmp(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return intCmp(len(a), len(b))
}

func sliceCmp(a, b []Content) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return intCmp(len(a), len(b))
}
