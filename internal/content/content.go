// Package content implements the format-independent value model used by all
// snapshot serializers. A Content holds runtime typed data the way a decoded
// document would: scalars, sequences, ordered mappings and named composites.
// Redaction rules operate on this representation before any text is rendered.
package content

import "fmt"

// Kind discriminates the variants of a Content value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindUint
	KindInt
	KindFloat32
	KindFloat64
	KindChar
	KindString
	KindBytes
	KindSome
	KindUnit
	KindUnitStruct
	KindUnitVariant
	KindNewtypeStruct
	KindNewtypeVariant
	KindSeq
	KindTuple
	KindTupleStruct
	KindTupleVariant
	KindMap
	KindStruct
	KindStructVariant
)

// MapEntry is one key/value pair of an ordered mapping. Keys are arbitrary
// Content, not just strings; string-keyed formats reject non-coercible keys
// at serialization time.
type MapEntry struct {
	Key   Content
	Value Content
}

// Field is one named field of a struct or struct variant.
type Field struct {
	Name  string
	Value Content
}

// Content is a closed tagged union over every serializable shape. The zero
// value is the nil content. Consumers switch exhaustively on Kind; adding a
// serializer requires no change here.
type Content struct {
	kind Kind

	boolVal  bool
	uintVal  uint64
	intVal   int64
	floatVal float64
	strVal   string // string, char, unit-variant shorthand
	bytesVal []byte

	// name/variant/variantIndex describe named forms (unit structs, enum
	// variants). They are unused for anonymous kinds.
	name         string
	variant      string
	variantIndex uint32

	child  *Content
	items  []Content
	pairs  []MapEntry
	fields []Field
}

// Constructors. These are the only way to produce well-formed values; the
// struct fields stay unexported so a Content cannot be put into an
// inconsistent state.

func Nil() Content             { return Content{kind: KindNil} }
func Unit() Content            { return Content{kind: KindUnit} }
func NewBool(v bool) Content   { return Content{kind: KindBool, boolVal: v} }
func NewUint(v uint64) Content { return Content{kind: KindUint, uintVal: v} }
func NewInt(v int64) Content   { return Content{kind: KindInt, intVal: v} }
func NewFloat32(v float32) Content {
	return Content{kind: KindFloat32, floatVal: float64(v)}
}
func NewFloat64(v float64) Content  { return Content{kind: KindFloat64, floatVal: v} }
func NewChar(v rune) Content        { return Content{kind: KindChar, strVal: string(v)} }
func NewString(v string) Content    { return Content{kind: KindString, strVal: v} }
func NewBytes(v []byte) Content     { return Content{kind: KindBytes, bytesVal: v} }
func NewSeq(items ...Content) Content {
	return Content{kind: KindSeq, items: items}
}
func NewTuple(items ...Content) Content {
	return Content{kind: KindTuple, items: items}
}
func NewMap(entries ...MapEntry) Content {
	return Content{kind: KindMap, pairs: entries}
}

// Some wraps a value in the present-optional marker. Accessors resolve
// through it transparently.
func Some(inner Content) Content {
	return Content{kind: KindSome, child: &inner}
}

// NewUnitStruct returns a named unit value.
func NewUnitStruct(name string) Content {
	return Content{kind: KindUnitStruct, name: name}
}

// NewUnitVariant returns the unit variant of an enum type.
func NewUnitVariant(name string, index uint32, variant string) Content {
	return Content{kind: KindUnitVariant, name: name, variantIndex: index, variant: variant}
}

// NewNewtypeStruct returns a single-field named wrapper.
func NewNewtypeStruct(name string, inner Content) Content {
	return Content{kind: KindNewtypeStruct, name: name, child: &inner}
}

// NewNewtypeVariant returns a single-field enum variant.
func NewNewtypeVariant(name string, index uint32, variant string, inner Content) Content {
	return Content{kind: KindNewtypeVariant, name: name, variantIndex: index, variant: variant, child: &inner}
}

// NewTupleStruct returns a positional named composite.
func NewTupleStruct(name string, items ...Content) Content {
	return Content{kind: KindTupleStruct, name: name, items: items}
}

// NewTupleVariant returns a positional enum variant.
func NewTupleVariant(name string, index uint32, variant string, items ...Content) Content {
	return Content{kind: KindTupleVariant, name: name, variantIndex: index, variant: variant, items: items}
}

// NewStruct returns a named composite with an ordered field list.
func NewStruct(name string, fields ...Field) Content {
	return Content{kind: KindStruct, name: name, fields: fields}
}

// NewStructVariant returns a field-carrying enum variant.
func NewStructVariant(name string, index uint32, variant string, fields ...Field) Content {
	return Content{kind: KindStructVariant, name: name, variantIndex: index, variant: variant, fields: fields}
}

// Kind returns the variant tag.
func (c Content) Kind() Kind { return c.kind }

// Name returns the type name of named forms ("" otherwise).
func (c Content) Name() string { return c.name }

// Variant returns the variant name of enum forms ("" otherwise).
func (c Content) Variant() string { return c.variant }

// VariantIndex returns the variant index of enum forms.
func (c Content) VariantIndex() uint32 { return c.variantIndex }

// Items returns the element list of sequence-like kinds. The returned slice
// is the backing store; callers must not retain it across mutations.
func (c Content) Items() []Content { return c.items }

// Entries returns the ordered entries of a mapping.
func (c Content) Entries() []MapEntry { return c.pairs }

// Fields returns the ordered field list of a struct or struct variant.
func (c Content) Fields() []Field { return c.fields }

// Child returns the wrapped value of Some / newtype forms.
func (c Content) Child() Content {
	if c.child == nil {
		return Nil()
	}
	return *c.child
}

// ResolveInner unwraps chains of Some and newtype wrappers, returning the
// innermost value. Accessors below resolve automatically.
func (c Content) ResolveInner() Content {
	for {
		switch c.kind {
		case KindSome, KindNewtypeStruct, KindNewtypeVariant:
			if c.child == nil {
				return Nil()
			}
			c = *c.child
		default:
			return c
		}
	}
}

// IsNil reports whether the resolved value is absent (nil or unit).
func (c Content) IsNil() bool {
	k := c.ResolveInner().kind
	return k == KindNil || k == KindUnit
}

// AsString returns the resolved value as a string.
func (c Content) AsString() (string, bool) {
	r := c.ResolveInner()
	if r.kind == KindString || r.kind == KindChar {
		return r.strVal, true
	}
	return "", false
}

// AsBytes returns the resolved value as a byte slice.
func (c Content) AsBytes() ([]byte, bool) {
	r := c.ResolveInner()
	if r.kind == KindBytes {
		return r.bytesVal, true
	}
	return nil, false
}

// AsBool returns the resolved value as a bool.
func (c Content) AsBool() (bool, bool) {
	r := c.ResolveInner()
	if r.kind == KindBool {
		return r.boolVal, true
	}
	return false, false
}

// AsUint64 returns the resolved value as a uint64 if it fits.
func (c Content) AsUint64() (uint64, bool) {
	r := c.ResolveInner()
	switch r.kind {
	case KindUint:
		return r.uintVal, true
	case KindInt:
		if r.intVal >= 0 {
			return uint64(r.intVal), true
		}
	}
	return 0, false
}

// AsInt64 returns the resolved value as an int64 if it fits.
func (c Content) AsInt64() (int64, bool) {
	r := c.ResolveInner()
	switch r.kind {
	case KindInt:
		return r.intVal, true
	case KindUint:
		if r.uintVal <= 1<<63-1 {
			return int64(r.uintVal), true
		}
	}
	return 0, false
}

// AsFloat64 returns the resolved value as a float64.
func (c Content) AsFloat64() (float64, bool) {
	r := c.ResolveInner()
	if r.kind == KindFloat32 || r.kind == KindFloat64 {
		return r.floatVal, true
	}
	return 0, false
}

// AsSlice returns the elements of sequence-like resolved values.
func (c Content) AsSlice() ([]Content, bool) {
	r := c.ResolveInner()
	switch r.kind {
	case KindSeq, KindTuple, KindTupleStruct, KindTupleVariant:
		return r.items, true
	}
	return nil, false
}

// StringKey coerces the resolved value to a mapping key usable by
// string-keyed formats. The second return is false for non-coercible keys.
func (c Content) StringKey() (string, bool) {
	r := c.ResolveInner()
	switch r.kind {
	case KindString, KindChar:
		return r.strVal, true
	case KindBool:
		if r.boolVal {
			return "true", true
		}
		return "false", true
	case KindUint:
		return fmt.Sprintf("%d", r.uintVal), true
	case KindInt:
		return fmt.Sprintf("%d", r.intVal), true
	case KindUnitVariant:
		return r.variant, true
	}
	return "", false
}

// Walk visits every node of the tree in depth-first order, parents before
// children. Returning false from visit prunes the subtree. The visited
// pointers alias the tree, so visit may mutate in place.
func (c *Content) Walk(visit func(*Content) bool) {
	if !visit(c) {
		return
	}
	switch c.kind {
	case KindSome, KindNewtypeStruct, KindNewtypeVariant:
		if c.child != nil {
			c.child.Walk(visit)
		}
	case KindSeq, KindTuple, KindTupleStruct, KindTupleVariant:
		for i := range c.items {
			c.items[i].Walk(visit)
		}
	case KindMap:
		for i := range c.pairs {
			c.pairs[i].Key.Walk(visit)
			c.pairs[i].Value.Walk(visit)
		}
	case KindStruct, KindStructVariant:
		for i := range c.fields {
			c.fields[i].Value.Walk(visit)
		}
	}
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (c Content) Clone() Content {
	out := c
	if c.child != nil {
		inner := c.child.Clone()
		out.child = &inner
	}
	if c.bytesVal != nil {
		out.bytesVal = append([]byte(nil), c.bytesVal...)
	}
	if c.items != nil {
		out.items = make([]Content, len(c.items))
		for i, it := range c.items {
			out.items[i] = it.Clone()
		}
	}
	if c.pairs != nil {
		out.pairs = make([]MapEntry, len(c.pairs))
		for i, p := range c.pairs {
			out.pairs[i] = MapEntry{Key: p.Key.Clone(), Value: p.Value.Clone()}
		}
	}
	if c.fields != nil {
		out.fields = make([]Field, len(c.fields))
		for i, f := range c.fields {
			out.fields[i] = Field{Name: f.Name, Value: f.Value.Clone()}
		}
	}
	return out
}

// Equal reports structural equality. Named forms compare names and variant
// indexes; mappings compare entries in order.
func (c Content) Equal(other Content) bool {
	if c.kind != other.kind {
		return false
	}
	if c.name != other.name || c.variant != other.variant || c.variantIndex != other.variantIndex {
		return false
	}
	switch c.kind {
	case KindNil, KindUnit, KindUnitStruct, KindUnitVariant:
		return true
	case KindBool:
		return c.boolVal == other.boolVal
	case KindUint:
		return c.uintVal == other.uintVal
	case KindInt:
		return c.intVal == other.intVal
	case KindFloat32, KindFloat64:
		return c.floatVal == other.floatVal
	case KindChar, KindString:
		return c.strVal == other.strVal
	case KindBytes:
		if len(c.bytesVal) != len(other.bytesVal) {
			return false
		}
		for i := range c.bytesVal {
			if c.bytesVal[i] != other.bytesVal[i] {
				return false
			}
		}
		return true
	case KindSome, KindNewtypeStruct, KindNewtypeVariant:
		return c.Child().Equal(other.Child())
	case KindSeq, KindTuple, KindTupleStruct, KindTupleVariant:
		if len(c.items) != len(other.items) {
			return false
		}
		for i := range c.items {
			if !c.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(c.pairs) != len(other.pairs) {
			return false
		}
		for i := range c.pairs {
			if !c.pairs[i].Key.Equal(other.pairs[i].Key) || !c.pairs[i].Value.Equal(other.pairs[i].Value) {
				return false
			}
		}
		return true
	case KindStruct, KindStructVariant:
		if len(c.fields) != len(other.fields) {
			return false
		}
		for i := range c.fields {
			if c.fields[i].Name != other.fields[i].Name || !c.fields[i].Value.Equal(other.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
