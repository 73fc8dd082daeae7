package format

import (
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"

	"snaptool/internal/content"
)

// renderTOML lowers the tree to plain Go values and defers to the encoder.
// The encoder emits map keys in sorted order, so output stays stable even
// though the intermediate maps are unordered.
func renderTOML(v content.Content) (string, error) {
	plain, err := tomlValue(v)
	if err != nil {
		return "", err
	}
	out, err := gotoml.Marshal(plain)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func tomlValue(v content.Content) (any, error) {
	switch v.Kind() {
	case content.KindNil, content.KindUnit, content.KindUnitStruct:
		return nil, &UnsupportedValueError{Format: TOML, Reason: "null has no TOML representation"}
	case content.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case content.KindUint:
		u, _ := v.AsUint64()
		return u, nil
	case content.KindInt:
		i, _ := v.AsInt64()
		return i, nil
	case content.KindFloat32, content.KindFloat64:
		f, _ := v.AsFloat64()
		return f, nil
	case content.KindChar, content.KindString:
		s, _ := v.AsString()
		return s, nil
	case content.KindBytes:
		bs, _ := v.AsBytes()
		out := make([]any, len(bs))
		for i, b := range bs {
			out[i] = uint64(b)
		}
		return out, nil
	case content.KindSome, content.KindNewtypeStruct:
		return tomlValue(v.Child())
	case content.KindUnitVariant:
		return v.Variant(), nil
	case content.KindNewtypeVariant:
		inner, err := tomlValue(v.Child())
		if err != nil {
			return nil, err
		}
		return map[string]any{v.Variant(): inner}, nil
	case content.KindSeq, content.KindTuple, content.KindTupleStruct:
		return tomlSlice(v.Items())
	case content.KindTupleVariant:
		inner, err := tomlSlice(v.Items())
		if err != nil {
			return nil, err
		}
		return map[string]any{v.Variant(): inner}, nil
	case content.KindMap:
		out := make(map[string]any, len(v.Entries()))
		for _, e := range v.Entries() {
			key, err := stringKeyOf(e.Key, TOML)
			if err != nil {
				return nil, err
			}
			val, err := tomlValue(e.Value)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	case content.KindStruct, content.KindStructVariant:
		out := make(map[string]any, len(v.Fields()))
		for _, f := range v.Fields() {
			val, err := tomlValue(f.Value)
			if err != nil {
				return nil, err
			}
			out[f.Name] = val
		}
		if v.Kind() == content.KindStructVariant {
			return map[string]any{v.Variant(): out}, nil
		}
		return out, nil
	}
	return nil, &UnsupportedValueError{Format: TOML, Reason: "unrepresentable value"}
}

func tomlSlice(items []content.Content) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		v, err := tomlValue(item)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
