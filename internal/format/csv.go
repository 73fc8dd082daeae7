package format

import (
	"encoding/csv"
	"strconv"
	"strings"

	"snaptool/internal/content"
)

// renderCSV emits flat records: a struct or map becomes a header row plus one
// value row, a sequence of structs becomes a header row plus one row per
// element, and a sequence of scalars becomes one single-cell row per element.
// Nested containers inside a cell are not representable.
func renderCSV(v content.Content) (string, error) {
	var records [][]string
	inner := v.ResolveInner()
	switch inner.Kind() {
	case content.KindSeq, content.KindTuple:
		items := inner.Items()
		if len(items) == 0 {
			return "", nil
		}
		first := items[0].ResolveInner()
		if first.Kind() == content.KindStruct || first.Kind() == content.KindMap {
			header, err := csvHeader(first)
			if err != nil {
				return "", err
			}
			records = append(records, header)
			for _, item := range items {
				row, err := csvRow(item.ResolveInner())
				if err != nil {
					return "", err
				}
				records = append(records, row)
			}
		} else {
			for _, item := range items {
				cell, err := csvCell(item)
				if err != nil {
					return "", err
				}
				records = append(records, []string{cell})
			}
		}
	case content.KindStruct, content.KindMap:
		header, err := csvHeader(inner)
		if err != nil {
			return "", err
		}
		row, err := csvRow(inner)
		if err != nil {
			return "", err
		}
		records = append(records, header, row)
	default:
		cell, err := csvCell(inner)
		if err != nil {
			return "", err
		}
		records = append(records, []string{cell})
	}

	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func csvHeader(v content.Content) ([]string, error) {
	if v.Kind() == content.KindStruct {
		fields := v.Fields()
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = f.Name
		}
		return out, nil
	}
	entries := v.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		key, err := stringKeyOf(e.Key, CSV)
		if err != nil {
			return nil, err
		}
		out[i] = key
	}
	return out, nil
}

func csvRow(v content.Content) ([]string, error) {
	if v.Kind() == content.KindStruct {
		fields := v.Fields()
		out := make([]string, len(fields))
		for i, f := range fields {
			cell, err := csvCell(f.Value)
			if err != nil {
				return nil, err
			}
			out[i] = cell
		}
		return out, nil
	}
	entries := v.Entries()
	out := make([]string, len(entries))
	for i, e := range entries {
		cell, err := csvCell(e.Value)
		if err != nil {
			return nil, err
		}
		out[i] = cell
	}
	return out, nil
}

func csvCell(v content.Content) (string, error) {
	inner := v.ResolveInner()
	switch inner.Kind() {
	case content.KindNil, content.KindUnit, content.KindUnitStruct:
		return "", nil
	case content.KindBool:
		b, _ := inner.AsBool()
		return strconv.FormatBool(b), nil
	case content.KindUint:
		u, _ := inner.AsUint64()
		return strconv.FormatUint(u, 10), nil
	case content.KindInt:
		i, _ := inner.AsInt64()
		return strconv.FormatInt(i, 10), nil
	case content.KindFloat32, content.KindFloat64:
		f, _ := inner.AsFloat64()
		return formatFloat(f), nil
	case content.KindChar, content.KindString:
		s, _ := inner.AsString()
		return s, nil
	case content.KindUnitVariant:
		return inner.Variant(), nil
	}
	return "", &UnsupportedValueError{Format: CSV, Reason: "nested containers cannot appear inside a cell"}
}
