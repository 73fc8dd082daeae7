package format

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"snaptool/internal/content"
)

type jsonLayout uint8

const (
	jsonCondensed jsonLayout = iota
	jsonSingleLine
	jsonPretty
)

// compactMaxChars is the widest a single-line JSON rendering may be before
// the compact variant falls back to the pretty layout.
const compactMaxChars = 120

func renderJSON(v content.Content, layout jsonLayout) (string, error) {
	w := &jsonWriter{layout: layout}
	if err := w.write(v); err != nil {
		return "", err
	}
	return w.b.String(), nil
}

func renderCompactJSON(v content.Content) (string, error) {
	s, err := renderJSON(v, jsonSingleLine)
	if err != nil {
		return "", err
	}
	if len(s) <= compactMaxChars {
		return s, nil
	}
	return renderJSON(v, jsonPretty)
}

type jsonWriter struct {
	b      strings.Builder
	layout jsonLayout
	depth  int
}

func (w *jsonWriter) write(v content.Content) error {
	switch v.Kind() {
	case content.KindNil, content.KindUnit, content.KindUnitStruct:
		w.b.WriteString("null")
	case content.KindBool:
		b, _ := v.AsBool()
		w.b.WriteString(strconv.FormatBool(b))
	case content.KindUint:
		u, _ := v.AsUint64()
		w.b.WriteString(strconv.FormatUint(u, 10))
	case content.KindInt:
		i, _ := v.AsInt64()
		w.b.WriteString(strconv.FormatInt(i, 10))
	case content.KindFloat32, content.KindFloat64:
		f, _ := v.AsFloat64()
		w.b.WriteString(formatFloat(f))
	case content.KindChar, content.KindString:
		s, _ := v.AsString()
		w.writeEscaped(s)
	case content.KindBytes:
		bs, _ := v.AsBytes()
		items := make([]content.Content, len(bs))
		for i, b := range bs {
			items[i] = content.NewUint(uint64(b))
		}
		return w.writeSeq(items)
	case content.KindSome:
		return w.write(v.Child())
	case content.KindNewtypeStruct:
		return w.write(v.Child())
	case content.KindUnitVariant:
		w.writeEscaped(v.Variant())
	case content.KindNewtypeVariant:
		return w.writeVariantWrapper(v.Variant(), func() error { return w.write(v.Child()) })
	case content.KindSeq, content.KindTuple, content.KindTupleStruct:
		return w.writeSeq(v.Items())
	case content.KindTupleVariant:
		return w.writeVariantWrapper(v.Variant(), func() error { return w.writeSeq(v.Items()) })
	case content.KindMap:
		return w.writeMap(v.Entries())
	case content.KindStruct:
		return w.writeFields(v.Fields())
	case content.KindStructVariant:
		return w.writeVariantWrapper(v.Variant(), func() error { return w.writeFields(v.Fields()) })
	}
	return nil
}

func (w *jsonWriter) writeSeq(items []content.Content) error {
	w.open('[')
	for i, item := range items {
		w.element(i)
		if err := w.write(item); err != nil {
			return err
		}
	}
	w.close(']', len(items))
	return nil
}

func (w *jsonWriter) writeMap(entries []content.MapEntry) error {
	w.open('{')
	for i, e := range entries {
		key, err := stringKeyOf(e.Key, JSON)
		if err != nil {
			return err
		}
		w.element(i)
		w.writeEscaped(key)
		w.colon()
		if err := w.write(e.Value); err != nil {
			return err
		}
	}
	w.close('}', len(entries))
	return nil
}

func (w *jsonWriter) writeFields(fields []content.Field) error {
	w.open('{')
	for i, f := range fields {
		w.element(i)
		w.writeEscaped(f.Name)
		w.colon()
		if err := w.write(f.Value); err != nil {
			return err
		}
	}
	w.close('}', len(fields))
	return nil
}

func (w *jsonWriter) writeVariantWrapper(variant string, inner func() error) error {
	w.open('{')
	w.element(0)
	w.writeEscaped(variant)
	w.colon()
	if err := inner(); err != nil {
		return err
	}
	w.close('}', 1)
	return nil
}

func (w *jsonWriter) open(c byte) {
	w.b.WriteByte(c)
	w.depth++
}

func (w *jsonWriter) close(c byte, n int) {
	w.depth--
	if w.layout == jsonPretty && n > 0 {
		w.b.WriteByte('\n')
		w.indent()
	}
	w.b.WriteByte(c)
}

func (w *jsonWriter) element(i int) {
	if i > 0 {
		w.b.WriteByte(',')
		if w.layout == jsonSingleLine {
			w.b.WriteByte(' ')
		}
	}
	if w.layout == jsonPretty {
		w.b.WriteByte('\n')
		w.indent()
	}
}

func (w *jsonWriter) colon() {
	w.b.WriteByte(':')
	if w.layout != jsonCondensed {
		w.b.WriteByte(' ')
	}
}

func (w *jsonWriter) indent() {
	for i := 0; i < w.depth; i++ {
		w.b.WriteString("  ")
	}
}

func (w *jsonWriter) writeEscaped(s string) {
	w.b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			w.b.WriteString(`\"`)
		case '\\':
			w.b.WriteString(`\\`)
		case '\b':
			w.b.WriteString(`\b`)
		case '\f':
			w.b.WriteString(`\f`)
		case '\n':
			w.b.WriteString(`\n`)
		case '\r':
			w.b.WriteString(`\r`)
		case '\t':
			w.b.WriteString(`\t`)
		default:
			if r < 0x20 {
				w.b.WriteString(`\u00`)
				const hex = "0123456789abcdef"
				w.b.WriteByte(hex[r>>4])
				w.b.WriteByte(hex[r&0xf])
			} else {
				w.b.WriteRune(r)
			}
		}
	}
	w.b.WriteByte('"')
}

// parseJSON reads JSON back into Content. The iterator API visits object
// members in document order, which keeps the parsed tree's key order aligned
// with the rendered text.
func parseJSON(text string) (content.Content, error) {
	iter := jsoniter.ParseString(jsoniter.ConfigDefault, text)
	c, err := readJSONValue(iter)
	if err != nil {
		return content.Content{}, &ParseError{Format: JSON, Err: err}
	}
	if iter.Error != nil && iter.Error.Error() != "EOF" {
		return content.Content{}, &ParseError{Format: JSON, Err: iter.Error}
	}
	return c, nil
}

func readJSONValue(iter *jsoniter.Iterator) (content.Content, error) {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return content.Nil(), nil
	case jsoniter.BoolValue:
		return content.NewBool(iter.ReadBool()), nil
	case jsoniter.NumberValue:
		num := string(iter.ReadNumber())
		if i, err := strconv.ParseInt(num, 10, 64); err == nil {
			if i >= 0 {
				return content.NewUint(uint64(i)), nil
			}
			return content.NewInt(i), nil
		}
		if u, err := strconv.ParseUint(num, 10, 64); err == nil {
			return content.NewUint(u), nil
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return content.Content{}, err
		}
		return content.NewFloat64(f), nil
	case jsoniter.StringValue:
		return content.NewString(iter.ReadString()), nil
	case jsoniter.ArrayValue:
		var items []content.Content
		var inner error
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			v, err := readJSONValue(it)
			if err != nil {
				inner = err
				return false
			}
			items = append(items, v)
			return true
		})
		if inner != nil {
			return content.Content{}, inner
		}
		return content.NewSeq(items...), nil
	case jsoniter.ObjectValue:
		var entries []content.MapEntry
		var inner error
		iter.ReadMapCB(func(it *jsoniter.Iterator, key string) bool {
			v, err := readJSONValue(it)
			if err != nil {
				inner = err
				return false
			}
			entries = append(entries, content.MapEntry{Key: content.NewString(key), Value: v})
			return true
		})
		if inner != nil {
			return content.Content{}, inner
		}
		return content.NewMap(entries...), nil
	}
	if iter.Error != nil {
		return content.Content{}, iter.Error
	}
	return content.Content{}, strconv.ErrSyntax
}
