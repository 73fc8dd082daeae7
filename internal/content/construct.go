package content

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// FromValue converts a native Go value into a Content tree. Structs map to
// named struct content using `json` tag names where present; Go maps have no
// iteration order, so their entries are sorted by key to stay deterministic.
// Values implementing encoding.TextMarshaler become strings.
func FromValue(v any) Content {
	if v == nil {
		return Nil()
	}
	if c, ok := v.(Content); ok {
		return c
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) Content {
	if !rv.IsValid() {
		return Nil()
	}

	if rv.CanInterface() {
		if tm, ok := rv.Interface().(encoding.TextMarshaler); ok {
			if text, err := tm.MarshalText(); err == nil {
				return NewString(string(text))
			}
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		return NewBool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NewInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return NewUint(rv.Uint())
	case reflect.Float32:
		return NewFloat32(float32(rv.Float()))
	case reflect.Float64:
		return NewFloat64(rv.Float())
	case reflect.String:
		return NewString(rv.String())
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Nil()
		}
		return fromReflect(rv.Elem())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return NewBytes(append([]byte(nil), rv.Bytes()...))
		}
		fallthrough
	case reflect.Array:
		items := make([]Content, rv.Len())
		for i := range items {
			items[i] = fromReflect(rv.Index(i))
		}
		return NewSeq(items...)
	case reflect.Map:
		return fromMap(rv)
	case reflect.Struct:
		return fromStruct(rv)
	default:
		// chan, func and unsafe pointers have no serialized form
		return NewString(fmt.Sprintf("%v", rv))
	}
}

func fromMap(rv reflect.Value) Content {
	entries := make([]MapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, MapEntry{
			Key:   fromReflect(iter.Key()),
			Value: fromReflect(iter.Value()),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return Compare(entries[i].Key, entries[j].Key) < 0
	})
	return NewMap(entries...)
}

func fromStruct(rv reflect.Value) Content {
	rt := rv.Type()
	fields := make([]Field, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields = append(fields, Field{Name: name, Value: fromReflect(rv.Field(i))})
	}
	return NewStruct(rt.Name(), fields...)
}
