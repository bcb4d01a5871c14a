// Package avroschema provides the dynamic record representation and the
// Avro-like structural schema model consumed by the validation engine.
package avroschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies the concrete shape held by a Value.
type Tag int

const (
	TagNull Tag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagArray
	TagObject
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "str"
	case TagArray:
		return "list"
	case TagObject:
		return "dict"
	default:
		return "unknown"
	}
}

// Value is a dynamically-typed JSON value decoded with integer/float
// distinction and object key order preserved, so the validator can report
// extra fields in the order they appear in the record.
type Value struct {
	Tag     Tag
	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Arr     []Value
	ObjKeys []string
	ObjVals map[string]Value
}

// Null is the zero Value's natural reading, but spelled out for clarity at
// call sites that build values programmatically (tests, fixtures).
var Null = Value{Tag: TagNull}

// AsObject returns the ordered field map if v is an object.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.Tag != TagObject {
		return nil, false
	}
	return v.ObjVals, true
}

// TypeName returns the Python-style runtime type name used in findings
// ("str", "int", "float", "bool", "list", "dict", "NoneType").
func (v Value) TypeName() string {
	if v.Tag == TagNull {
		return "NoneType"
	}
	return v.Tag.String()
}

// Repr renders a compact, deterministic textual form of v for use in
// truncated finding "received" fields.
func (v Value) Repr() string {
	switch v.Tag {
	case TagNull:
		return "None"
	case TagBool:
		if v.Bool {
			return "True"
		}
		return "False"
	case TagInt:
		return strconv.FormatInt(v.Int, 10)
	case TagFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case TagString:
		return v.Str
	case TagArray:
		parts := make([]string, len(v.Arr))
		for i, item := range v.Arr {
			parts[i] = item.Repr()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TagObject:
		parts := make([]string, 0, len(v.ObjKeys))
		for _, k := range v.ObjKeys {
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.ObjVals[k].Repr()))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// Truncate returns s cut to at most n runes, used to bound finding value
// and schema-repr sizes in logged/stored output.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Decode parses JSON bytes into a Value tree, distinguishing integers from
// floating point numbers and preserving object key insertion order.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if dec.More() {
		return Value{}, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return valueFromToken(dec, tok)
}

func valueFromToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %q", t)
		}
	case nil:
		return Value{Tag: TagNull}, nil
	case bool:
		return Value{Tag: TagBool, Bool: t}, nil
	case string:
		return Value{Tag: TagString, Str: t}, nil
	case json.Number:
		return decodeNumber(t)
	default:
		return Value{}, fmt.Errorf("unexpected JSON token %v (%T)", tok, tok)
	}
}

func decodeNumber(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Value{Tag: TagInt, Int: i}, nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Value{Tag: TagFloat, Float: f}, nil
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := Value{Tag: TagObject, ObjVals: map[string]Value{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("expected object key, got %v", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		if _, exists := obj.ObjVals[key]; !exists {
			obj.ObjKeys = append(obj.ObjKeys, key)
		}
		obj.ObjVals[key] = val
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return Value{}, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	arr := Value{Tag: TagArray}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		arr.Arr = append(arr.Arr, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return Value{}, err
	}
	return arr, nil
}
