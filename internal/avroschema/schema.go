package avroschema

import "fmt"

// FieldKind identifies the shape of a field's declared type.
type FieldKind int

const (
	// KindPrimitive is a bare type literal ("null", "string", "int", "double").
	KindPrimitive FieldKind = iota
	// KindUnion is an ordered list of candidate types; first match wins.
	KindUnion
	// KindArray is {"type":"array","items":<T>}.
	KindArray
	// KindUnknown is any other shape. It never matches a value; a non-null
	// value in a field declared with an unknown type shape always reports
	// "incorrect data type".
	KindUnknown
)

// FieldType is the parsed form of an Avro field's "type" attribute.
type FieldType struct {
	Kind      FieldKind
	Primitive string
	Union     []FieldType
	ArrayItem *FieldType
	raw       Value // preserved for String()/repr purposes
}

// Candidates returns the ordered list of types to attempt a match against.
// A non-union type is its own single-element candidate list.
func (t FieldType) Candidates() []FieldType {
	if t.Kind == KindUnion {
		return t.Union
	}
	return []FieldType{t}
}

// HasNull reports whether t is a union containing "null", or is itself the
// "null" primitive.
func (t FieldType) HasNull() bool {
	if t.Kind == KindPrimitive && t.Primitive == "null" {
		return true
	}
	if t.Kind != KindUnion {
		return false
	}
	for _, c := range t.Union {
		if c.Kind == KindPrimitive && c.Primitive == "null" {
			return true
		}
	}
	return false
}

// String renders the declared type the way it appeared in the schema
// document, used as the "expected" field in type-mismatch findings.
func (t FieldType) String() string {
	return t.raw.Repr()
}

func parseFieldType(v Value) FieldType {
	switch v.Tag {
	case TagString:
		return FieldType{Kind: KindPrimitive, Primitive: v.Str, raw: v}
	case TagArray:
		union := make([]FieldType, len(v.Arr))
		for i, item := range v.Arr {
			union[i] = parseFieldType(item)
		}
		return FieldType{Kind: KindUnion, Union: union, raw: v}
	case TagObject:
		obj, _ := v.AsObject()
		typ, ok := obj["type"]
		items, hasItems := obj["items"]
		if ok && typ.Tag == TagString && typ.Str == "array" && hasItems {
			item := parseFieldType(items)
			return FieldType{Kind: KindArray, ArrayItem: &item, raw: v}
		}
		return FieldType{Kind: KindUnknown, raw: v}
	default:
		return FieldType{Kind: KindUnknown, raw: v}
	}
}

// Field is one entry of a record schema's "fields" array.
type Field struct {
	Name       string
	Type       FieldType
	HasDefault bool
}

// RecordSchema is the structural shape the validator needs: just the field
// list, in declaration order.
type RecordSchema struct {
	Fields []Field
}

// ExtractFields walks a decoded schema document and extracts its field list:
// the document must be an object, its "fields" attribute must be a list, and
// every field must carry "name" and "type". Any other shape within a
// field's "type" is accepted here and surfaces later as a type-mismatch
// finding, not a malformed-schema one.
func ExtractFields(schemaDoc Value) (*RecordSchema, error) {
	obj, ok := schemaDoc.AsObject()
	if !ok {
		return nil, fmt.Errorf("schema is not an object (got %s)", schemaDoc.TypeName())
	}
	fieldsVal, ok := obj["fields"]
	if !ok || fieldsVal.Tag != TagArray {
		return nil, fmt.Errorf("\"fields\" is missing or not a list")
	}

	fields := make([]Field, 0, len(fieldsVal.Arr))
	for i, item := range fieldsVal.Arr {
		fieldObj, ok := item.AsObject()
		if !ok {
			return nil, fmt.Errorf("field %d is not an object", i)
		}
		nameVal, ok := fieldObj["name"]
		if !ok || nameVal.Tag != TagString {
			return nil, fmt.Errorf("field %d is missing a \"name\"", i)
		}
		typeVal, ok := fieldObj["type"]
		if !ok {
			return nil, fmt.Errorf("field %q is missing a \"type\"", nameVal.Str)
		}
		_, hasDefault := fieldObj["default"]
		fields = append(fields, Field{
			Name:       nameVal.Str,
			Type:       parseFieldType(typeVal),
			HasDefault: hasDefault,
		})
	}
	return &RecordSchema{Fields: fields}, nil
}

// Matches reports whether value conforms to one of ft's candidate types,
// applying the match rules of spec §4.1 in order. Booleans never match
// "int" or "double" — they carry their own Value tag, distinct from numbers.
func Matches(value Value, ft FieldType) bool {
	switch ft.Kind {
	case KindPrimitive:
		switch ft.Primitive {
		case "null":
			return value.Tag == TagNull
		case "string":
			return value.Tag == TagString
		case "int":
			return value.Tag == TagInt
		case "double":
			return value.Tag == TagInt || value.Tag == TagFloat
		default:
			return false
		}
	case KindUnion:
		for _, c := range ft.Union {
			if Matches(value, c) {
				return true
			}
		}
		return false
	case KindArray:
		if value.Tag != TagArray {
			return false
		}
		for _, item := range value.Arr {
			if !Matches(item, *ft.ArrayItem) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
