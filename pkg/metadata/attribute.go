// ABOUTME: Attribute values decoded from Zarr JSON documents
// ABOUTME: Closed set of variants, consumers type-switch over them

package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Value is a decoded JSON attribute value. The variants are String, Number,
// Integer, Boolean, Array, Object and Null.
type Value interface {
	// Kind returns the variant name ("string", "number", ...).
	Kind() string
	// Interface converts the value back to plain Go values.
	Interface() any

	attributeValue()
}

// String is a JSON string.
type String string

// Number is a JSON number that is not an integer literal.
type Number float64

// Integer is a JSON integer literal that fits in int64.
type Integer int64

// Boolean is a JSON boolean.
type Boolean bool

// Array is a JSON array.
type Array []Value

// Object is a JSON object.
type Object map[string]Value

// Null is JSON null.
type Null struct{}

func (String) attributeValue()  {}
func (Number) attributeValue()  {}
func (Integer) attributeValue() {}
func (Boolean) attributeValue() {}
func (Array) attributeValue()   {}
func (Object) attributeValue()  {}
func (Null) attributeValue()    {}

func (String) Kind() string  { return "string" }
func (Number) Kind() string  { return "number" }
func (Integer) Kind() string { return "integer" }
func (Boolean) Kind() string { return "boolean" }
func (Array) Kind() string   { return "array" }
func (Object) Kind() string  { return "object" }
func (Null) Kind() string    { return "null" }

func (v String) Interface() any  { return string(v) }
func (v Number) Interface() any  { return float64(v) }
func (v Integer) Interface() any { return int64(v) }
func (v Boolean) Interface() any { return bool(v) }
func (Null) Interface() any      { return nil }

func (v Array) Interface() any {
	out := make([]any, len(v))
	for i, item := range v {
		out[i] = item.Interface()
	}
	return out
}

func (v Object) Interface() any {
	out := make(map[string]any, len(v))
	for k, item := range v {
		out[k] = item.Interface()
	}
	return out
}

// Float reports the numeric value of Number and Integer variants.
func Float(v Value) (float64, bool) {
	switch n := v.(type) {
	case Number:
		return float64(n), true
	case Integer:
		return float64(n), true
	}
	return 0, false
}

// ParseValue decodes a single JSON document into a Value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromInterface(raw), nil
}

// FromInterface converts a value produced by encoding/json (with UseNumber)
// into a Value.
func FromInterface(raw any) Value {
	switch v := raw.(type) {
	case nil:
		return Null{}
	case string:
		return String(v)
	case bool:
		return Boolean(v)
	case json.Number:
		return numberFromLiteral(v.String())
	case float64:
		return Number(v)
	case int:
		return Integer(v)
	case int64:
		return Integer(v)
	case []any:
		arr := make(Array, len(v))
		for i, item := range v {
			arr[i] = FromInterface(item)
		}
		return arr
	case map[string]any:
		obj := make(Object, len(v))
		for k, item := range v {
			obj[k] = FromInterface(item)
		}
		return obj
	default:
		return String(fmt.Sprint(v))
	}
}

func numberFromLiteral(lit string) Value {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Integer(i)
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return String(lit)
	}
	return Number(f)
}

// Attributes maps attribute names to values.
type Attributes map[string]Value

// UnmarshalJSON decodes a JSON object of attributes.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	v, err := ParseValue(data)
	if err != nil {
		return err
	}
	if _, ok := v.(Null); ok {
		*a = Attributes{}
		return nil
	}
	obj, ok := v.(Object)
	if !ok {
		return fmt.Errorf("attributes must be a JSON object, found %s", v.Kind())
	}
	*a = Attributes(obj)
	return nil
}

// String returns the attribute as a string when it is a String variant.
func (a Attributes) String(key string) (string, bool) {
	s, ok := a[key].(String)
	return string(s), ok
}

// Has reports whether the attribute is present.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Keys returns attribute names in sorted order.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
