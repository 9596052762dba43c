package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fields is a flat JSON object whose keys cannot be expressed as struct tags.
type Fields map[string]json.RawMessage

// FieldReader pulls typed values out of Fields. The first shape mismatch is
// kept and reported by Err; later reads still return zero values.
type FieldReader struct {
	fields Fields
	err    error
}

// NewFieldReader wraps f.
func NewFieldReader(f Fields) *FieldReader {
	return &FieldReader{fields: f}
}

// Err returns the first shape mismatch seen, if any.
func (r *FieldReader) Err() error { return r.err }

func (r *FieldReader) raw(key string) (json.RawMessage, bool) {
	v, ok := r.fields[key]
	if !ok {
		return nil, false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

func (r *FieldReader) fail(key, want string, v json.RawMessage) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: expected %s, got %s", key, want, kindOf(v))
	}
}

// String reads a string field. Numbers are accepted and kept in their JSON
// text form. Missing and null values read as "".
func (r *FieldReader) String(key string) string {
	v, ok := r.raw(key)
	if !ok {
		return ""
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			r.fail(key, "string", v)
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(v)
	default:
		r.fail(key, "string", v)
		return ""
	}
}

// Float reads a numeric field with best-effort coercion: numeric strings are
// parsed, accepting a decimal comma. Non-numeric strings read as nil; objects,
// arrays and booleans are shape mismatches.
func (r *FieldReader) Float(key string) *float64 {
	v, ok := r.raw(key)
	if !ok {
		return nil
	}
	var f FlexFloat
	if err := json.Unmarshal(v, &f); err != nil {
		r.fail(key, "number", v)
		return nil
	}
	return f.Ptr()
}

// Int reads a numeric field that must hold a whole number. Fractional and
// out-of-range values read as nil.
func (r *FieldReader) Int(key string) *int {
	f := r.Float(key)
	if f == nil || *f != math.Trunc(*f) || *f > math.MaxInt32 || *f < math.MinInt32 {
		return nil
	}
	n := int(*f)
	return &n
}

// FlexFloat decodes a JSON number or a numeric string. Valid is false when
// the value was null, empty or not numeric.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FlexFloat{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, ok := ParseNumber(s)
		*f = FlexFloat{Value: v, Valid: ok}
		return nil
	case '{', '[', 't', 'f':
		return fmt.Errorf("expected number, got %s", kindOf(data))
	default:
		var v float64
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = FlexFloat{Value: v, Valid: true}
		return nil
	}
}

// Ptr returns the value, or nil when it is not valid.
func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// ParseNumber parses s as a float, trimming spaces and accepting a decimal comma.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func kindOf(v json.RawMessage) string {
	if len(v) == 0 {
		return "nothing"
	}
	switch v[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case '"':
		return "string"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
