package camera

import (
	"fmt"
	"time"
)

// PropertyType tags the variant of a Property and its Values
type PropertyType int

const (
	// PropInt is an integer range with step and default
	PropInt PropertyType = iota

	// PropFloat is a float range with step and default
	PropFloat

	// PropBool is a boolean with default
	PropBool

	// PropDuration is a time range with step and default
	PropDuration

	// PropPixelFormat is an enumerated set of pixel formats
	PropPixelFormat

	// PropEnumStr is an enumerated set of strings; an empty set means
	// any string is accepted (free-form)
	PropEnumStr
)

func (t PropertyType) String() string {
	switch t {
	case PropInt:
		return "Int"
	case PropFloat:
		return "Float"
	case PropBool:
		return "Bool"
	case PropDuration:
		return "Duration"
	case PropPixelFormat:
		return "PixelFormat"
	case PropEnumStr:
		return "EnumStr"
	}
	return fmt.Sprintf("PropertyType(%d)", int(t))
}

// Value is a tagged union over the types a control can hold.  Only the
// field matching T carries meaning, the rest are zero.
type Value struct {
	T      PropertyType
	Int    int64
	Float  float64
	Bool   bool
	Dur    time.Duration
	Str    string
	Format PixelFormat
}

// IntV boxes an integer value
func IntV(v int64) Value { return Value{T: PropInt, Int: v} }

// FloatV boxes a float value
func FloatV(v float64) Value { return Value{T: PropFloat, Float: v} }

// BoolV boxes a boolean value
func BoolV(v bool) Value { return Value{T: PropBool, Bool: v} }

// DurV boxes a duration value
func DurV(v time.Duration) Value { return Value{T: PropDuration, Dur: v} }

// StrV boxes a string value
func StrV(v string) Value { return Value{T: PropEnumStr, Str: v} }

// FmtV boxes a pixel format value
func FmtV(v PixelFormat) Value { return Value{T: PropPixelFormat, Format: v} }

func (v Value) String() string {
	switch v.T {
	case PropInt:
		return fmt.Sprintf("%d", v.Int)
	case PropFloat:
		return fmt.Sprintf("%g", v.Float)
	case PropBool:
		return fmt.Sprintf("%t", v.Bool)
	case PropDuration:
		return v.Dur.String()
	case PropPixelFormat:
		return v.Format.String()
	case PropEnumStr:
		return v.Str
	}
	return "<invalid>"
}

// Property is the limits and capability metadata for one control.  Built
// once at device-open from the native capability records; read-only
// afterward.
type Property struct {
	// Type tags which of the range/variant fields apply
	Type PropertyType

	// Min, Max, Step, Default bound numeric and duration properties
	Min     Value
	Max     Value
	Step    Value
	Default Value

	// Variants enumerates the legal values for enumerated properties
	Variants []Value

	// Auto indicates the device firmware can drive this control itself
	Auto bool

	// ReadOnly properties reject writes at the validation layer
	ReadOnly bool
}

// Validate checks v against the declared range or variant set.  It never
// issues a native call; an invalid value is rejected before reaching the
// device.
func (p Property) Validate(v Value) error {
	if v.T != p.Type {
		return &PropertyError{Kind: fmt.Sprintf("type mismatch: control is %v, value is %v", p.Type, v.T)}
	}
	switch p.Type {
	case PropInt:
		if v.Int < p.Min.Int || v.Int > p.Max.Int {
			return &PropertyError{Kind: fmt.Sprintf("value %d outside range [%d, %d]", v.Int, p.Min.Int, p.Max.Int)}
		}
	case PropFloat:
		if v.Float < p.Min.Float || v.Float > p.Max.Float {
			return &PropertyError{Kind: fmt.Sprintf("value %g outside range [%g, %g]", v.Float, p.Min.Float, p.Max.Float)}
		}
	case PropDuration:
		if v.Dur < p.Min.Dur || v.Dur > p.Max.Dur {
			return &PropertyError{Kind: fmt.Sprintf("value %v outside range [%v, %v]", v.Dur, p.Min.Dur, p.Max.Dur)}
		}
	case PropBool:
		// any bool is valid
	case PropPixelFormat:
		for _, variant := range p.Variants {
			if variant.Format == v.Format {
				return nil
			}
		}
		return &PropertyError{Kind: fmt.Sprintf("pixel format %v not offered by this sensor", v.Format)}
	case PropEnumStr:
		if len(p.Variants) == 0 {
			return nil
		}
		for _, variant := range p.Variants {
			if variant.Str == v.Str {
				return nil
			}
		}
		return &PropertyError{Kind: fmt.Sprintf("string %q not in the enumerated set", v.Str)}
	}
	return nil
}
