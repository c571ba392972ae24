package model

import (
	"encoding/json"
	"strconv"
)

// OptFloat is a float that may not be available yet (indicator warm-up,
// degenerate window). A zero Value with Valid=true is a real reading.
type OptFloat struct {
	Value float64
	Valid bool
}

// Some wraps v as an available value.
func Some(v float64) OptFloat { return OptFloat{Value: v, Valid: true} }

// None is the unavailable value.
var None = OptFloat{}

// Ptr returns nil when the value is unavailable.
func (o OptFloat) Ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

func (o OptFloat) String() string {
	if !o.Valid {
		return "null"
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}

func (o OptFloat) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *OptFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = None
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
