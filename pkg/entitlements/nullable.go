package entitlements

import (
	"encoding/json"
	"time"
)

// NullableTime distinguishes an omitted JSON field from an explicit null.
// Update payloads need the three-way split: omitted fields coalesce from the
// current row, an explicit null clears the value, and a timestamp sets it.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON marks the field as set; json.Unmarshal never calls this for
// absent fields, so Set stays false for them.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// MarshalJSON renders the value, or null when cleared or unset.
func (n NullableTime) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}
