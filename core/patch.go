package core

import (
	"bytes"
	"encoding/json"
)

// NullKeys returns the keys of a JSON object explicitly set to null.
// Patch types use it to tell "clear this field" from "leave it alone".
func NullKeys(data []byte) (map[string]bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	nulls := make(map[string]bool)
	for k, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			nulls[k] = true
		}
	}
	return nulls, nil
}

// StringPtr is a small helper for building patches.
func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }
