package kafka

import (
	"encoding/json"
	"fmt"
)

// MustMarshal is for message types that always encode (plain structs).
func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("kafka: marshal %T: %v", v, err))
	}
	return b
}

// Decode reads a message value or an envelope payload as T.
func Decode[T any](b []byte) (T, error) {
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}
