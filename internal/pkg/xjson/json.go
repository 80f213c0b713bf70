package xjson

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
)

func MustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return b
}

func MustMarshalString(v any) string {
	return string(MustMarshal(v))
}

func To[T any](data []byte) (T, error) {
	var v T

	err := json.Unmarshal(data, &v)

	return v, err
}

// Equal reports whether a and b encode to semantically equal JSON.
func Equal(a, b any) bool {
	var x, y any

	if err := json.Unmarshal(MustMarshal(a), &x); err != nil {
		return false
	}

	if err := json.Unmarshal(MustMarshal(b), &y); err != nil {
		return false
	}

	return cmp.Equal(x, y)
}
