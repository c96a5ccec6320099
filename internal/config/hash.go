package config

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

func hashBytes(b []byte) string {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return fmt.Sprintf("%x", h.Sum64())
}

// canonicalHashJSON hashes the canonical JSON encoding of v, so formatting
// and YAML/JSON representation differences do not register as changes.
func canonicalHashJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return hashBytes(b)
}
