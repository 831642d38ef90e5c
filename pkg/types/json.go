package types

import (
	"encoding/json"
	"fmt"
)

// scanJSON decodes a jsonb column, which drivers hand back as string or []byte.
func scanJSON(kind string, value any, dest any) error {
	var raw []byte
	switch v := value.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("%s: unsupported scan type %T", kind, value)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%s: decode: %w", kind, err)
	}
	return nil
}

func valueJSON(kind string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s: marshal: %w", kind, err)
	}
	return string(raw), nil
}
