package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CompactJSON validates a JSON source and strips its insignificant
// whitespace. Key order and string escapes are kept as written.
func CompactJSON(src []byte) ([]byte, error) {
	if len(bytes.TrimSpace(src)) == 0 {
		return nil, ErrEmptyDocument
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, src); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return buf.Bytes(), nil
}
