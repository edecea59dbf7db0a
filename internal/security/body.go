package security

import (
	"errors"
	"fmt"
)

// DefaultMaxJSONDepth bounds object/array nesting in inbound request bodies.
const DefaultMaxJSONDepth = 32

// ErrJSONTooDeep is returned by CheckJSONDepth.
var ErrJSONTooDeep = errors.New("JSON nesting exceeds maximum depth")

// CheckJSONDepth scans data and fails as soon as brackets nest deeper than
// limit. Brackets inside string literals are ignored. It does not check
// that data is well-formed JSON; the decoder does that afterwards.
func CheckJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}

	depth := 0
	inString, escaped := false, false
	for _, b := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > limit {
				return fmt.Errorf("%w (max %d)", ErrJSONTooDeep, limit)
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return nil
}
