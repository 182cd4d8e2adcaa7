package message

import (
	"errors"
	"fmt"
)

// ErrNormalization matches every *NormalizationError via errors.Is.
var ErrNormalization = errors.New("normalization failed")

// NormalizationError reports a malformed inbound record.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("normalize: %s", e.Reason)
	}
	return fmt.Sprintf("normalize: %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrNormalization) match.
func (e *NormalizationError) Is(target error) bool {
	return target == ErrNormalization
}
