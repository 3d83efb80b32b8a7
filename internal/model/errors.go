package model

import "fmt"

// ValidationError reports an entity that violates a structural invariant.
// It indicates a programming defect, not bad input.
type ValidationError struct {
	Entity string
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: %s.%s invalid: %s", e.Entity, e.Field, e.Detail)
}
