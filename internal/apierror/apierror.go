// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// ProblemList carries business-rule violations: every problem found in the
// request is reported at once instead of one per round trip.
type ProblemList struct {
	Detail   string   `json:"detail"`
	Problems []string `json:"problems"`
}

func NewProblems(problems []string) *ProblemList {
	return &ProblemList{Detail: "request rejected", Problems: problems}
}
