package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status     string      `json:"status"`
	RequestID  string      `json:"request_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Error      *APIError   `json:"error"`
}

// Pagination holds pagination metadata for list endpoints.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// Cycle listing limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ListOptions filters and pages cycle trace queries.
type ListOptions struct {
	Limit   int
	Offset  int
	Kind    CycleKind // empty matches both kinds
	Session string    // empty matches every session
}

// DefaultListOptions returns the first page at the default limit.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: DefaultListLimit}
}

// Clamp brings Limit into [1, MaxListLimit], using DefaultListLimit for
// non-positive values, and floors Offset at zero.
func (o *ListOptions) Clamp() {
	switch {
	case o.Limit <= 0:
		o.Limit = DefaultListLimit
	case o.Limit > MaxListLimit:
		o.Limit = MaxListLimit
	}
	o.Offset = max(o.Offset, 0)
}
