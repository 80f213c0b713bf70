package objects

type ErrorResponse struct {
	Error Error `json:"error"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`

	// Reason is set when a status transition was rejected.
	Reason string `json:"reason,omitempty"`
}

// ListResponse wraps collection payloads.
type ListResponse[T any] struct {
	Data []T `json:"data"`
}
