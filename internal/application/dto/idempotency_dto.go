package dto

// IdempotencyRecordResponse GET /api/idempotency/:key.
type IdempotencyRecordResponse struct {
	Key          string  `json:"key"`
	Operation    string  `json:"operation"`
	Status       string  `json:"status"` // IN_PROGRESS | COMPLETED | FAILED
	Attempt      int     `json:"attempt"`
	ResponseCode int     `json:"response_code,omitempty"`
	ErrorCode    string  `json:"error_code,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
	CreatedAt    string  `json:"created_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}
