package entity

import "time"

// Estados del registro de idempotencia.
const (
	IdempotencyInProgress = "IN_PROGRESS"
	IdempotencyCompleted  = "COMPLETED"
	IdempotencyFailed     = "FAILED"
)

// IdempotencyRecord resultado de una solicitud mutante, por (empresa, clave).
// Una vez COMPLETED, ResponseBody es inmutable y se devuelve tal cual.
type IdempotencyRecord struct {
	TenantID      string
	RequestKey    string
	OperationType string
	RequestHash   string
	Status        string
	Attempt       int
	LockedUntil   time.Time
	ResponseCode  int
	ResponseBody  []byte
	ErrorCode     string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}
