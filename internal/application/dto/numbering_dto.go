package dto

// ConfigureNumberingRequest body para PUT /api/numbering-range (resolución DIAN).
type ConfigureNumberingRequest struct {
	IdempotencyKey   string `json:"idempotency_key,omitempty"`
	ResolutionNumber string `json:"resolution_number" validate:"required"`
	TechnicalKey     string `json:"technical_key,omitempty"`
	Prefix           string `json:"prefix" validate:"required,max=4"`
	RangeFrom        int64  `json:"range_from" validate:"gte=1"`
	RangeTo          int64  `json:"range_to" validate:"gtefield=RangeFrom"`
	DateFrom         string `json:"date_from" validate:"required,datetime=2006-01-02"`
	DateTo           string `json:"date_to" validate:"required,datetime=2006-01-02"`
	Environment      string `json:"environment" validate:"required,oneof=1 2"`
}

// NumberingRangeResponse rango vigente.
type NumberingRangeResponse struct {
	ID               string `json:"id"`
	ResolutionNumber string `json:"resolution_number"`
	Prefix           string `json:"prefix"`
	RangeFrom        int64  `json:"range_from"`
	RangeTo          int64  `json:"range_to"`
	NextNumber       int64  `json:"next_number"`
	DateFrom         string `json:"date_from"`
	DateTo           string `json:"date_to"`
	Environment      string `json:"environment"`
	Status           string `json:"status"`
	Remaining        int64  `json:"remaining"`
}

// RemainingNumbersResponse GET /api/numbering-range/remaining.
type RemainingNumbersResponse struct {
	Prefix    string `json:"prefix,omitempty"`
	Status    string `json:"status,omitempty"`
	Remaining int64  `json:"remaining"`
	LowRange  bool   `json:"low_range"`
}
