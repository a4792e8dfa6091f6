package request

// AppendEventRequest is the body of POST /api/portfolio/event. Symbol is
// required for holding events (purchase, sale) and left empty for
// portfolio-level cash events.
type AppendEventRequest struct {
	Path   string  `json:"path,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
	Date   string  `json:"date"`
	Type   string  `json:"type"`
	Shares float64 `json:"shares,omitempty"`
	Price  float64 `json:"price,omitempty"`
	Amount float64 `json:"amount,omitempty"`
	Note   string  `json:"note,omitempty"`
}
