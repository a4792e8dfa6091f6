package validation

import (
	"fmt"
	"strings"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/request"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// holdingEventTypes are event types that require a symbol.
var holdingEventTypes = map[model.EventType]bool{
	model.EventPurchase: true,
	model.EventSale:     true,
}

// ValidateAppendEvent validates an event append request.
//
// Required fields:
//   - date: free-form but non-empty; YYYY-MM-DD or YYYYMMDD normalize cleanly
//   - type: one of purchase, sale, dividend, cash_deposit, cash_withdrawal
//   - symbol: required for purchase and sale
//   - shares/price: non-negative; shares must be positive for purchase/sale
func ValidateAppendEvent(req request.AppendEventRequest) error {
	errors := make(map[string]string)

	if strings.TrimSpace(req.Date) == "" {
		errors["date"] = "date is required"
	}

	typ := model.EventType(strings.TrimSpace(req.Type))
	if req.Type == "" {
		errors["type"] = "type is required"
	} else if !model.ValidEventTypes[typ] {
		errors["type"] = fmt.Sprintf("%s: %s", apperrors.ErrInvalidEventType, req.Type)
	}

	if holdingEventTypes[typ] {
		if strings.TrimSpace(req.Symbol) == "" {
			errors["symbol"] = fmt.Sprintf("%s for purchase and sale events", apperrors.ErrInvalidSymbol)
		}
		if req.Shares <= 0 {
			errors["shares"] = "shares must be positive"
		}
	}
	if req.Shares < 0 {
		errors["shares"] = apperrors.ErrNegativeShares.Error()
	}
	if req.Price < 0 {
		errors["price"] = apperrors.ErrNegativePrice.Error()
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
