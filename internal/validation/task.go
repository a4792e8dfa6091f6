package validation

import (
	"fmt"
	"strings"

	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/api/request"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/apperrors"
	"github.com/hvanleeuwen/Portfolio-Valuation-Worker/internal/model"
)

// ValidateSubmitTask validates a task submission request.
func ValidateSubmitTask(req request.SubmitTaskRequest) error {
	errors := make(map[string]string)

	typ := model.TaskType(strings.TrimSpace(req.Type))
	if req.Type == "" {
		errors["type"] = "type is required"
	} else if !model.ValidTaskTypes[typ] {
		errors["type"] = fmt.Sprintf("%s: %s", apperrors.ErrInvalidTaskType, req.Type)
	}

	if typ == model.TaskPrefetchSymbol && strings.TrimSpace(req.Symbol) == "" {
		errors["symbol"] = fmt.Sprintf("%s for prefetch_symbol", apperrors.ErrInvalidSymbol)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
