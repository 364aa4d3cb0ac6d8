package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"easybudget/internal/core"
	applog "easybudget/internal/log"
	"easybudget/internal/storage"
)

type expenseDTO struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AmountCents int64  `json:"amount_cents"`
	Amount      string `json:"amount"`
	Day         string `json:"day"`
	RecurringID *int64 `json:"recurring_id,omitempty"`
}

func toExpenseDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:          e.ID,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Amount:      e.Amount.String(),
		Day:         e.Day.Format("2006-01-02"),
		RecurringID: e.RecurringID,
	}
}

func toExpenseDTOs(expenses []core.Expense) []expenseDTO {
	out := make([]expenseDTO, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseDTO(e))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto status codes: validation failures are
// the client's fault, missing rows are 404, everything else is a 500 that
// hides the internal detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
		sl.LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, "",
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "", ""))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyTitle,
		core.ErrInvalidAmount,
		core.ErrInvalidDay,
		core.ErrInvalidType,
		core.ErrInvalidScope,
		core.ErrTitleTooLong,
		core.ErrEndBeforeAnchor,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// pathDay parses the {day} segment (YYYY-MM-DD).
func pathDay(r *http.Request) (core.Day, error) {
	return core.ParseDay(r.PathValue("day"))
}

// pathMonth parses the {month} segment (YYYY-MM) into the first day of that month.
func pathMonth(r *http.Request) (core.Day, error) {
	t, err := time.Parse("2006-01", r.PathValue("month"))
	if err != nil {
		return core.Day{}, err
	}
	return core.NewDay(t.Year(), int(t.Month()), 1), nil
}
