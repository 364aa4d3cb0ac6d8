package http

import (
	"encoding/json"
	"net/http"

	"easybudget/internal/core"
	applog "easybudget/internal/log"
)

type expenseRequest struct {
	Title  string `json:"title"`
	Amount string `json:"amount"`
	Day    string `json:"day"`
}

func (req expenseRequest) toExpense() (core.Expense, error) {
	day, err := core.ParseDay(req.Day)
	if err != nil {
		return core.Expense{}, core.ErrInvalidDay
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Title:  req.Title,
		Amount: core.Money{Cents: cents},
		Day:    day,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	e, err := req.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.CreateExpense(r.Context(), &e); err != nil {
		writeError(w, r, err)
		return
	}
	applog.NewStructuredLogger(applog.FromContext(r.Context())).
		LogExpenseCreated(r.Context(), e.ID, e.Title, e.Amount.Cents, e.Day.Format("2006-01-02"))
	writeJSON(w, http.StatusCreated, toExpenseDTO(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid expense id"})
		return
	}
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	e, err := req.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}
	e.ID = id
	if err := s.svc.UpdateExpense(r.Context(), &e); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid expense id"})
		return
	}
	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDayExpenses(w http.ResponseWriter, r *http.Request) {
	day, err := pathDay(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid day, expected YYYY-MM-DD"})
		return
	}
	expenses, err := s.svc.GetExpensesForDay(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Day      string       `json:"day"`
		Expenses []expenseDTO `json:"expenses"`
	}{Day: day.Format("2006-01-02"), Expenses: toExpenseDTOs(expenses)})
}

func (s *Server) handleDayBalance(w http.ResponseWriter, r *http.Request) {
	day, err := pathDay(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid day, expected YYYY-MM-DD"})
		return
	}
	balance, err := s.svc.GetBalanceForDay(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Day          string `json:"day"`
		BalanceCents int64  `json:"balance_cents"`
		Balance      string `json:"balance"`
	}{Day: day.Format("2006-01-02"), BalanceCents: balance.Cents, Balance: balance.String()})
}

func (s *Server) handleMonthExpenses(w http.ResponseWriter, r *http.Request) {
	first, err := pathMonth(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid month, expected YYYY-MM"})
		return
	}
	expenses, err := s.svc.GetExpensesForMonth(r.Context(), first)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Month    string       `json:"month"`
		Expenses []expenseDTO `json:"expenses"`
	}{Month: first.Format("2006-01"), Expenses: toExpenseDTOs(expenses)})
}

func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	first, err := pathMonth(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid month, expected YYYY-MM"})
		return
	}
	summary, err := s.svc.GetMonthSummary(r.Context(), first)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Month      string `json:"month"`
		TotalCents int64  `json:"total_cents"`
		Total      string `json:"total"`
		Count      int    `json:"count"`
	}{
		Month:      first.Format("2006-01"),
		TotalCents: summary.Total.Cents,
		Total:      summary.Total.String(),
		Count:      summary.Count,
	})
}

type recurringRequest struct {
	Title     string `json:"title"`
	Amount    string `json:"amount"`
	AnchorDay string `json:"anchor_day"`
	Type      string `json:"type"`
	Until     string `json:"until,omitempty"`
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}
	anchor, err := core.ParseDay(req.AnchorDay)
	if err != nil {
		writeError(w, r, core.ErrInvalidDay)
		return
	}
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var until *core.Day
	if req.Until != "" {
		d, err := core.ParseDay(req.Until)
		if err != nil {
			writeError(w, r, core.ErrInvalidDay)
			return
		}
		until = &d
	}

	re := core.RecurringExpense{
		Title:     req.Title,
		Amount:    core.Money{Cents: cents},
		AnchorDay: anchor,
		Type:      core.RecurrenceType(req.Type),
	}
	created, err := s.svc.CreateRecurringExpense(r.Context(), &re, until)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		RecurringID int64  `json:"recurring_id"`
		Occurrences int    `json:"occurrences"`
		Type        string `json:"type"`
	}{RecurringID: re.ID, Occurrences: created, Type: string(re.Type)})
}

// handleDeleteRecurring deletes occurrences of the template that generated
// the expense named in the path, per the scope query parameter.
func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid expense id"})
		return
	}
	scope := core.DeleteScope(r.URL.Query().Get("scope"))
	action, err := s.svc.DeleteRecurring(r.Context(), id, scope)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Scope   string `json:"scope"`
		Deleted int    `json:"deleted"`
	}{Scope: string(action.Scope), Deleted: len(action.Expenses)})
}
