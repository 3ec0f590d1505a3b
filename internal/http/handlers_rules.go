package http

import (
	"net/http"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/schedule"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

type ruleResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	CategoryID  int64  `json:"category_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	Frequency   string `json:"frequency"`
	Interval    int    `json:"interval"`
	DayOfMonth  int    `json:"day_of_month,omitempty"`
	DayOfWeek   string `json:"day_of_week,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	NextRunDate string `json:"next_run_date"`
	Active      bool   `json:"active"`
	Schedule    string `json:"schedule"`
	Status      string `json:"status"`
}

func toRuleResponse(rule core.RecurringRule) ruleResponse {
	out := ruleResponse{
		ID:          rule.ID,
		AccountID:   rule.AccountID,
		CategoryID:  rule.CategoryID,
		Type:        string(rule.Type),
		Amount:      rule.Amount.String(),
		Currency:    rule.CurrencyCode,
		Description: rule.Description,
		Frequency:   string(rule.Frequency),
		Interval:    rule.Interval,
		DayOfMonth:  rule.DayOfMonth,
		StartDate:   rule.StartDate.Format("2006-01-02"),
		NextRunDate: rule.NextRunDate.Format("2006-01-02"),
		Active:      rule.Active,
		Schedule: schedule.Describe(schedule.Params{
			Frequency:    rule.Frequency,
			Interval:     rule.Interval,
			DayOfMonth:   rule.DayOfMonth,
			DayOfWeek:    rule.DayOfWeek,
			HasDayOfWeek: rule.HasDayOfWeek,
		}),
		Status: schedule.StatusDescription(rule.Active, rule.EndDate, time.Now().UTC()),
	}
	if rule.HasDayOfWeek {
		out.DayOfWeek = core.WeekdayString(rule.DayOfWeek)
	}
	if rule.EndDate != nil {
		out.EndDate = rule.EndDate.Format("2006-01-02")
	}
	return out
}

type createRuleBody struct {
	AccountID   int64  `json:"account_id"`
	CategoryID  int64  `json:"category_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Interval    int    `json:"interval"`
	DayOfMonth  int    `json:"day_of_month"`
	DayOfWeek   string `json:"day_of_week"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body createRuleBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	amount, err := amountField("amount", body.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}
	start, err := dateField("start_date", body.StartDate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := optionalDateField("end_date", body.EndDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rule, err := s.rules.Create(r.Context(), services.CreateRuleRequest{
		OwnerID:     owner,
		AccountID:   body.AccountID,
		CategoryID:  body.CategoryID,
		Type:        core.TransactionType(body.Type),
		Amount:      amount,
		Description: body.Description,
		Frequency:   core.Frequency(body.Frequency),
		Interval:    body.Interval,
		DayOfMonth:  body.DayOfMonth,
		DayOfWeek:   body.DayOfWeek,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	rules, err := s.rules.List(r.Context(), services.RuleFilter{
		OwnerID:    owner,
		AccountID:  queryInt64(r, "accountId"),
		Type:       core.TransactionType(r.URL.Query().Get("type")),
		ActiveOnly: queryBool(r, "activeOnly"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleListDueRules returns active rules whose next run is on or before
// ?asOf (default today).
func (s *Server) handleListDueRules(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	asOf, err := queryDate(r, "asOf")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if asOf.IsZero() {
		now := time.Now().UTC()
		asOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	rules, err := s.rules.ListDue(r.Context(), owner, asOf)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	rule, err := s.rules.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

type updateRuleBody struct {
	Amount      *string `json:"amount"`
	Description *string `json:"description"`
	Interval    *int    `json:"interval"`
	DayOfMonth  *int    `json:"day_of_month"`
	DayOfWeek   *string `json:"day_of_week"`
	EndDate     *string `json:"end_date"`
	ClearEnd    bool    `json:"clear_end"`
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body updateRuleBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	req := services.UpdateRuleRequest{
		OwnerID:     owner,
		ID:          id,
		Description: body.Description,
		Interval:    body.Interval,
		DayOfMonth:  body.DayOfMonth,
		DayOfWeek:   body.DayOfWeek,
		ClearEnd:    body.ClearEnd,
	}
	if body.Amount != nil {
		amount, err := amountField("amount", *body.Amount)
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.Amount = &amount
	}
	if body.EndDate != nil {
		end, err := dateField("end_date", *body.EndDate)
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.EndDate = &end
	}

	rule, err := s.rules.Update(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

type activeBody struct {
	Active bool `json:"active"`
}

func (s *Server) handleRuleActive(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body activeBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	rule, err := s.rules.SetActive(r.Context(), owner, id, body.Active)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

// handleAdvanceRule moves a rule's next run date forward one occurrence,
// deactivating the rule when it passes the end date.
func (s *Server) handleAdvanceRule(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	rule, err := s.rules.Advance(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.rules.Delete(r.Context(), owner, id); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}
