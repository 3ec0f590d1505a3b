package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

type budgetItemResponse struct {
	ID             int64  `json:"id"`
	CategoryID     int64  `json:"category_id"`
	LimitAmount    string `json:"limit_amount"`
	WarningPercent int    `json:"warning_percent"`
}

func toBudgetItemResponse(item core.BudgetItem) budgetItemResponse {
	return budgetItemResponse{
		ID:             item.ID,
		CategoryID:     item.CategoryID,
		LimitAmount:    item.LimitAmount.String(),
		WarningPercent: item.WarningPercent,
	}
}

type budgetResponse struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	PeriodType string               `json:"period_type"`
	StartDate  string               `json:"start_date"`
	EndDate    string               `json:"end_date"`
	TotalLimit string               `json:"total_limit,omitempty"`
	Notes      string               `json:"notes,omitempty"`
	Items      []budgetItemResponse `json:"items,omitempty"`
}

func toBudgetResponse(b core.Budget, items []core.BudgetItem) budgetResponse {
	out := budgetResponse{
		ID:         b.ID,
		Name:       b.Name,
		PeriodType: string(b.PeriodType),
		StartDate:  b.StartDate.Format("2006-01-02"),
		EndDate:    b.EndDate.Format("2006-01-02"),
		Notes:      b.Notes,
	}
	if b.TotalLimit != nil {
		out.TotalLimit = b.TotalLimit.String()
	}
	for _, item := range items {
		out.Items = append(out.Items, toBudgetItemResponse(item))
	}
	return out
}

type budgetItemBody struct {
	CategoryID     int64  `json:"category_id"`
	LimitAmount    string `json:"limit_amount"`
	WarningPercent int    `json:"warning_percent"`
}

func (b budgetItemBody) toRequest() (services.BudgetItemRequest, error) {
	limit, err := amountField("limit_amount", b.LimitAmount)
	if err != nil {
		return services.BudgetItemRequest{}, err
	}
	return services.BudgetItemRequest{
		CategoryID:     b.CategoryID,
		LimitAmount:    limit,
		WarningPercent: b.WarningPercent,
	}, nil
}

type createBudgetBody struct {
	Name       string           `json:"name"`
	PeriodType string           `json:"period_type"`
	StartDate  string           `json:"start_date"`
	EndDate    string           `json:"end_date"`
	TotalLimit string           `json:"total_limit"`
	Notes      string           `json:"notes"`
	Items      []budgetItemBody `json:"items"`
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body createBudgetBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	start, err := dateField("start_date", body.StartDate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var end time.Time
	if body.EndDate != "" {
		end, err = dateField("end_date", body.EndDate)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	var totalLimit *decimal.Decimal
	if body.TotalLimit != "" {
		limit, err := amountField("total_limit", body.TotalLimit)
		if err != nil {
			respondError(w, r, err)
			return
		}
		totalLimit = &limit
	}

	items := make([]services.BudgetItemRequest, 0, len(body.Items))
	for _, item := range body.Items {
		req, err := item.toRequest()
		if err != nil {
			respondError(w, r, err)
			return
		}
		items = append(items, req)
	}

	created, err := s.budgets.Create(r.Context(), services.CreateBudgetRequest{
		OwnerID:    owner,
		Name:       body.Name,
		PeriodType: core.PeriodType(body.PeriodType),
		StartDate:  start,
		EndDate:    end,
		TotalLimit: totalLimit,
		Notes:      body.Notes,
		Items:      items,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusCreated, toBudgetResponse(created.Budget, created.Items))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	budgets, err := s.budgets.List(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b, nil))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
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

	budget, err := s.budgets.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(budget.Budget, budget.Items))
}

type updateBudgetBody struct {
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	TotalLimit string `json:"total_limit"`
	Notes      string `json:"notes"`
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
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

	var body updateBudgetBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	start, err := dateField("start_date", body.StartDate)
	if err != nil {
		respondError(w, r, err)
		return
	}
	end, err := dateField("end_date", body.EndDate)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var totalLimit *decimal.Decimal
	if body.TotalLimit != "" {
		limit, err := amountField("total_limit", body.TotalLimit)
		if err != nil {
			respondError(w, r, err)
			return
		}
		totalLimit = &limit
	}

	updated, err := s.budgets.Update(r.Context(), services.UpdateBudgetRequest{
		OwnerID:    owner,
		ID:         id,
		Name:       body.Name,
		StartDate:  start,
		EndDate:    end,
		TotalLimit: totalLimit,
		Notes:      body.Notes,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toBudgetResponse(updated, nil))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
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

	if err := s.budgets.Delete(r.Context(), owner, id); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddBudgetItem(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	budgetID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body budgetItemBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		respondError(w, r, err)
		return
	}

	item, err := s.budgets.AddItem(r.Context(), owner, budgetID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusCreated, toBudgetItemResponse(item))
}

func (s *Server) handleUpdateBudgetItem(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	budgetID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body budgetItemBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}
	req, err := body.toRequest()
	if err != nil {
		respondError(w, r, err)
		return
	}

	item, err := s.budgets.UpdateItem(r.Context(), owner, budgetID, itemID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toBudgetItemResponse(item))
}

func (s *Server) handleDeleteBudgetItem(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	budgetID, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := s.budgets.DeleteItem(r.Context(), owner, budgetID, itemID); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	w.WriteHeader(http.StatusNoContent)
}

type itemProgressResponse struct {
	Item       budgetItemResponse `json:"item"`
	Actual     string             `json:"actual"`
	Remaining  string             `json:"remaining"`
	Percentage float64            `json:"percentage"`
	Status     string             `json:"status"`
}

type budgetProgressResponse struct {
	Budget            budgetResponse         `json:"budget"`
	Status            string                 `json:"status"`
	Items             []itemProgressResponse `json:"items"`
	TotalBudgeted     string                 `json:"total_budgeted"`
	TotalActual       string                 `json:"total_actual"`
	TotalRemaining    string                 `json:"total_remaining"`
	OverallPercentage float64                `json:"overall_percentage"`
	OverallStatus     string                 `json:"overall_status"`
}

// handleBudgetProgress reports consumption for every budget overlapping the
// ?from/?to window (default: the current month).
func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	from, err := queryDate(r, "from")
	if err != nil {
		respondError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		respondError(w, r, err)
		return
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if from.IsZero() {
		from = monthStart
	}
	if to.IsZero() {
		to = monthStart.AddDate(0, 1, -1)
	}

	reports, err := s.budgets.Progress(r.Context(), owner, from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]budgetProgressResponse, 0, len(reports))
	for _, report := range reports {
		resp := budgetProgressResponse{
			Budget:            toBudgetResponse(report.Budget, nil),
			Status:            string(report.Status),
			TotalBudgeted:     report.TotalBudgeted.String(),
			TotalActual:       report.TotalActual.String(),
			TotalRemaining:    report.TotalRemaining.String(),
			OverallPercentage: report.OverallPercentage,
			OverallStatus:     string(report.OverallStatus),
		}
		for _, item := range report.Items {
			resp.Items = append(resp.Items, itemProgressResponse{
				Item:       toBudgetItemResponse(item.Item),
				Actual:     item.Actual.String(),
				Remaining:  item.Remaining.String(),
				Percentage: item.Percentage,
				Status:     string(item.Status),
			})
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, out)
}
