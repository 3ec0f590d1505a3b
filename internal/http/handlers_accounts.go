package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

type accountResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Currency       string    `json:"currency"`
	InitialBalance string    `json:"initial_balance"`
	CurrentBalance string    `json:"current_balance"`
	Archived       bool      `json:"archived"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		Name:           a.Name,
		Type:           string(a.Type),
		Currency:       a.CurrencyCode,
		InitialBalance: a.InitialBalance.String(),
		CurrentBalance: a.CurrentBalance.String(),
		Archived:       a.Archived,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

type createAccountBody struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Currency       string `json:"currency"`
	InitialBalance string `json:"initial_balance"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body createAccountBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	initial := decimal.Zero
	if body.InitialBalance != "" {
		initial, err = amountField("initial_balance", body.InitialBalance)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	account, err := s.accounts.Create(r.Context(), services.CreateAccountRequest{
		OwnerID:        owner,
		Name:           body.Name,
		Type:           core.AccountType(body.Type),
		CurrencyCode:   body.Currency,
		InitialBalance: initial,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	accounts, err := s.accounts.List(r.Context(), owner, queryBool(r, "includeArchived"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
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

	account, err := s.accounts.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

type updateAccountBody struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
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

	var body updateAccountBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	account, err := s.accounts.Update(r.Context(), services.UpdateAccountRequest{
		OwnerID: owner,
		ID:      id,
		Name:    body.Name,
		Type:    core.AccountType(body.Type),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

type changeCurrencyBody struct {
	Currency string `json:"currency"`
}

func (s *Server) handleChangeCurrency(w http.ResponseWriter, r *http.Request) {
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

	var body changeCurrencyBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	account, err := s.accounts.ChangeCurrency(r.Context(), owner, id, body.Currency)
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, toAccountResponse(account))
}

// handleArchiveAccount soft-deletes. ?force=true archives despite a non-zero
// balance.
func (s *Server) handleArchiveAccount(w http.ResponseWriter, r *http.Request) {
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

	if err := s.accounts.Archive(r.Context(), owner, id, queryBool(r, "force")); err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusNoContent, nil)
}

type overviewResponse struct {
	Total  string            `json:"total"`
	ByType map[string]string `json:"by_type"`
}

func (s *Server) handleAccountOverview(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	overview, err := s.accounts.Overview(r.Context(), owner)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := overviewResponse{
		Total:  overview.Total.String(),
		ByType: make(map[string]string, len(overview.ByType)),
	}
	for accountType, total := range overview.ByType {
		out.ByType[string(accountType)] = total.String()
	}
	respondJSON(w, http.StatusOK, out)
}
