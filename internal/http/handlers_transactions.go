package http

import (
	"net/http"
	"time"

	"github.com/itsmibrahim123/ExpenseManager/internal/core"
	"github.com/itsmibrahim123/ExpenseManager/internal/services"
)

type transactionResponse struct {
	ID                  int64     `json:"id"`
	AccountID           int64     `json:"account_id"`
	CategoryID          int64     `json:"category_id"`
	PaymentMethodID     *int64    `json:"payment_method_id,omitempty"`
	MerchantID          *int64    `json:"merchant_id,omitempty"`
	Type                string    `json:"type"`
	Amount              string    `json:"amount"`
	Currency            string    `json:"currency"`
	Date                string    `json:"date"`
	TimeOfDay           string    `json:"time_of_day,omitempty"`
	Status              string    `json:"status"`
	LinkedTransactionID *int64    `json:"linked_transaction_id,omitempty"`
	Description         string    `json:"description,omitempty"`
	ReferenceNumber     string    `json:"reference_number,omitempty"`
	RecurringInstance   bool      `json:"recurring_instance,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                  t.ID,
		AccountID:           t.AccountID,
		CategoryID:          t.CategoryID,
		PaymentMethodID:     t.PaymentMethodID,
		MerchantID:          t.MerchantID,
		Type:                string(t.Type),
		Amount:              t.Amount.String(),
		Currency:            t.CurrencyCode,
		Date:                t.Date.Format("2006-01-02"),
		TimeOfDay:           t.TimeOfDay,
		Status:              string(t.Status),
		LinkedTransactionID: t.LinkedTransactionID,
		Description:         t.Description,
		ReferenceNumber:     t.ReferenceNumber,
		RecurringInstance:   t.RecurringInstance,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

type transactionResultResponse struct {
	Transaction  transactionResponse `json:"transaction"`
	BalanceAfter string              `json:"balance_after"`
}

type createTransactionBody struct {
	AccountID       int64  `json:"account_id"`
	CategoryID      int64  `json:"category_id"`
	PaymentMethodID *int64 `json:"payment_method_id"`
	MerchantID      *int64 `json:"merchant_id"`
	Type            string `json:"type"`
	Amount          string `json:"amount"`
	Currency        string `json:"currency"`
	Date            string `json:"date"`
	TimeOfDay       string `json:"time_of_day"`
	Status          string `json:"status"`
	Description     string `json:"description"`
	ReferenceNumber string `json:"reference_number"`
}

// handleCreateTransaction records an expense or income. ?allowNegative=true
// bypasses the insufficient balance guard.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body createTransactionBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	amount, err := amountField("amount", body.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var date time.Time
	if body.Date != "" {
		date, err = dateField("date", body.Date)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	result, err := s.transactions.Create(r.Context(), services.CreateTransactionRequest{
		OwnerID:         owner,
		AccountID:       body.AccountID,
		CategoryID:      body.CategoryID,
		PaymentMethodID: body.PaymentMethodID,
		MerchantID:      body.MerchantID,
		Type:            core.TransactionType(body.Type),
		Amount:          amount,
		CurrencyCode:    body.Currency,
		Date:            date,
		TimeOfDay:       body.TimeOfDay,
		Status:          core.TransactionStatus(body.Status),
		Description:     body.Description,
		ReferenceNumber: body.ReferenceNumber,
	}, queryBool(r, "allowNegative"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	s.logs.LogTransactionCreated(r.Context(), owner, result.Transaction.ID,
		result.Transaction.AccountID, result.Transaction.Amount.String(), result.Transaction.CurrencyCode)
	respondJSON(w, http.StatusCreated, transactionResultResponse{
		Transaction:  toTransactionResponse(result.Transaction),
		BalanceAfter: result.BalanceAfter.String(),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
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

	transactions, err := s.transactions.List(r.Context(), services.TransactionFilter{
		OwnerID:    owner,
		AccountID:  queryInt64(r, "accountId"),
		CategoryID: queryInt64(r, "categoryId"),
		Type:       core.TransactionType(r.URL.Query().Get("type")),
		Status:     core.TransactionStatus(r.URL.Query().Get("status")),
		From:       from,
		To:         to,
		Limit:      queryInt(r, "limit", 0),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
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

	transaction, err := s.transactions.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toTransactionResponse(transaction))
}

type statusBody struct {
	Status string `json:"status"`
}

func (s *Server) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
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

	var body statusBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.transactions.UpdateStatus(r.Context(), owner, id, core.TransactionStatus(body.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusOK, transactionResultResponse{
		Transaction:  toTransactionResponse(result.Transaction),
		BalanceAfter: result.BalanceAfter.String(),
	})
}

type transferBody struct {
	FromAccountID   int64  `json:"from_account_id"`
	ToAccountID     int64  `json:"to_account_id"`
	Amount          string `json:"amount"`
	Date            string `json:"date"`
	Description     string `json:"description"`
	ReferenceNumber string `json:"reference_number"`
}

type transferResponse struct {
	OutLeg            transactionResponse `json:"out_leg"`
	InLeg             transactionResponse `json:"in_leg"`
	ReferenceNumber   string              `json:"reference_number"`
	SourceBefore      string              `json:"source_before"`
	SourceAfter       string              `json:"source_after"`
	DestinationBefore string              `json:"destination_before"`
	DestinationAfter  string              `json:"destination_after"`
}

// handleTransfer moves funds between two accounts atomically.
// ?allowNegative=true bypasses the insufficient balance guard on the source.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var body transferBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, r, err)
		return
	}

	amount, err := amountField("amount", body.Amount)
	if err != nil {
		respondError(w, r, err)
		return
	}

	var date time.Time
	if body.Date != "" {
		date, err = dateField("date", body.Date)
		if err != nil {
			respondError(w, r, err)
			return
		}
	}

	result, err := s.transactions.Transfer(r.Context(), services.TransferRequest{
		OwnerID:         owner,
		FromAccountID:   body.FromAccountID,
		ToAccountID:     body.ToAccountID,
		Amount:          amount,
		Date:            date,
		Description:     body.Description,
		ReferenceNumber: body.ReferenceNumber,
	}, queryBool(r, "allowNegative"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	s.invalidateOwner(owner)
	respondJSON(w, http.StatusCreated, transferResponse{
		OutLeg:            toTransactionResponse(result.OutLeg),
		InLeg:             toTransactionResponse(result.InLeg),
		ReferenceNumber:   result.ReferenceNumber,
		SourceBefore:      result.SourceBefore.String(),
		SourceAfter:       result.SourceAfter.String(),
		DestinationBefore: result.DestinationBefore.String(),
		DestinationAfter:  result.DestinationAfter.String(),
	})
}
