package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
	"banking-ledger/internal/service"
)

const dateLayout = "2006-01-02"

type TransactionHandler struct {
	transactionService *service.TransactionService
}

func NewTransactionHandler(transactionService *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
	}
}

type MovementRequest struct {
	AccountNumber string  `json:"account_number" validate:"required,max=32"`
	Amount        string  `json:"amount" validate:"required,max=40,decimal_amount"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type TransferRequest struct {
	FromAccountNumber string  `json:"from_account_number" validate:"required,max=32"`
	ToAccountNumber   string  `json:"to_account_number" validate:"required,max=32"`
	Amount            string  `json:"amount" validate:"required,max=40,decimal_amount"`
	Description       *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type TransactionResponse struct {
	ID                       int64     `json:"id"`
	TransactionReference     string    `json:"transaction_reference"`
	Type                     string    `json:"type"`
	Amount                   string    `json:"amount"`
	BalanceAfter             string    `json:"balance_after"`
	Description              string    `json:"description"`
	AccountNumber            string    `json:"account_number"`
	DestinationAccountNumber *string   `json:"destination_account_number,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
}

func toTransactionResponse(tx *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                       tx.ID,
		TransactionReference:     tx.Reference,
		Type:                     string(tx.Type),
		Amount:                   tx.Amount.StringFixed(2),
		BalanceAfter:             tx.BalanceAfter.StringFixed(2),
		Description:              tx.Description,
		AccountNumber:            tx.AccountNumber,
		DestinationAccountNumber: tx.DestinationAccountNumber,
		CreatedAt:                tx.CreatedAt,
	}
}

func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.transactionService.Deposit)
}

func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.movement(w, r, h.transactionService.Withdraw)
}

func (h *TransactionHandler) movement(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, req service.MovementRequest) (*domain.Transaction, error),
) {
	var req MovementRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	tx, err := apply(r.Context(), service.MovementRequest{
		AccountNumber: req.AccountNumber,
		Amount:        decimal.RequireFromString(strings.TrimSpace(req.Amount)),
		Description:   req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	outgoing, incoming, err := h.transactionService.Transfer(r.Context(), service.TransferRequest{
		SourceAccountNumber:      req.FromAccountNumber,
		DestinationAccountNumber: req.ToAccountNumber,
		Amount:                   decimal.RequireFromString(strings.TrimSpace(req.Amount)),
		Description:              req.Description,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, []TransactionResponse{
		toTransactionResponse(outgoing),
		toTransactionResponse(incoming),
	})
}

// ListTransactions accepts optional type, start_date and end_date query
// parameters; the date range only applies when both dates are given.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, appErr := parseFilter(r)
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	transactions, err := h.transactionService.ListTransactions(r.Context(), mux.Vars(r)["account_number"], filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		response = append(response, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, appErr := int64Var(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	tx, err := h.transactionService.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func parseFilter(r *http.Request) (domain.TransactionFilter, *errors.AppError) {
	var filter domain.TransactionFilter
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		txType := domain.TransactionType(strings.ToUpper(raw))
		filter.Type = &txType
	}

	rawStart := strings.TrimSpace(query.Get("start_date"))
	rawEnd := strings.TrimSpace(query.Get("end_date"))
	if rawStart == "" && rawEnd == "" {
		return filter, nil
	}
	if rawStart == "" || rawEnd == "" {
		return filter, errors.NewAppError(errors.InvalidInput, "start_date and end_date must be given together")
	}

	start, err := time.Parse(dateLayout, rawStart)
	if err != nil {
		return filter, errors.NewAppError(errors.InvalidInput, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, rawEnd)
	if err != nil {
		return filter, errors.NewAppError(errors.InvalidInput, "invalid end_date, expected YYYY-MM-DD")
	}

	filter.Range = &domain.DateRange{Start: start, End: end}
	return filter, nil
}
