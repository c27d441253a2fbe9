package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

type CreateAccountRequest struct {
	CustomerID     int64  `json:"customer_id" validate:"required,gt=0"`
	AccountType    string `json:"account_type" validate:"required,oneof=SAVINGS CURRENT"`
	InitialDeposit string `json:"initial_deposit,omitempty" validate:"omitempty,max=40,decimal_amount"`
}

type AccountResponse struct {
	ID            int64     `json:"id"`
	AccountNumber string    `json:"account_number"`
	AccountType   string    `json:"account_type"`
	Balance       string    `json:"balance"`
	Status        string    `json:"status"`
	CustomerID    int64     `json:"customer_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type BalanceResponse struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            account.ID,
		AccountNumber: account.AccountNumber,
		AccountType:   string(account.AccountType),
		Balance:       account.Balance.StringFixed(2),
		Status:        string(account.Status),
		CustomerID:    account.CustomerID,
		CreatedAt:     account.CreatedAt,
	}
}

func toAccountResponses(accounts []*domain.Account) []AccountResponse {
	response := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		response = append(response, toAccountResponse(account))
	}
	return response
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if appErr := decodeJSON(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	createReq := service.CreateAccountRequest{
		CustomerID:  req.CustomerID,
		AccountType: domain.AccountType(req.AccountType),
	}
	if s := strings.TrimSpace(req.InitialDeposit); s != "" {
		// already checked by the decimal_amount rule
		initialDeposit := decimal.RequireFromString(s)
		createReq.InitialDeposit = &initialDeposit
	}

	account, err := h.accountService.CreateAccount(r.Context(), createReq)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.accountService.GetAccount(r.Context(), mux.Vars(r)["account_number"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["account_number"]

	balance, err := h.accountService.GetBalance(r.Context(), accountNumber)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		AccountNumber: accountNumber,
		Balance:       balance.StringFixed(2),
	})
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accountService.ListAccounts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

func (h *AccountHandler) ListCustomerAccounts(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := int64Var(r, "customer_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accounts, err := h.accountService.ListCustomerAccounts(r.Context(), customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponses(accounts))
}

func (h *AccountHandler) SuspendAccount(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.accountService.SuspendAccount)
}

func (h *AccountHandler) ActivateAccount(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.accountService.ActivateAccount)
}

func (h *AccountHandler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	h.changeStatus(w, r, h.accountService.CloseAccount)
}

func (h *AccountHandler) changeStatus(
	w http.ResponseWriter,
	r *http.Request,
	change func(ctx context.Context, accountNumber string) (*domain.Account, error),
) {
	account, err := change(r.Context(), mux.Vars(r)["account_number"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}
