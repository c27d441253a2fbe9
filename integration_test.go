package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"banking-ledger/internal/config"
	"banking-ledger/internal/server"
)

type IntegrationTestSuite struct {
	suite.Suite
	postgresContainer testcontainers.Container
	serverInstance    *server.Server
	baseURL           string
	client            *http.Client

	customerID int64
	alice      string
	bob        string
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type accountBody struct {
	AccountNumber string `json:"account_number"`
	Balance       string `json:"balance"`
	Status        string `json:"status"`
}

type transactionBody struct {
	ID                       int64   `json:"id"`
	TransactionReference     string  `json:"transaction_reference"`
	Type                     string  `json:"type"`
	Amount                   string  `json:"amount"`
	BalanceAfter             string  `json:"balance_after"`
	Description              string  `json:"description"`
	AccountNumber            string  `json:"account_number"`
	DestinationAccountNumber *string `json:"destination_account_number"`
}

func (suite *IntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	containerReq := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "banking_ledger",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "password",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	postgresContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: containerReq,
		Started:          true,
	})
	suite.Require().NoError(err, "start postgres container")
	suite.postgresContainer = postgresContainer

	host, err := postgresContainer.Host(ctx)
	suite.Require().NoError(err)
	mappedPort, err := postgresContainer.MappedPort(ctx, "5432")
	suite.Require().NoError(err)

	// the server applies the embedded migrations on startup
	cfg := &config.Config{
		DBHost:           host,
		DBPort:           mappedPort.Port(),
		DBUser:           "postgres",
		DBPassword:       "password",
		DBName:           "banking_ledger",
		DBSSLMode:        "disable",
		DBAutoMigrate:    true,
		DBConnectRetries: 10,
		ServerPort:       "0",
		StoreDriver:      config.StoreDriverPostgres,
	}

	serverInstance, port, err := server.StartServer(cfg)
	suite.Require().NoError(err, "start application server")
	suite.serverInstance = serverInstance
	suite.baseURL = "http://localhost:" + port
	suite.client = &http.Client{Timeout: 30 * time.Second}

	suite.Require().NoError(suite.waitForServerReady())
}

func (suite *IntegrationTestSuite) waitForServerReady() error {
	timeout := 30 * time.Second
	start := time.Now()

	for time.Since(start) < timeout {
		resp, err := http.Get(suite.baseURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("server not ready after %v", timeout)
}

func (suite *IntegrationTestSuite) TearDownSuite() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if suite.serverInstance != nil {
		suite.serverInstance.Stop(ctx)
	}
	if suite.postgresContainer != nil {
		testcontainers.TerminateContainer(suite.postgresContainer)
	}
}

// call sends body as JSON and decodes the envelope; data is decoded into out when given.
func (suite *IntegrationTestSuite) call(method, path string, body interface{}, out interface{}) (int, *envelope) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, suite.baseURL+path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := suite.client.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)

	var env envelope
	suite.Require().NoError(json.Unmarshal(raw, &env), "response: %s", raw)
	if out != nil && env.Data != nil {
		suite.Require().NoError(json.Unmarshal(env.Data, out), "response: %s", raw)
	}
	return resp.StatusCode, &env
}

func (suite *IntegrationTestSuite) assertErrorCode(env *envelope, code string) {
	if suite.NotNil(env.Error, "Response should have 'error' field for error cases") {
		suite.Equal(code, env.Error.Code)
	}
}

func (suite *IntegrationTestSuite) assertDecimalEqual(expected, actual string) {
	expectedDec, err := decimal.NewFromString(expected)
	suite.Require().NoError(err)
	actualDec, err := decimal.NewFromString(actual)
	suite.Require().NoError(err)

	assert.True(suite.T(), expectedDec.Equal(actualDec),
		"Decimal values not equal: expected %s, got %s", expected, actual)
}

func (suite *IntegrationTestSuite) balanceOf(accountNumber string) string {
	var account accountBody
	status, _ := suite.call(http.MethodGet, "/api/accounts/"+accountNumber, nil, &account)
	suite.Require().Equal(http.StatusOK, status)
	return account.Balance
}

func (suite *IntegrationTestSuite) openAccount(accountType, initialDeposit string) string {
	body := map[string]interface{}{
		"customer_id":  suite.customerID,
		"account_type": accountType,
	}
	if initialDeposit != "" {
		body["initial_deposit"] = initialDeposit
	}

	var account accountBody
	status, env := suite.call(http.MethodPost, "/api/accounts", body, &account)
	suite.Require().Equal(http.StatusCreated, status, "error: %+v", env.Error)
	return account.AccountNumber
}

// ------------------------------------------------------------------
// Steps run in the order TestFlow calls them; later steps depend on
// the balances left by earlier ones.
// ------------------------------------------------------------------

func (suite *IntegrationTestSuite) stepHealthCheck() {
	resp, err := suite.client.Get(suite.baseURL + "/health")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var health map[string]string
	suite.NoError(json.NewDecoder(resp.Body).Decode(&health))
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("healthy", health["status"])
}

func (suite *IntegrationTestSuite) stepCreateCustomer() {
	var customer struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	status, _ := suite.call(http.MethodPost, "/api/customers", map[string]string{
		"first_name": "Alice",
		"last_name":  "Smith",
		"email":      "Alice.Smith@example.com",
	}, &customer)
	suite.Require().Equal(http.StatusCreated, status)
	suite.Equal("alice.smith@example.com", customer.Email)
	suite.customerID = customer.ID

	status, env := suite.call(http.MethodPost, "/api/customers", map[string]string{
		"first_name": "Other",
		"last_name":  "Alice",
		"email":      "alice.smith@example.com",
	}, nil)
	suite.Equal(http.StatusConflict, status)
	suite.assertErrorCode(env, "duplicate_customer")
}

func (suite *IntegrationTestSuite) stepCreateAccounts() {
	suite.alice = suite.openAccount("SAVINGS", "1000.00")
	suite.bob = suite.openAccount("CURRENT", "500")

	var account accountBody
	status, _ := suite.call(http.MethodGet, "/api/accounts/"+suite.alice, nil, &account)
	suite.Equal(http.StatusOK, status)
	suite.Equal("1000.00", account.Balance)
	suite.Equal("ACTIVE", account.Status)
	suite.Regexp(`^ACC[0-9A-F]{16}$`, account.AccountNumber)

	var accounts []accountBody
	status, _ = suite.call(http.MethodGet, fmt.Sprintf("/api/customers/%d/accounts", suite.customerID), nil, &accounts)
	suite.Equal(http.StatusOK, status)
	suite.Len(accounts, 2)

	empty := suite.openAccount("SAVINGS", "")
	suite.Equal("0.00", suite.balanceOf(empty))
}

func (suite *IntegrationTestSuite) stepInsufficientBalance() {
	status, env := suite.call(http.MethodPost, "/api/transactions/withdraw", map[string]string{
		"account_number": suite.alice,
		"amount":         "5000",
	}, nil)
	suite.Equal(http.StatusUnprocessableEntity, status)
	suite.assertErrorCode(env, "insufficient_balance")
	suite.assertDecimalEqual("1000.00", suite.balanceOf(suite.alice))
}

func (suite *IntegrationTestSuite) stepTransfer() {
	var entries []transactionBody
	status, env := suite.call(http.MethodPost, "/api/transactions/transfer", map[string]string{
		"from_account_number": suite.alice,
		"to_account_number":   suite.bob,
		"amount":              "200",
		"description":         "Rent",
	}, &entries)
	suite.Require().Equal(http.StatusCreated, status, "error: %+v", env.Error)
	suite.Require().Len(entries, 2)

	outgoing, incoming := entries[0], entries[1]
	suite.Equal(suite.alice, outgoing.AccountNumber)
	suite.Equal("Rent to "+suite.bob, outgoing.Description)
	suite.Equal("800.00", outgoing.BalanceAfter)
	if suite.NotNil(outgoing.DestinationAccountNumber) {
		suite.Equal(suite.bob, *outgoing.DestinationAccountNumber)
	}

	suite.Equal(suite.bob, incoming.AccountNumber)
	suite.Equal("Rent from "+suite.alice, incoming.Description)
	suite.Equal("700.00", incoming.BalanceAfter)
	if suite.NotNil(incoming.DestinationAccountNumber) {
		suite.Equal(suite.alice, *incoming.DestinationAccountNumber)
	}

	suite.NotEqual(outgoing.TransactionReference, incoming.TransactionReference)
	suite.assertDecimalEqual("800.00", suite.balanceOf(suite.alice))
	suite.assertDecimalEqual("700.00", suite.balanceOf(suite.bob))

	var fetched transactionBody
	status, _ = suite.call(http.MethodGet, fmt.Sprintf("/api/transactions/%d", outgoing.ID), nil, &fetched)
	suite.Equal(http.StatusOK, status)
	suite.Equal(outgoing.TransactionReference, fetched.TransactionReference)
}

func (suite *IntegrationTestSuite) stepRejectedTransfers() {
	status, env := suite.call(http.MethodPost, "/api/transactions/transfer", map[string]string{
		"from_account_number": suite.alice,
		"to_account_number":   suite.alice,
		"amount":              "10",
	}, nil)
	suite.Equal(http.StatusBadRequest, status)
	suite.assertErrorCode(env, "same_account_transfer")

	for _, amount := range []string{"0", "-100.00", "1.001"} {
		status, env = suite.call(http.MethodPost, "/api/transactions/transfer", map[string]string{
			"from_account_number": suite.alice,
			"to_account_number":   suite.bob,
			"amount":              amount,
		}, nil)
		suite.Equal(http.StatusBadRequest, status, amount)
		suite.assertErrorCode(env, "invalid_amount")
	}

	status, env = suite.call(http.MethodPost, "/api/transactions/transfer", map[string]string{
		"from_account_number": suite.alice,
		"to_account_number":   "ACC0000000000000000",
		"amount":              "10",
	}, nil)
	suite.Equal(http.StatusNotFound, status)
	suite.assertErrorCode(env, "account_not_found")

	suite.assertDecimalEqual("800.00", suite.balanceOf(suite.alice))
	suite.assertDecimalEqual("700.00", suite.balanceOf(suite.bob))
}

// postStatus is safe to use from goroutines; it reports only the status code.
func (suite *IntegrationTestSuite) postStatus(path string, body interface{}) int {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0
	}
	resp, err := suite.client.Post(suite.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func (suite *IntegrationTestSuite) stepConcurrentTransfers() {
	const rounds = 20

	statuses := make(chan int, 2*rounds)
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			statuses <- suite.postStatus("/api/transactions/transfer", map[string]string{
				"from_account_number": suite.alice,
				"to_account_number":   suite.bob,
				"amount":              "5",
			})
		}()
		go func() {
			defer wg.Done()
			statuses <- suite.postStatus("/api/transactions/transfer", map[string]string{
				"from_account_number": suite.bob,
				"to_account_number":   suite.alice,
				"amount":              "5",
			})
		}()
	}
	wg.Wait()
	close(statuses)

	for status := range statuses {
		suite.Equal(http.StatusCreated, status)
	}

	// both directions moved the same total
	suite.assertDecimalEqual("800.00", suite.balanceOf(suite.alice))
	suite.assertDecimalEqual("700.00", suite.balanceOf(suite.bob))
}

func (suite *IntegrationTestSuite) stepHistory() {
	var history []transactionBody
	status, _ := suite.call(http.MethodGet, "/api/accounts/"+suite.bob+"/transactions?type=transfer", nil, &history)
	suite.Require().Equal(http.StatusOK, status)
	suite.Len(history, 1+2*20)
	for _, tx := range history {
		suite.Equal("TRANSFER", tx.Type)
	}

	today := time.Now().UTC().Format("2006-01-02")
	status, _ = suite.call(http.MethodGet, "/api/accounts/"+suite.bob+"/transactions?start_date="+today+"&end_date="+today, nil, &history)
	suite.Equal(http.StatusOK, status)
	suite.NotEmpty(history)

	status, env := suite.call(http.MethodGet, "/api/accounts/"+suite.bob+"/transactions?start_date="+today, nil, nil)
	suite.Equal(http.StatusBadRequest, status)
	suite.assertErrorCode(env, "invalid_input")
}

func (suite *IntegrationTestSuite) stepAccountLifecycle() {
	var account accountBody
	status, _ := suite.call(http.MethodPut, "/api/accounts/"+suite.bob+"/suspend", nil, &account)
	suite.Equal(http.StatusOK, status)
	suite.Equal("SUSPENDED", account.Status)

	status, env := suite.call(http.MethodPost, "/api/transactions/deposit", map[string]string{
		"account_number": suite.bob,
		"amount":         "100",
	}, nil)
	suite.Equal(http.StatusBadRequest, status)
	suite.assertErrorCode(env, "account_not_active")

	status, _ = suite.call(http.MethodPut, "/api/accounts/"+suite.bob+"/activate", nil, &account)
	suite.Equal(http.StatusOK, status)
	suite.Equal("ACTIVE", account.Status)

	status, env = suite.call(http.MethodPut, "/api/accounts/"+suite.bob+"/close", nil, nil)
	suite.Equal(http.StatusBadRequest, status)
	suite.assertErrorCode(env, "non_zero_balance")

	status, _ = suite.call(http.MethodPost, "/api/transactions/withdraw", map[string]string{
		"account_number": suite.bob,
		"amount":         "700",
	}, nil)
	suite.Equal(http.StatusCreated, status)

	status, _ = suite.call(http.MethodPut, "/api/accounts/"+suite.bob+"/close", nil, &account)
	suite.Equal(http.StatusOK, status)
	suite.Equal("CLOSED", account.Status)

	status, env = suite.call(http.MethodPut, "/api/accounts/"+suite.bob+"/activate", nil, nil)
	suite.Equal(http.StatusBadRequest, status)
	suite.assertErrorCode(env, "account_closed")
}

func (suite *IntegrationTestSuite) stepNotFound() {
	status, env := suite.call(http.MethodGet, "/api/accounts/ACC0000000000000000", nil, nil)
	suite.Equal(http.StatusNotFound, status)
	suite.assertErrorCode(env, "account_not_found")

	status, env = suite.call(http.MethodGet, "/api/transactions/999999", nil, nil)
	suite.Equal(http.StatusNotFound, status)
	suite.assertErrorCode(env, "transaction_not_found")

	status, env = suite.call(http.MethodGet, "/api/customers/999999/accounts", nil, nil)
	suite.Equal(http.StatusNotFound, status)
	suite.assertErrorCode(env, "customer_not_found")
}

func (suite *IntegrationTestSuite) TestFlow() {
	suite.stepHealthCheck()
	suite.stepCreateCustomer()
	suite.stepCreateAccounts()
	suite.stepInsufficientBalance()
	suite.stepTransfer()
	suite.stepRejectedTransfers()
	suite.stepConcurrentTransfers()
	suite.stepHistory()
	suite.stepAccountLifecycle()
	suite.stepNotFound()
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(IntegrationTestSuite))
}
