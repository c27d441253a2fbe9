package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"banking-ledger/internal/config"
	"banking-ledger/internal/domain"
	"banking-ledger/internal/handler"
	"banking-ledger/internal/repository"
	"banking-ledger/internal/repository/memory"
	"banking-ledger/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string
}

// NewServer wires the store selected by cfg into services, handlers and routes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, db, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	customerService := service.NewCustomerService(store, logger)
	accountService := service.NewAccountService(store, logger)
	transactionService := service.NewTransactionService(store, logger)

	customerHandler := handler.NewCustomerHandler(customerService)
	accountHandler := handler.NewAccountHandler(accountService)
	transactionHandler := handler.NewTransactionHandler(transactionService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/customers", customerHandler.CreateCustomer).Methods(http.MethodPost)
	api.HandleFunc("/customers/{customer_id}", customerHandler.GetCustomer).Methods(http.MethodGet)
	api.HandleFunc("/customers/{customer_id}/accounts", accountHandler.ListCustomerAccounts).Methods(http.MethodGet)

	api.HandleFunc("/accounts", accountHandler.ListAccounts).Methods(http.MethodGet)
	api.HandleFunc("/accounts", accountHandler.CreateAccount).Methods(http.MethodPost)
	api.HandleFunc("/accounts/{account_number}", accountHandler.GetAccount).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_number}/balance", accountHandler.GetBalance).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_number}/transactions", transactionHandler.ListTransactions).Methods(http.MethodGet)
	api.HandleFunc("/accounts/{account_number}/suspend", accountHandler.SuspendAccount).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{account_number}/activate", accountHandler.ActivateAccount).Methods(http.MethodPut)
	api.HandleFunc("/accounts/{account_number}/close", accountHandler.CloseAccount).Methods(http.MethodPut)

	api.HandleFunc("/transactions/deposit", transactionHandler.Deposit).Methods(http.MethodPost)
	api.HandleFunc("/transactions/withdraw", transactionHandler.Withdraw).Methods(http.MethodPost)
	api.HandleFunc("/transactions/transfer", transactionHandler.Transfer).Methods(http.MethodPost)
	api.HandleFunc("/transactions/{id:[0-9]+}", transactionHandler.GetTransaction).Methods(http.MethodGet)

	router.HandleFunc("/health", healthHandler(db)).Methods(http.MethodGet)

	return &Server{
		router: router,
		db:     db,
		logger: logger,
	}, nil
}

// openStore returns the unit of work for cfg.StoreDriver. db is nil for the memory store.
func openStore(cfg *config.Config, logger *slog.Logger) (domain.Store, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Info("Using in-memory store")
		return memory.NewStore(logger), nil, nil
	}

	dsn := cfg.GetDBConnectionString()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := repository.Connect(ctx, dsn, cfg.DBConnectRetries, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DBAutoMigrate {
		if err := repository.RunMigrations(dsn, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	return repository.NewStore(db, logger), db, nil
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.statusCode >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on port and serves in the background. Port "0" picks a free port.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop shuts the HTTP server down, then closes the database pool.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func (s *Server) GetPort() string {
	return s.port
}

func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger builds the process logger. Port "0" is the test setup and logs nowhere.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	server, err := NewServer(cfg, NewLogger(cfg))
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
