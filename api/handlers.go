/*
handlers.go - HTTP API handlers for the cash-flow forecast

PURPOSE:
  Exposes account and transaction management plus balance projections
  over REST. Handlers parse and validate input at the boundary, load a
  snapshot through the projection engine and serialize the result.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                      List accounts
    POST   /api/accounts                      Create account
    GET    /api/accounts/{id}                 Get account
    PUT    /api/accounts/{id}                 Update account
    DELETE /api/accounts/{id}                 Delete account and its transactions
    GET    /api/accounts/{id}/projection      Projection for one account

  Transactions:
    GET    /api/transactions                  List (optional ?account_id)
    POST   /api/transactions                  Create (optional recurrence)
    GET    /api/transactions/{id}             Get
    DELETE /api/transactions/{id}             Delete
    GET    /api/transactions/{id}/occurrences Dates within ?start&end

  Projection:
    GET    /api/projection                    ?start&end[&account_id][&dense=true][&format=tsv]
    GET    /api/projection/lows               Lowest balance per account

  Forecast job:
    GET    /api/forecast/runs                 Run history
    POST   /api/forecast/run                  Run the low-balance check now

WINDOWS:
  start defaults to today, end to start + HorizonDays. Both inclusive.
  "Today" comes from Handler.Now; the forecast package never reads a clock.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: malformed input, invalid dates/rules/transactions, bad range
  - 404: unknown account or transaction
  - 409: create with an ID that already exists
  - 500: internal errors (logged)

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/cashflow-engine/factory"
	"github.com/warp/cashflow-engine/forecast"
	"github.com/warp/cashflow-engine/logger"
	"github.com/warp/cashflow-engine/store/sqlite"
)

// DefaultHorizonDays is the window length used when a request gives no end.
const DefaultHorizonDays = 90

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *forecast.ProjectionEngine
	Factory *factory.TransactionFactory

	// Scheduler backs POST /api/forecast/run. Optional.
	Scheduler *ForecastScheduler

	Now         func() time.Time
	HorizonDays int
	Threshold   decimal.Decimal

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:       store,
		Engine:      &forecast.ProjectionEngine{Store: store},
		Factory:     factory.NewTransactionFactory(),
		Now:         time.Now,
		HorizonDays: DefaultHorizonDays,
		Threshold:   decimal.Zero,
	}
}

func (h *Handler) today() forecast.LogicalDate {
	return forecast.DateOf(h.Now())
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns all accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Failed to list accounts", err)
		return
	}

	dtos := make([]AccountDTO, len(accounts))
	for i, a := range accounts {
		dtos[i] = h.Factory.AccountToJSON(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns a single account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := forecast.AccountID(chi.URLParam(r, "id"))

	account, err := h.Store.GetAccount(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.AccountToJSON(*account))
}

// CreateAccount creates a new account.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	account, err := h.Factory.AccountFromJSON(req)
	if err != nil {
		h.writeDomainError(w, r, "Invalid account", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.CreateAccount(ctx, account); err != nil {
		h.writeDomainError(w, r, "Failed to create account", err)
		return
	}

	log := logger.FromContext(ctx)
	log.Info().Str("account_id", req.ID).Msg("account created")
	writeJSON(w, http.StatusCreated, h.Factory.AccountToJSON(account))
}

// UpdateAccount replaces an existing account's name and opening balance.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()

	if _, err := h.Store.GetAccount(ctx, forecast.AccountID(id)); err != nil {
		h.writeDomainError(w, r, "Failed to get account", err)
		return
	}

	var req AccountDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req.ID = id

	account, err := h.Factory.AccountFromJSON(req)
	if err != nil {
		h.writeDomainError(w, r, "Invalid account", err)
		return
	}
	if err := h.Store.SaveAccount(ctx, account); err != nil {
		h.writeDomainError(w, r, "Failed to update account", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Factory.AccountToJSON(account))
}

// DeleteAccount removes an account and every transaction touching it.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := forecast.AccountID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteAccount(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete account", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": string(id)})
}

// GetAccountProjection projects a single account.
// GET /api/accounts/{id}/projection?start&end[&dense=true][&format=tsv]
func (h *Handler) GetAccountProjection(w http.ResponseWriter, r *http.Request) {
	id := forecast.AccountID(chi.URLParam(r, "id"))
	h.writeProjection(w, r, &id)
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns all transactions, or those touching ?account_id.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		txs []forecast.Transaction
		err error
	)
	if accountID := r.URL.Query().Get("account_id"); accountID != "" {
		txs, err = h.Store.ListTransactionsByAccount(ctx, forecast.AccountID(accountID))
	} else {
		txs, err = h.Store.ListTransactions(ctx)
	}
	if err != nil {
		h.writeDomainError(w, r, "Failed to list transactions", err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(h.Factory, tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTransaction returns a single transaction.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := forecast.TransactionID(chi.URLParam(r, "id"))

	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(h.Factory, *tx))
}

// CreateTransaction creates a one-time or recurring transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	tx, err := h.Factory.TransactionFromJSON(req)
	if err != nil {
		h.writeDomainError(w, r, "Invalid transaction", err)
		return
	}

	ctx := r.Context()
	if err := h.Store.CreateTransaction(ctx, tx); err != nil {
		if errors.Is(err, forecast.ErrAccountNotFound) {
			err = &forecast.TransactionError{ID: tx.ID, Reason: "references an unknown account", Err: err}
		}
		h.writeDomainError(w, r, "Failed to create transaction", err)
		return
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("transaction_id", string(tx.ID)).
		Bool("recurring", tx.IsRecurring()).
		Msg("transaction created")
	writeJSON(w, http.StatusCreated, toTransactionDTO(h.Factory, tx))
}

// DeleteTransaction removes a transaction.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := forecast.TransactionID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteTransaction(r.Context(), id); err != nil {
		h.writeDomainError(w, r, "Failed to delete transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": string(id)})
}

// GetOccurrences lists the nominal dates of a transaction inside the window,
// with the matching effective (settled) dates.
// GET /api/transactions/{id}/occurrences?start&end
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	id := forecast.TransactionID(chi.URLParam(r, "id"))

	tx, err := h.Store.GetTransaction(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get transaction", err)
		return
	}
	window, err := h.parseWindow(r)
	if err != nil {
		h.writeDomainError(w, r, "Invalid window", err)
		return
	}

	var dates []forecast.LogicalDate
	if tx.IsRecurring() {
		dates, err = forecast.GenerateOccurrences(*tx.Recurrence, tx.Date, window.Start, window.End)
		if err != nil {
			h.writeDomainError(w, r, "Failed to expand recurrence", err)
			return
		}
	} else if window.Contains(tx.Date) {
		dates = []forecast.LogicalDate{tx.Date}
	}

	resp := OccurrencesResponse{
		TransactionID:  string(tx.ID),
		Start:          window.Start.String(),
		End:            window.End.String(),
		Dates:          make([]string, len(dates)),
		EffectiveDates: make([]string, len(dates)),
	}
	for i, d := range dates {
		resp.Dates[i] = d.String()
		resp.EffectiveDates[i] = d.AddDays(tx.SettlementDays).String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// PROJECTION HANDLERS
// =============================================================================

// GetProjection projects all accounts, or ?account_id.
// GET /api/projection?start&end[&account_id][&dense=true][&format=tsv]
func (h *Handler) GetProjection(w http.ResponseWriter, r *http.Request) {
	var accountID *forecast.AccountID
	if id := r.URL.Query().Get("account_id"); id != "" {
		aid := forecast.AccountID(id)
		accountID = &aid
	}
	h.writeProjection(w, r, accountID)
}

func (h *Handler) writeProjection(w http.ResponseWriter, r *http.Request, accountID *forecast.AccountID) {
	window, err := h.parseWindow(r)
	if err != nil {
		h.writeDomainError(w, r, "Invalid window", err)
		return
	}

	points, err := h.Engine.Project(r.Context(), accountID, window)
	if err != nil {
		h.writeDomainError(w, r, "Failed to project balances", err)
		return
	}

	q := r.URL.Query()
	dense := q.Get("dense") == "true"
	if dense {
		points = forecast.DailySeries(points, window)
	}

	if q.Get("format") == "tsv" {
		w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := factory.WriteProjectionTSV(w, points); err != nil {
			log := logger.FromContext(r.Context())
			log.Error().Err(err).Msg("failed to write TSV")
		}
		return
	}

	resp := ProjectionResponse{
		Start:  window.Start.String(),
		End:    window.End.String(),
		Dense:  dense,
		Points: toPointDTOs(points),
	}
	if accountID != nil {
		resp.AccountID = string(*accountID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetLowestBalances reports each account's lowest projected balance.
// GET /api/projection/lows?start&end
func (h *Handler) GetLowestBalances(w http.ResponseWriter, r *http.Request) {
	window, err := h.parseWindow(r)
	if err != nil {
		h.writeDomainError(w, r, "Invalid window", err)
		return
	}

	points, err := h.Engine.Project(r.Context(), nil, window)
	if err != nil {
		h.writeDomainError(w, r, "Failed to project balances", err)
		return
	}

	writeJSON(w, http.StatusOK, LowsResponse{
		Start:     window.Start.String(),
		End:       window.End.String(),
		Threshold: h.Threshold.String(),
		Lows:      toLowDTOs(forecast.LowestBalances(points), h.Threshold),
	})
}

// =============================================================================
// FORECAST JOB HANDLERS
// =============================================================================

// ListForecastRuns returns the low-balance job history, newest first.
// GET /api/forecast/runs[?limit=N]
func (h *Handler) ListForecastRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListForecastRuns(r.Context(), limit)
	if err != nil {
		h.writeDomainError(w, r, "Failed to get forecast runs", err)
		return
	}

	dtos := make([]ForecastRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toForecastRunDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": dtos})
}

// TriggerForecast runs the low-balance check immediately.
// POST /api/forecast/run
func (h *Handler) TriggerForecast(w http.ResponseWriter, r *http.Request) {
	if h.Scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "Forecast job is not configured", nil)
		return
	}

	run, err := h.Scheduler.RunNow(r.Context())
	if err != nil {
		h.writeDomainError(w, r, "Forecast run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toForecastRunDTO(run))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeDomainError(w, r, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Health reports whether the database is reachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// parseWindow reads ?start and ?end. start defaults to today and end to
// start + HorizonDays.
func (h *Handler) parseWindow(r *http.Request) (forecast.Window, error) {
	q := r.URL.Query()

	start := h.today()
	if s := q.Get("start"); s != "" {
		d, err := forecast.ParseDate(s)
		if err != nil {
			return forecast.Window{}, err
		}
		start = d
	}

	horizon := h.HorizonDays
	if horizon < 1 {
		horizon = DefaultHorizonDays
	}
	end := start.AddDays(horizon)
	if s := q.Get("end"); s != "" {
		d, err := forecast.ParseDate(s)
		if err != nil {
			return forecast.Window{}, err
		}
		end = d
	}

	return forecast.NewWindow(start, end)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps an error to its HTTP status. Server errors are logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case forecast.IsClientError(err), errors.Is(err, factory.ErrMalformed):
		status = http.StatusBadRequest
	case forecast.IsNotFound(err):
		status = http.StatusNotFound
	case forecast.IsConflict(err):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg(message)
	}
	writeError(w, status, message, err)
}
