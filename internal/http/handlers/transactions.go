package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hongminglow/paygate/internal/http/respond"
	"github.com/hongminglow/paygate/internal/ledger"
	"github.com/hongminglow/paygate/internal/middleware"
	"github.com/hongminglow/paygate/internal/models"
	"github.com/hongminglow/paygate/internal/models/dto"
	"github.com/hongminglow/paygate/internal/storage"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// TransactionHandler serves wallet transfers and history.
type TransactionHandler struct {
	engine *ledger.Engine
	ledger storage.LedgerStore
	guard  *middleware.Guard
	log    *zap.Logger
}

func NewTransactionHandler(engine *ledger.Engine, store storage.LedgerStore, guard *middleware.Guard, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{engine: engine, ledger: store, guard: guard, log: log}
}

func (h *TransactionHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /transactions/transfer", h.guard.Require(models.CapWallet, h.handleTransfer))
	mux.Handle("GET /transactions/balance", h.guard.Require(models.CapWallet, h.handleBalance))
	mux.Handle("GET /transactions", h.guard.Require(models.CapWallet, h.handleList))
	mux.Handle("GET /transactions/{id}", h.guard.Require(models.CapWallet, h.handleGet))
}

func (h *TransactionHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	var req dto.TransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ReceiverEmail) == "" || !req.Amount.IsPositive() {
		respond.Error(w, http.StatusBadRequest, "Please provide receiver email and a valid amount")
		return
	}
	tx, receiver, err := h.engine.Transfer(r.Context(), user.ID, req.ReceiverEmail, req.Amount, req.Description)
	if err != nil {
		writeError(w, h.log, "transfer", err)
		return
	}
	respond.JSON(w, http.StatusOK, "Transfer successful", dto.MovementResponse{
		TransactionID: tx.TransactionID,
		Amount:        tx.Amount,
		Receiver:      receiver.Summary(),
		Date:          tx.CreatedAt,
	})
}

func (h *TransactionHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	balance, err := h.ledger.Balance(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "balance", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", dto.BalanceResponse{Balance: balance})
}

func (h *TransactionHandler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	filter, msg := parseTransactionFilter(r, user.ID)
	if msg != "" {
		respond.Error(w, http.StatusBadRequest, msg)
		return
	}
	txs, total, err := h.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, "list transactions", err)
		return
	}
	pages := (total + filter.Limit - 1) / filter.Limit
	respond.JSON(w, http.StatusOK, "OK", dto.TransactionPage{
		Count: len(txs),
		Pagination: dto.Pagination{
			Total: total,
			Page:  filter.Page,
			Pages: pages,
			Limit: filter.Limit,
		},
		Transactions: txs,
	})
}

func (h *TransactionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	tx, err := h.ledger.FindTransaction(r.Context(), r.PathValue("id"), user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Transaction not found")
			return
		}
		writeError(w, h.log, "find transaction", err)
		return
	}
	respond.JSON(w, http.StatusOK, "OK", tx)
}

// parseTransactionFilter reads page, limit, type, status, startDate and
// endDate. Dates are RFC 3339 or YYYY-MM-DD; a bare endDate covers that whole day.
func parseTransactionFilter(r *http.Request, userID int64) (models.TransactionFilter, string) {
	q := r.URL.Query()
	filter := models.TransactionFilter{UserID: userID, Page: 1, Limit: defaultPageLimit}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, "page must be a positive integer"
		}
		filter.Page = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filter, "limit must be a positive integer"
		}
		filter.Limit = min(n, maxPageLimit)
	}
	if raw := q.Get("type"); raw != "" {
		t := models.TransactionType(raw)
		if !t.Valid() {
			return filter, "unknown transaction type"
		}
		filter.Type = t
	}
	if raw := q.Get("status"); raw != "" {
		filter.Status = models.TransactionStatus(raw)
	}
	if raw := q.Get("startDate"); raw != "" {
		t, _, err := parseDate(raw)
		if err != nil {
			return filter, "startDate must be a date"
		}
		filter.From = &t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, dayOnly, err := parseDate(raw)
		if err != nil {
			return filter, "endDate must be a date"
		}
		if dayOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		filter.To = &t
	}
	return filter, ""
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	return t, true, err
}
