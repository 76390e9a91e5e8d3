// Package httpapi exposes the service over JSON HTTP. Responses share one
// envelope: {"status": bool, "message": string, ...payload}.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tokoku/backend/internal/domain"
	"tokoku/backend/internal/service"
	"tokoku/backend/internal/store"
)

type API struct {
	service       *service.Service
	mux           *http.ServeMux
	allowedOrigin string
	limiter       *attemptLimiter
}

func New(svc *service.Service, allowedOrigin string) *API {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	api := &API{
		service:       svc,
		mux:           http.NewServeMux(),
		allowedOrigin: allowedOrigin,
		limiter:       newAttemptLimiter(10, time.Minute),
	}
	api.routes()
	return api
}

func (a *API) Handler() http.Handler {
	return a.withMiddleware(a.mux)
}

func (a *API) routes() {
	a.mux.HandleFunc("/healthz", a.handleHealth)
	a.mux.HandleFunc("/api/v1/users/register", a.handleRegister)
	a.mux.HandleFunc("/api/v1/users/login", a.handleLogin)
	a.mux.HandleFunc("/api/v1/stores", a.handleStores)
	a.mux.HandleFunc("/api/v1/stocks/receive", a.handleReceiveStock)
	a.mux.HandleFunc("/api/v1/stocks/export", a.handleExportStock)
	a.mux.HandleFunc("/api/v1/stocks", a.handleStocks)
	a.mux.HandleFunc("/api/v1/stocks/", a.handleStockByID)
	a.mux.HandleFunc("/api/v1/sales", a.handleSales)
	a.mux.HandleFunc("/api/v1/sales/summary", a.handleSalesSummary)
	a.mux.HandleFunc("/api/v1/audit-logs", a.handleAuditLogs)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": "ok"})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.limiter.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many attempts, try again later"))
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			writeError(w, http.StatusConflict, errors.New("email already registered"))
			return
		}
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  true,
		"message": "user registered",
		"user":    user,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.limiter.allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many attempts, try again later"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.Login(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.limiter.reset(clientKey(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "login successful",
		"user":    user,
	})
}

func (a *API) handleStores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req domain.CreateStoreRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		created, err := a.service.CreateStore(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":  true,
			"message": "store created",
			"store":   created,
		})
	case http.MethodGet:
		stores, err := a.service.ListStores(r.Context(), r.URL.Query().Get("user_id"))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": fmt.Sprintf("%d store(s)", len(stores)),
			"stores":  stores,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleReceiveStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ReceiveStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.service.ReceiveStock(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	message := "stock merged into existing entry"
	if resp.Action == "created" {
		status = http.StatusCreated
		message = "stock entry created"
	}
	payload := map[string]any{
		"status":        true,
		"message":       message,
		"action":        resp.Action,
		"stock_data":    resp.Stock,
		"purchase_info": resp.PurchaseInfo,
		"selling_info":  resp.SellingInfo,
		"statistics":    resp.Statistics,
	}
	if resp.BusinessAnalysis != nil {
		payload["business_analysis"] = resp.BusinessAnalysis
	}
	if resp.MergeDetails != nil {
		payload["merge_details"] = resp.MergeDetails
	}
	if resp.Warning != nil {
		payload["warning"] = resp.Warning
	}
	writeJSON(w, status, payload)
}

func (a *API) handleStocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	items, err := a.service.ListStock(r.Context(), r.URL.Query().Get("user_id"), r.URL.Query().Get("store_id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": fmt.Sprintf("%d stock entr(ies)", len(items)),
		"stocks":  items,
	})
}

func (a *API) handleExportStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	payload, filename, err := a.service.ExportStock(r.Context(), r.URL.Query().Get("user_id"), r.URL.Query().Get("store_id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (a *API) handleStockByID(w http.ResponseWriter, r *http.Request) {
	stockID := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/stocks/"), "/"))
	if stockID == "" || strings.Contains(stockID, "/") {
		writeError(w, http.StatusBadRequest, errors.New("invalid stock path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := a.service.GetStock(r.Context(), r.URL.Query().Get("user_id"), stockID)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": "stock entry",
			"stock":   item,
		})
	case http.MethodPatch:
		var req domain.EditStockRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		item, err := a.service.EditStock(r.Context(), stockID, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": "stock entry updated",
			"stock":   item,
		})
	case http.MethodDelete:
		userID := r.URL.Query().Get("user_id")
		if err := a.service.DeleteStock(r.Context(), userID, stockID); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": "stock entry deleted",
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req domain.CreateSaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		resp, err := a.service.CreateSale(r.Context(), req)
		if err != nil {
			var verr *service.SaleValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"status":  false,
					"message": verr.Error(),
					"errors":  verr.Lines,
				})
				return
			}
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":           true,
			"message":          "sale recorded",
			"transaction_data": resp,
		})
	case http.MethodGet:
		limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
		records, err := a.service.ListSales(r.Context(), r.URL.Query().Get("user_id"), r.URL.Query().Get("store_id"), limit)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  true,
			"message": fmt.Sprintf("%d sale record(s)", len(records)),
			"sales":   records,
		})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	summary, err := a.service.SalesSummary(r.Context(), r.URL.Query().Get("user_id"), r.URL.Query().Get("store_id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": "sales summary",
		"summary": summary,
	})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)
	logs, err := a.service.ListAuditLogs(r.Context(), r.URL.Query().Get("user_id"), r.URL.Query().Get("store_id"), limit)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  true,
		"message": fmt.Sprintf("%d audit log(s)", len(logs)),
		"logs":    logs,
	})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// writeServiceError maps sentinel errors to HTTP statuses. Anything
// unrecognized is treated as a storage failure.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrAccessDenied):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, store.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrConcurrency):
		writeError(w, http.StatusConflict, errors.New("stock is being updated by another transaction, retry"))
	case errors.Is(err, store.ErrDuplicate):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func clientKey(r *http.Request) string {
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx details stay in the server log; clients get a generic message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"status":  false,
		"message": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
