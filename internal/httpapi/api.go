// CLAUDE:SUMMARY HTTP ingest/query surface — POST/GET /api/v1/logs with JWT developer identity, thin wrapper over the audit engine
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/devaudit/internal/auth"
	"github.com/hazyhaar/devaudit/pkg/audit"
)

// maxBodySize is the maximum HTTP body size for log ingestion.
const maxBodySize = 64 * 1024 // 64KB

type API struct {
	engine *audit.Engine
	auth   *auth.Auth
	logger *slog.Logger
}

func New(engine *audit.Engine, a *auth.Auth, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{engine: engine, auth: a, logger: logger}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/logs", a.handleCreateLog)
	mux.HandleFunc("GET /api/v1/logs", a.handleQueryLogs)
	mux.HandleFunc("GET /api/v1/healthz", a.handleHealthz)
}

// handleCreateLog enqueues one record. The developer identity comes from
// the bearer token, never from the body. Returns 202 — the write itself is
// asynchronous and a backend failure is observable on the engine's failure
// channel, not here.
// POST /api/v1/logs
//
//	{
//	  "action": "method_call|db_transaction|model_interaction",
//	  "model": "UserModel",
//	  "method": "update_user",
//	  "result": "success|failure",
//	  "error": {"kind": "...", "message": "...", "trace": "..."}
//	}
func (a *API) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	claims := a.auth.ExtractClaims(r)
	if claims == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Action string              `json:"action"`
		Model  string              `json:"model"`
		Method string              `json:"method"`
		Result string              `json:"result"`
		Error  *audit.ErrorPayload `json:"error"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Model == "" || req.Method == "" {
		jsonError(w, "model and method are required", http.StatusBadRequest)
		return
	}

	action := audit.Action(req.Action)
	if action == "" {
		action = audit.ActionMethodCall
	}
	switch action {
	case audit.ActionMethodCall, audit.ActionDBTransaction, audit.ActionModelInteraction:
	default:
		jsonError(w, "unknown action", http.StatusBadRequest)
		return
	}

	err := a.engine.Log(action, claims.DeveloperID, req.Model, req.Method, audit.Result(req.Result), req.Error)
	switch {
	case errors.Is(err, audit.ErrInvalidResult):
		jsonError(w, "result must be success or failure", http.StatusBadRequest)
	case errors.Is(err, audit.ErrAccessDenied):
		a.logger.Warn("unauthorized log attempt", "developer_id", claims.DeveloperID)
		jsonError(w, "developer not authorized", http.StatusForbidden)
	case errors.Is(err, audit.ErrEngineClosed):
		jsonError(w, "shutting down", http.StatusServiceUnavailable)
	case err != nil:
		jsonError(w, "internal error", http.StatusInternalServerError)
	default:
		jsonResp(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// handleQueryLogs returns records matching the query-param filter.
// GET /api/v1/logs?developer_id=&action=&model=&method=&result=
func (a *API) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	if a.auth.ExtractClaims(r) == nil {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		DeveloperID: q.Get("developer_id"),
		Action:      audit.Action(q.Get("action")),
		Model:       q.Get("model"),
		Method:      q.Get("method"),
		Result:      audit.Result(q.Get("result")),
	}

	logs, err := a.engine.GetLogs(r.Context(), filter)
	if err != nil {
		a.logger.Warn("log query failed", "error", err)
		jsonError(w, "storage backend unavailable", http.StatusServiceUnavailable)
		return
	}
	if logs == nil {
		logs = []audit.Record{}
	}
	jsonResp(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	jsonResp(w, http.StatusOK, map[string]bool{"ok": true})
}

// SecurityHeaders wraps a handler with standard security headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// --- Helpers ---

func jsonResp(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
