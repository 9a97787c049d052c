package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stosh/internal/errs"
	"stosh/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels() ([]types.Model, error)
	Status() types.StatusResponse
	Ready() bool
	Compile(ctx context.Context, req types.CompileRequest) (types.SessionInfo, error)
	LoadData(ctx context.Context, id string, req types.LoadDataRequest) (types.SessionInfo, error)
	Sample(ctx context.Context, id string, params map[string]any) (types.SampleResponse, error)
	Get(id string) (types.SessionInfo, error)
	List() []types.SessionInfo
	CloseSession(id string) error
	Runs(ctx context.Context, sessionID string, limit int) ([]types.Run, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer, metrics
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(corsOptions()))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc}
	r.Get("/models", h.listModels)
	r.Get("/status", h.status)
	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.listSessions)
		r.Post("/", h.compile)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.closeSession)
			r.Post("/data", h.loadData)
			r.Post("/sample", h.sample)
		})
	})
	r.Get("/runs", h.listRuns)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func corsOptions() cors.Options {
	methods := corsAllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	}
	headers := corsAllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Content-Type", "X-Request-Id", "X-Log-Level"}
	}
	origins := corsAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}
}

type handlers struct {
	svc Service
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON enforces the JSON content type and body limit. An empty body
// decodes to the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return httpError{code: http.StatusUnsupportedMediaType, msg: "Content-Type must be application/json"}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		// size overflow is reported as a plain 400 to avoid leaking limits
		return httpError{code: http.StatusBadRequest, msg: "invalid JSON body"}
	}
	return nil
}

type httpError struct {
	code int
	msg  string
}

func (e httpError) Error() string   { return e.msg }
func (e httpError) StatusCode() int { return e.code }

// fail writes err, counts it, and closes the operation log.
func fail(w http.ResponseWriter, l *opLog, err error) {
	status := writeError(w, err)
	incrementAPIError(errs.Code(err))
	l.end(status, err)
}

// listModels godoc
// @Summary List model sources
// @Tags models
// @Produce json
// @Success 200 {object} types.ModelsResponse
// @Failure 500 {object} types.ErrorResponse
// @Router /models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

// status godoc
// @Summary Service status
// @Tags status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// listSessions godoc
// @Summary List sessions
// @Tags sessions
// @Produce json
// @Success 200 {object} types.SessionsResponse
// @Router /sessions [get]
func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.svc.List()
	if sessions == nil {
		sessions = []types.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, types.SessionsResponse{Sessions: sessions})
}

// compile godoc
// @Summary Compile a model and open a session
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body types.CompileRequest true "Compile request"
// @Success 201 {object} types.SessionInfo
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 422 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /sessions [post]
func (h *handlers) compile(w http.ResponseWriter, r *http.Request) {
	l := beginOp(r, "compile")
	var req types.CompileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, l, err)
		return
	}
	// Join server base context with request context so shutdown cancels builds too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	info, err := h.svc.Compile(ctx, req)
	if err != nil {
		fail(w, l, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
	l.end(http.StatusCreated, nil)
}

// getSession godoc
// @Summary Get a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} types.SessionInfo
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id} [get]
func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// closeSession godoc
// @Summary Close a session and release its native model
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} types.ErrorResponse
// @Router /sessions/{id} [delete]
func (h *handlers) closeSession(w http.ResponseWriter, r *http.Request) {
	l := beginOp(r, "close")
	if err := h.svc.CloseSession(chi.URLParam(r, "id")); err != nil {
		fail(w, l, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	l.end(http.StatusNoContent, nil)
}

// loadData godoc
// @Summary Load data into a session
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body types.LoadDataRequest true "Data request"
// @Success 200 {object} types.SessionInfo
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 422 {object} types.ErrorResponse
// @Router /sessions/{id}/data [post]
func (h *handlers) loadData(w http.ResponseWriter, r *http.Request) {
	l := beginOp(r, "load_data")
	var req types.LoadDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, l, err)
		return
	}
	info, err := h.svc.LoadData(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		fail(w, l, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
	l.end(http.StatusOK, nil)
}

// sample godoc
// @Summary Run the sampler
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body types.SampleRequest true "Sampler options"
// @Success 200 {object} types.SampleResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 409 {object} types.ErrorResponse
// @Failure 422 {object} types.ErrorResponse
// @Router /sessions/{id}/sample [post]
func (h *handlers) sample(w http.ResponseWriter, r *http.Request) {
	l := beginOp(r, "sample")
	var req types.SampleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, l, err)
		return
	}
	res, err := h.svc.Sample(r.Context(), chi.URLParam(r, "id"), req.Params)
	if err != nil {
		fail(w, l, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
	l.end(http.StatusOK, nil)
}

// listRuns godoc
// @Summary List recorded sampling runs
// @Tags runs
// @Produce json
// @Param session query string false "Filter by session ID"
// @Param limit query int false "Maximum runs to return"
// @Success 200 {object} types.RunsResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /runs [get]
func (h *handlers) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	runs, err := h.svc.Runs(r.Context(), r.URL.Query().Get("session"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []types.Run{}
	}
	writeJSON(w, http.StatusOK, types.RunsResponse{Runs: runs})
}
