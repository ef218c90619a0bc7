package lookup

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

type LookupRequest struct {
	Entities []Entity       `json:"entities"`
	Options  map[string]any `json:"options,omitempty"`
}

type LookupResponse struct {
	Results []LookupResult `json:"results"`
}

type DetailsRequest struct {
	Entity  Entity         `json:"entity"`
	Data    *Data          `json:"data"`
	Options map[string]any `json:"options,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type handler struct {
	integration *Integration
	logger      *zap.Logger
}

// NewRouter exposes DoLookup and OnDetails over HTTP.
func NewRouter(integration *Integration, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{integration: integration, logger: logger.Named("http")}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Post("/lookup", h.lookup)
	r.Post("/details", h.details)
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	entities := make([]Entity, 0, len(req.Entities))
	for _, e := range req.Entities {
		entity, err := ParseEntity(e.Value)
		if err != nil {
			h.badRequest(w, r, err.Error())
			return
		}
		entities = append(entities, entity)
	}

	results, err := h.integration.DoLookup(r.Context(), entities)
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	render.JSON(w, r, LookupResponse{Results: results})
}

func (h *handler) details(w http.ResponseWriter, r *http.Request) {
	var req DetailsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}
	entity, err := ParseEntity(req.Entity.Value)
	if err != nil {
		h.badRequest(w, r, err.Error())
		return
	}

	result := &LookupResult{Entity: entity, Data: req.Data}
	data, err := h.integration.OnDetails(r.Context(), result)
	if errors.Is(err, ErrNoData) {
		h.badRequest(w, r, err.Error())
		return
	}
	if err != nil {
		h.upstreamError(w, r, err)
		return
	}
	render.JSON(w, r, data)
}

func (h *handler) badRequest(w http.ResponseWriter, r *http.Request, detail string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: "bad_request", Detail: detail})
}

func (h *handler) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: "internal", Detail: err.Error()}
	status := http.StatusInternalServerError

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		resp = ErrorResponse{Error: string(reqErr.Kind), Detail: reqErr.Detail}
		status = http.StatusBadGateway
	}
	h.logger.Warn("Request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	render.Status(r, status)
	render.JSON(w, r, resp)
}
