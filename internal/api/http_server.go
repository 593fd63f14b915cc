package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

// Server agrupa deps para la capa HTTP.
type Server struct {
	svc     *application.Service
	log     *logger.Logger
	origins []string
}

func NewServer(svc *application.Service) *Server {
	return &Server{svc: svc, log: logger.Named("http")}
}

// WithCORS allows browser calls from the given origins. No origins, no CORS.
func (s *Server) WithCORS(origins []string) *Server {
	s.origins = origins
	return s
}

// Routes builds the admin router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}
	r.Use(s.requestLog)

	r.Get("/health", s.handleHealth)
	r.Get("/swagger.json", s.handleSwaggerJson)

	r.Route("/api", func(r chi.Router) {
		r.Get("/queue", s.handleQueueStats)
		r.Post("/queue/flush", s.handleQueueFlush)
		r.Delete("/queue", s.handleQueueCancel)
		r.Get("/pending/{kind}", s.handlePendingCount)

		r.Post("/sync/run", s.handleRunPass)
		r.Get("/sync/status", s.handleCronStatus)
		r.Post("/sync/orders", s.handleForceSyncOrders)
		r.Post("/sync/skus", s.handleSKUSync)
		r.Post("/orders/{orderID}/enqueue", s.handleEnqueueOrder)
		r.Get("/orders/sync-status", s.handleOrderSyncStatus)
		r.Post("/products/{productID}/resync", s.handleResyncProduct)

		r.Post("/categories/sync", s.handleCategorySync)
		r.Post("/categories/assignments", s.handleCategoryAssignments)

		r.Get("/jobs/{name}", s.handleJobStatus)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})
	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type countResponse struct {
	Kind  domain.SyncKind `json:"kind,omitempty"`
	Count int             `json:"count"`
}

type skuSyncRequest struct {
	Skus string `json:"skus" validate:"required"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetQueueStats(r.Context())
	if err != nil {
		s.internalError(w, "GetQueueStats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleQueueFlush(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.FlushQueueNow(r.Context())
	if err != nil {
		s.internalError(w, "FlushQueueNow", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQueueCancel(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.CancelQueue(r.Context())
	if err != nil {
		s.internalError(w, "CancelQueue", err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (s *Server) handlePendingCount(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseSyncKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	n, err := s.svc.GetPendingCount(r.Context(), kind)
	if err != nil {
		s.internalError(w, "GetPendingCount", err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Kind: kind, Count: n})
}

func (s *Server) handleRunPass(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.RunScheduledPass(r.Context())
	if err != nil {
		s.internalError(w, "RunScheduledPass", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCronStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.CronStatus(r.Context())
	if err != nil {
		s.internalError(w, "CronStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleForceSyncOrders(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.QueueForceSyncLastOrders(r.Context())
	if err != nil {
		s.internalError(w, "QueueForceSyncLastOrders", err)
		return
	}
	writeManual(w, res)
}

func (s *Server) handleSKUSync(w http.ResponseWriter, r *http.Request) {
	var req skuSyncRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.svc.QueueSKUSync(r.Context(), req.Skus)
	if err != nil {
		s.internalError(w, "QueueSKUSync", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEnqueueOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "orderID is invalid"})
		return
	}
	n, err := s.svc.EnqueueOrderProducts(r.Context(), orderID)
	if err != nil {
		s.internalError(w, "EnqueueOrderProducts", err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (s *Server) handleOrderSyncStatus(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	rep, err := s.svc.OrderSyncStatus(r.Context(), refresh)
	if err != nil {
		s.internalError(w, "OrderSyncStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleResyncProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "productID is invalid"})
		return
	}
	res, err := s.svc.ResyncProduct(r.Context(), productID)
	if err != nil {
		s.internalError(w, "ResyncProduct", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCategorySync(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.SyncAllCategories(r.Context())
	if err != nil {
		s.internalError(w, "SyncAllCategories", err)
		return
	}
	writeManual(w, res)
}

func (s *Server) handleCategoryAssignments(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.ForceUpdateProductCategories(r.Context())
	if err != nil {
		s.internalError(w, "ForceUpdateProductCategories", err)
		return
	}
	writeManual(w, res)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.JobStatus(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.internalError(w, "JobStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.Settings().Load(r.Context())
	if err != nil {
		s.internalError(w, "LoadSettings", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in application.SyncSettings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	if err := s.svc.Settings().Save(r.Context(), in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, validationResponse(verrs))
			return
		}
		s.internalError(w, "SaveSettings", err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

var validate = validator.New()

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, validationResponse(verrs))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}

func validationResponse(verrs validator.ValidationErrors) errorResponse {
	out := errorResponse{Error: "validation failed", Fields: map[string]string{}}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Error().Err(err).Str("op", op).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// precondition failures are still 200 with success=false
func writeManual(w http.ResponseWriter, res application.ManualResult) {
	status := http.StatusAccepted
	if !res.Success {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// Util para escribir JSON
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Named("http").Error().Err(err).Msg("writeJSON error")
	}
}

func (s *Server) handleSwaggerJson(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPISpec))
}
