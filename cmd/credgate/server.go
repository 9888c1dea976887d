package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	goCred "github.com/MrEthical07/goCred"
	"github.com/MrEthical07/goCred/internal/config"
	"github.com/MrEthical07/goCred/middleware"
	promexport "github.com/MrEthical07/goCred/metrics/export/prometheus"
)

const maxBodyBytes = 1 << 16

type server struct {
	engine *goCred.Engine
	logger *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type validateRequest struct {
	Password string `json:"password"`
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
}

func newRouter(engine *goCred.Engine, s *config.Settings, logger *zap.Logger) http.Handler {
	srv := &server{engine: engine, logger: logger.Named("http")}
	lockoutWindow := engine.Config().Attempts.LockoutDuration

	r := mux.NewRouter()
	r.Use(middleware.ClientIP(s.HTTP.TrustForwarded))

	api := r.PathPrefix("/api/auth").Subrouter()
	api.Handle("/login",
		middleware.Lockout(engine, middleware.WithRetryAfter(lockoutWindow))(http.HandlerFunc(srv.login)),
	).Methods(http.MethodPost)
	api.HandleFunc("/password/validate", srv.validatePassword).Methods(http.MethodPost)
	if s.Admin.Key != "" {
		api.Handle("/attempts/{identifier}",
			middleware.RequireBearer(s.Admin.Key)(http.HandlerFunc(srv.resetAttempts)),
		).Methods(http.MethodDelete)
	}

	if s.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(promexport.NewCollector(engine))
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return r
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := s.engine.LoginWithResult(r.Context(), goCred.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res.Identity)
	case errors.Is(err, goCred.ErrLoginLocked):
		w.Header().Set("Retry-After", strconv.Itoa(int(s.engine.Config().Attempts.LockoutDuration.Seconds())))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many failed login attempts"})
	case errors.Is(err, goCred.ErrInvalidCredentials):
		resp := errorResponse{Error: "invalid email or password"}
		if res != nil {
			remaining := res.Remaining
			resp.Remaining = &remaining
		}
		writeJSON(w, http.StatusUnauthorized, resp)
	case errors.Is(err, goCred.ErrLimiterUnavailable):
		s.logger.Error("attempt store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	default:
		s.logger.Error("login failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func (s *server) validatePassword(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result := s.engine.ValidatePassword(req.Password, goCred.PasswordPolicy{})
	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: result.Valid, Errors: errs})
}

func (s *server) resetAttempts(w http.ResponseWriter, r *http.Request) {
	identifier := mux.Vars(r)["identifier"]
	err := s.engine.ResetAttempts(r.Context(), identifier)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, goCred.ErrEmptyIdentifier):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "identifier required"})
	default:
		s.logger.Error("reset attempts", zap.String("identifier", identifier), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "service unavailable"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
