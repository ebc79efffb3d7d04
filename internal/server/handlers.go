package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/felixgeelhaar/authflow/internal/errors"
	"github.com/felixgeelhaar/authflow/internal/health"
	"github.com/felixgeelhaar/authflow/internal/metrics"
)

const maxBodyBytes = 1 << 20

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	Message string   `json:"message,omitempty"`
	User    userView `json:"user"`
}

type loginResponse struct {
	Message string   `json:"message"`
	Token   string   `json:"token"`
	User    userView `json:"user"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/signup", s.handleSignup)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/validate-token", s.requireUser(s.handleValidateToken))
	mux.HandleFunc("GET /api/profile", s.requireUser(s.handleProfile))
	mux.HandleFunc("GET /api/hello", s.handleHello)
	mux.HandleFunc("POST /api/hello", s.handleHello)

	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", metrics.HandlerFor(s.gatherer))
	}

	return s.recoverer(s.requestID(s.accessLog(cors(s.instrument(mux)))))
}

// handleSignup handles POST /api/signup
//
// Returns:
//   - 201 with the created user
//   - 400 for a missing body or failed validation
//   - 409 if the email is taken
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := creds.ValidateSignup(); err != nil {
		s.metrics.RecordAuth("signup", metrics.OutcomeInvalid)
		writeMessage(w, http.StatusBadRequest, firstMessage(err))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			s.metrics.RecordAuth("signup", metrics.OutcomeInvalid)
			writeMessage(w, http.StatusBadRequest, "Password must be at most 72 bytes long")
			return
		}
		s.internalError(w, r, "hash password", err)
		return
	}

	user, err := s.users.Create(r.Context(), creds.Email, string(hash))
	if errors.Is(err, ErrUserExists) {
		s.metrics.RecordAuth("signup", metrics.OutcomeRejected)
		writeMessage(w, http.StatusConflict, msgUserExists)
		return
	}
	if err != nil {
		s.internalError(w, r, "create user", err)
		return
	}

	s.logger.InfoContext(r.Context(), "user created", "user_id", user.ID)
	s.metrics.RecordAuth("signup", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusCreated, userResponse{Message: msgUserCreated, User: user.view()})
}

// handleLogin handles POST /api/login
//
// Returns:
//   - 200 with a token and the user
//   - 400 if a field is missing
//   - 401 for bad credentials or a deactivated account
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}
	if err := creds.ValidateLogin(); err != nil {
		s.metrics.RecordAuth("login", metrics.OutcomeInvalid)
		writeMessage(w, http.StatusBadRequest, firstMessage(err))
		return
	}

	user, err := s.users.ByEmail(r.Context(), creds.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.internalError(w, r, "look up user", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)) != nil {
		s.metrics.RecordAuth("login", metrics.OutcomeRejected)
		writeMessage(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}
	if !user.IsActive {
		s.metrics.RecordAuth("login", metrics.OutcomeRejected)
		writeMessage(w, http.StatusUnauthorized, msgDeactivated)
		return
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.internalError(w, r, "issue token", err)
		return
	}
	s.metrics.RecordAuth("login", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, loginResponse{Message: msgLoginSuccessful, Token: token, User: user.view()})
}

func (s *Server) handleValidateToken(w http.ResponseWriter, _ *http.Request, user *User) {
	s.metrics.RecordAuth("validate", metrics.OutcomeSuccess)
	writeJSON(w, http.StatusOK, userResponse{Message: msgTokenValid, User: user.view()})
}

func (s *Server) handleProfile(w http.ResponseWriter, _ *http.Request, user *User) {
	writeJSON(w, http.StatusOK, userResponse{User: user.view()})
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: msgHello})
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Liveness(r.Context()))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.Readiness(r.Context())
	status := http.StatusOK
	if report.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// requireUser resolves the bearer token to an active user before calling next.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			writeMessage(w, http.StatusUnauthorized, msgTokenMissing)
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")

		claims, err := s.tokens.Verify(token)
		if err != nil {
			s.logger.WithError(err).DebugContext(r.Context(), "rejected token")
			writeMessage(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}

		user, err := s.users.ByID(r.Context(), claims.UserID)
		if err != nil && !errors.Is(err, ErrUserNotFound) {
			s.logger.WithError(err).ErrorContext(r.Context(), "look up token owner")
			writeMessage(w, http.StatusUnauthorized, "Token is invalid")
			return
		}
		if user == nil || !user.IsActive {
			writeMessage(w, http.StatusUnauthorized, msgUserInactive)
			return
		}
		next(w, r, user)
	}
}

// decodeCredentials reads the request body. An empty, non-JSON or empty
// object body is answered with 400 "No data provided".
func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, msgNoData)
		return credentials{}, false
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		writeMessage(w, http.StatusBadRequest, msgNoData)
		return credentials{}, false
	}

	var creds credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		writeMessage(w, http.StatusBadRequest, msgRequired)
		return credentials{}, false
	}
	creds.Email = NormalizeEmail(creds.Email)
	return creds, true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logger.WithError(err).ErrorContext(r.Context(), "request failed", "op", op)
	s.metrics.RecordError(op)
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
