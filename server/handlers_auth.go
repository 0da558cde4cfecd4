package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/field-portal/auth"
	apperrors "github.com/jrsteele09/field-portal/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": s.config.GetAppName()})
	}
}

// PreflightHandler answers OPTIONS requests that CorsMiddleware did not already handle.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

type qrLoginRequest struct {
	Token string `json:"token"`
}

// QRLoginHandler exchanges a scanned QR credential for a session token.
// Every failure after the token check is a 401; the cause is only logged.
func (s *Server) QRLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req qrLoginRequest
		if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
			writeError(w, http.StatusBadRequest, "Token is required", "")
			return
		}

		resp, err := s.auth.QRLogin(r.Context(), strings.TrimSpace(req.Token))
		if err != nil {
			if errors.Is(err, auth.ErrAuthenticationFailed) {
				log.Info().Err(err).Msg("QR login rejected")
				writeError(w, http.StatusUnauthorized, "Invalid QR code token", "")
				return
			}
			log.Err(err).Msg("QR login failed")
			writeError(w, http.StatusUnauthorized, "Authentication failed", "")
			return
		}

		log.Info().Str("vendor_id", resp.VendorID).Str("plant_id", resp.PlantID).Msg("QR login")
		writeJSON(w, http.StatusOK, resp)
	}
}

type sessionResponse struct {
	Valid    bool   `json:"valid"`
	VendorID string `json:"vendorId"`
	PlantID  string `json:"plantId"`
}

// SessionHandler reports the caller's session. RequireTechnician has already
// rejected unknown, expired and superseded tokens.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		writeJSON(w, http.StatusOK, sessionResponse{
			Valid:    true,
			VendorID: principal.VendorID,
			PlantID:  principal.PlantID,
		})
	}
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminLoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   int64  `json:"expiresAt"`
}

func (s *Server) AdminLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminLoginRequest
		if err := decodeJSON(w, r, &req); err != nil || req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "Email and password are required", "")
			return
		}

		user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password", CodeUnauthorized)
			return
		}
		if err != nil {
			log.Err(err).Msg("admin login failed")
			writeError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		token, expiresAt, err := s.auth.IssueAdminToken(user.ID)
		if err != nil {
			log.Err(err).Msg("failed to issue admin token")
			writeError(w, http.StatusInternalServerError, "Internal server error", "")
			return
		}

		log.Info().Str("user_id", user.ID).Msg("admin login")
		writeJSON(w, http.StatusOK, adminLoginResponse{
			AccessToken: token,
			Role:        string(user.Role),
			ExpiresAt:   expiresAt.Unix(),
		})
	}
}
