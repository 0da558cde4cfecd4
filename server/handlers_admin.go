package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jrsteele09/field-portal/feedback"
	apperrors "github.com/jrsteele09/field-portal/internal/errors"
	"github.com/jrsteele09/field-portal/internal/utils"
	"github.com/rs/zerolog/log"
)

// writeServiceError maps the shared sentinel errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error(), "")
	case apperrors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", "")
	case apperrors.Is(err, apperrors.ErrDuplicate):
		writeError(w, http.StatusConflict, "Already exists", "")
	default:
		log.Err(err).Msg(action)
		writeError(w, http.StatusInternalServerError, "Internal server error", "")
	}
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func (s *Server) AdminUsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.users.List(r.Context(), queryInt(r, "offset", 0), queryInt(r, "limit", 0))
		if err != nil {
			writeServiceError(w, err, "failed to list users")
			return
		}
		writeData(w, http.StatusOK, list)
	}
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) AdminCreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", "")
			return
		}

		user, err := s.users.Create(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeServiceError(w, err, "failed to create user")
			return
		}
		writeData(w, http.StatusCreated, user)
	}
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (s *Server) AdminResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", "")
			return
		}

		if err := s.users.ResetPassword(r.Context(), r.PathValue("id"), req.NewPassword); err != nil {
			writeServiceError(w, err, "failed to reset password")
			return
		}
		writeJSON(w, http.StatusOK, dataResponse{Success: true})
	}
}

func (s *Server) AdminDeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if principal, ok := PrincipalFromContext(r.Context()); ok && principal.Subject == id {
			writeError(w, http.StatusBadRequest, "Admins cannot delete themselves", "")
			return
		}

		if err := s.users.Delete(r.Context(), id); err != nil {
			writeServiceError(w, err, "failed to delete user")
			return
		}
		writeJSON(w, http.StatusOK, dataResponse{Success: true})
	}
}

// maxQRValidityHours caps a generated credential at one year.
const maxQRValidityHours = 24 * 365

type generateQRRequest struct {
	VendorID      string `json:"vendorId"`
	PlantID       string `json:"plantId"`
	ValidForHours int    `json:"validForHours,omitempty"`
}

type generateQRResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminGenerateQRHandler mints the credential an admin prints as a QR code.
func (s *Server) AdminGenerateQRHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateQRRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", "")
			return
		}
		if req.ValidForHours < 0 || req.ValidForHours > maxQRValidityHours {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("validForHours must be between 0 and %d", maxQRValidityHours), "")
			return
		}

		token, expiresAt, err := s.auth.GenerateQRCredential(req.VendorID, req.PlantID, time.Duration(req.ValidForHours)*time.Hour)
		if err != nil {
			writeServiceError(w, err, "failed to generate QR credential")
			return
		}
		writeData(w, http.StatusOK, generateQRResponse{Token: token, ExpiresAt: expiresAt.UTC()})
	}
}

func (s *Server) AdminFeedbackListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := feedback.Filter{
			VendorID: q.Get("vendorId"),
			PlantID:  q.Get("plantId"),
			JobID:    q.Get("jobId"),
		}
		if hasImages, err := strconv.ParseBool(q.Get("hasImages")); err == nil {
			filter.HasImages = utils.Ptr(hasImages)
		}

		list, err := s.feedback.List(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err, "failed to list feedback")
			return
		}
		writeData(w, http.StatusOK, list)
	}
}
