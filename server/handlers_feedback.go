package server

import (
	"net/http"

	"github.com/jrsteele09/field-portal/feedback"
	"github.com/rs/zerolog/log"
)

type submitFeedbackRequest struct {
	Rating  int      `json:"rating"`
	Comment string   `json:"comment,omitempty"`
	Images  []string `json:"images,omitempty"`
}

// SubmitFeedbackHandler records feedback for a job. Vendor and plant are taken from
// the caller's session.
func (s *Server) SubmitFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())

		var req submitFeedbackRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", "")
			return
		}

		fb, err := s.feedback.Submit(r.Context(), feedback.Submission{
			JobID:    r.PathValue("jobId"),
			VendorID: principal.VendorID,
			PlantID:  principal.PlantID,
			Rating:   req.Rating,
			Comment:  req.Comment,
			Images:   req.Images,
		})
		if err != nil {
			writeServiceError(w, err, "failed to submit feedback")
			return
		}

		log.Info().Str("job_id", fb.JobID).Str("vendor_id", fb.VendorID).Int("rating", fb.Rating).Msg("feedback submitted")
		writeData(w, http.StatusCreated, fb)
	}
}
