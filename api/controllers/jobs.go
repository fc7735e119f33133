package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fastworkhq/fastwork-backend/api/middleware"
	"github.com/fastworkhq/fastwork-backend/api/responses"
	"github.com/fastworkhq/fastwork-backend/api/validators"
	"github.com/fastworkhq/fastwork-backend/internal/jobs"
	"github.com/fastworkhq/fastwork-backend/internal/lifecycle"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
)

const maxPageSize = 100

// PostJob publishes a new listing on the board.
func PostJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		clientID := middleware.UserUUIDFromContext(r.Context())
		if clientID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing"))
			return
		}

		var input jobs.PostInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ClientID = clientID

		job, err := svc.Post(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// GetJob returns one listing.
func GetJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid job id"))
			return
		}

		job, err := svc.Get(r.Context(), jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// BrowseJobs returns the paginated board, optionally filtered by state and
// category.
func BrowseJobs(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "jobs service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := jobs.BrowseParams{
			State:    strings.TrimSpace(r.URL.Query().Get("state")),
			Category: strings.TrimSpace(r.URL.Query().Get("category")),
			Limit:    limit,
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("clientId")); raw != "" {
			clientID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid client id"))
				return
			}
			params.ClientID = clientID
		}

		result, err := svc.Browse(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CloseJob retires a listing, rejecting pending proposals or cancelling the
// active contract.
func CloseJob(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid job id"))
			return
		}

		input := lifecycle.CloseJobInput{
			JobID:       jobID,
			ActorUserID: middleware.UserUUIDFromContext(r.Context()),
		}
		if err := svc.CloseJob(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "closed"})
	}
}

// SubmitProposal places a bid on an open job.
func SubmitProposal(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid job id"))
			return
		}

		var input lifecycle.SubmitProposalInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.JobID = jobID
		input.FreelancerID = middleware.UserUUIDFromContext(r.Context())

		proposal, err := svc.SubmitProposal(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, proposal)
	}
}
