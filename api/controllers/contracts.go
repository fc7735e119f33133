package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fastworkhq/fastwork-backend/api/middleware"
	"github.com/fastworkhq/fastwork-backend/api/responses"
	"github.com/fastworkhq/fastwork-backend/api/validators"
	"github.com/fastworkhq/fastwork-backend/internal/lifecycle"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
)

// CompleteContract signs off the work and settles payment.
func CompleteContract(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid contract id"))
			return
		}

		input := lifecycle.CompleteContractInput{
			ContractID:  contractID,
			ActorUserID: middleware.UserUUIDFromContext(r.Context()),
		}
		if err := svc.CompleteContract(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}

// CancelContract aborts the active contract and re-opens the job.
func CancelContract(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid contract id"))
			return
		}

		// The body is optional, a bare cancel carries no reason.
		var input lifecycle.CancelContractInput
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &input); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		input.ContractID = contractID
		input.ActorUserID = middleware.UserUUIDFromContext(r.Context())

		if err := svc.CancelContract(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// SubmitReview rates the other party of a completed contract.
func SubmitReview(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		contractID, err := uuid.Parse(chi.URLParam(r, "contractId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid contract id"))
			return
		}

		var input lifecycle.SubmitReviewInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.ContractID = contractID
		input.ReviewerID = middleware.UserUUIDFromContext(r.Context())

		review, err := svc.SubmitReview(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}
