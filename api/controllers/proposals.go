package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fastworkhq/fastwork-backend/api/middleware"
	"github.com/fastworkhq/fastwork-backend/api/responses"
	"github.com/fastworkhq/fastwork-backend/internal/lifecycle"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
)

// AcceptProposal awards the job to one proposal and opens the contract.
func AcceptProposal(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		proposalID, err := uuid.Parse(chi.URLParam(r, "proposalId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid proposal id"))
			return
		}

		contract, err := svc.AcceptProposal(r.Context(), lifecycle.AcceptProposalInput{
			ProposalID:  proposalID,
			ActorUserID: middleware.UserUUIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, contract)
	}
}

// WithdrawProposal retracts the caller's pending bid.
func WithdrawProposal(svc lifecycle.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle service unavailable"))
			return
		}

		proposalID, err := uuid.Parse(chi.URLParam(r, "proposalId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid proposal id"))
			return
		}

		input := lifecycle.WithdrawProposalInput{
			ProposalID:  proposalID,
			ActorUserID: middleware.UserUUIDFromContext(r.Context()),
		}
		if err := svc.WithdrawProposal(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "withdrawn"})
	}
}
