package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/config"
	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	pkgerrors "github.com/fastworkhq/fastwork-backend/pkg/errors"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
	"github.com/fastworkhq/fastwork-backend/pkg/metrics"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox/payloads"
)

const dispatcherWorker = "notifications"

type outboxSource interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Dispatcher drains the outbox and fans each domain event out into
// per-recipient notification rows. Events within one aggregate are fetched
// in insertion order, so recipients observe transitions in the order they
// happened.
type Dispatcher struct {
	source  outboxSource
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.DispatcherMetrics
	cfg     config.DispatcherConfig
}

// NewDispatcher builds the outbox-to-notifications worker.
func NewDispatcher(source outboxSource, repo Repository, tx txRunner, logg *logger.Logger, m *metrics.DispatcherMetrics, cfg config.DispatcherConfig) (*Dispatcher, error) {
	if source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox source required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Dispatcher{
		source:  source,
		repo:    repo,
		tx:      tx,
		logg:    logg,
		metrics: m,
		cfg:     cfg,
	}, nil
}

// Run polls the outbox until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.ProcessBatch(ctx); err != nil {
				d.logg.Error(ctx, "dispatcher batch failed", err)
			}
		}
	}
}

// ProcessBatch drains up to BatchSize unpublished events and returns how
// many were published.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	start := time.Now()
	events, err := d.source.FetchUnpublished(d.cfg.BatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch unpublished events")
	}

	published := 0
	for _, event := range events {
		logCtx := d.logg.WithFields(ctx, map[string]any{
			"event_id":   event.ID.String(),
			"event_type": event.EventType.String(),
		})
		if err := d.dispatch(logCtx, event); err != nil {
			d.logg.Error(logCtx, "event dispatch failed", err)
			if markErr := d.source.MarkFailed(event.ID, err); markErr != nil {
				d.logg.Error(logCtx, "marking event failed", markErr)
			}
			d.metrics.IncFailed()
			continue
		}
		d.metrics.IncPublished()
		published++
	}

	d.metrics.ObserveBatch(dispatcherWorker, time.Since(start))
	return published, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}

	rows, err := buildNotifications(event.EventType, envelope.Data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		d.logg.Info(ctx, "event produces no notifications")
	}

	// The rows and the published flag commit together. A failure part way
	// through rolls everything back, so the next poll starts from zero
	// rows instead of stacking duplicates on top of a half-written event.
	err = d.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := d.repo.WithTx(tx)
		for i := range rows {
			if err := repo.Create(ctx, &rows[i]); err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
		}
		return d.source.MarkPublished(tx, event.ID)
	})
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		d.logg.Info(ctx, "notifications dispatched")
	}
	return nil
}

func buildNotifications(eventType enums.OutboxEventType, data json.RawMessage) ([]models.Notification, error) {
	switch eventType {
	case enums.EventProposalSubmitted:
		var payload payloads.ProposalSubmittedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode proposal submitted payload: %w", err)
		}
		return []models.Notification{{
			RecipientID: payload.ClientID,
			Kind:        enums.NotificationProposalReceived,
			Title:       "New proposal",
			Message:     fmt.Sprintf("You received a %s proposal on %q.", payload.BidAmount, payload.JobTitle),
			PayloadRef:  ref(payload.ProposalID),
		}}, nil

	case enums.EventProposalAccepted:
		var payload payloads.ProposalAcceptedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode proposal accepted payload: %w", err)
		}
		rows := []models.Notification{{
			RecipientID: payload.FreelancerID,
			Kind:        enums.NotificationProposalAccepted,
			Title:       "Proposal accepted",
			Message:     fmt.Sprintf("Your proposal on %q was accepted. The contract is now active.", payload.JobTitle),
			PayloadRef:  ref(payload.ContractID),
		}}
		for _, rejected := range payload.RejectedProposals {
			rows = append(rows, models.Notification{
				RecipientID: rejected.FreelancerID,
				Kind:        enums.NotificationProposalRejected,
				Title:       "Proposal not selected",
				Message:     fmt.Sprintf("The client chose another proposal on %q.", payload.JobTitle),
				PayloadRef:  ref(rejected.ProposalID),
			})
		}
		return rows, nil

	case enums.EventProposalWithdrawn:
		var payload payloads.ProposalWithdrawnEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode proposal withdrawn payload: %w", err)
		}
		return []models.Notification{{
			RecipientID: payload.ClientID,
			Kind:        enums.NotificationProposalWithdrawn,
			Title:       "Proposal withdrawn",
			Message:     fmt.Sprintf("A freelancer withdrew their proposal on %q.", payload.JobTitle),
			PayloadRef:  ref(payload.ProposalID),
		}}, nil

	case enums.EventContractCompleted:
		var payload payloads.ContractCompletedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode contract completed payload: %w", err)
		}
		return []models.Notification{{
			RecipientID: payload.FreelancerID,
			Kind:        enums.NotificationContractCompleted,
			Title:       "Contract completed",
			Message:     fmt.Sprintf("Your work on %q was signed off.", payload.JobTitle),
			PayloadRef:  ref(payload.ContractID),
		}, {
			RecipientID: payload.ClientID,
			Kind:        enums.NotificationContractCompleted,
			Title:       "Contract completed",
			Message:     fmt.Sprintf("The contract for %q is complete.", payload.JobTitle),
			PayloadRef:  ref(payload.ContractID),
		}, {
			RecipientID: payload.FreelancerID,
			Kind:        enums.NotificationPaymentReceived,
			Title:       "Payment received",
			Message:     fmt.Sprintf("%s was credited to your wallet for %q.", payload.AgreedAmount, payload.JobTitle),
			PayloadRef:  ref(payload.ContractID),
		}}, nil

	case enums.EventContractCancelled:
		var payload payloads.ContractCancelledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode contract cancelled payload: %w", err)
		}
		message := fmt.Sprintf("The contract on %q was cancelled.", payload.JobTitle)
		if payload.Reason != "" {
			message = fmt.Sprintf("The contract on %q was cancelled. Reason: %s", payload.JobTitle, payload.Reason)
		}
		var rows []models.Notification
		for _, party := range []uuid.UUID{payload.ClientID, payload.FreelancerID} {
			if party == payload.CancelledBy {
				continue
			}
			rows = append(rows, models.Notification{
				RecipientID: party,
				Kind:        enums.NotificationContractCancelled,
				Title:       "Contract cancelled",
				Message:     message,
				PayloadRef:  ref(payload.ContractID),
			})
		}
		return rows, nil

	case enums.EventReviewSubmitted:
		var payload payloads.ReviewSubmittedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode review submitted payload: %w", err)
		}
		return []models.Notification{{
			RecipientID: payload.RevieweeID,
			Kind:        enums.NotificationReviewReceived,
			Title:       "New review",
			Message:     fmt.Sprintf("You received a %d-star review on %q.", payload.Score, payload.JobTitle),
			PayloadRef:  ref(payload.ReviewID),
		}}, nil

	case enums.EventJobClosed:
		var payload payloads.JobClosedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode job closed payload: %w", err)
		}
		// The cancelled contract, if any, already notified its freelancer
		// through the contract cancelled event.
		rows := make([]models.Notification, 0, len(payload.PendingFreelancers))
		for _, freelancerID := range payload.PendingFreelancers {
			rows = append(rows, models.Notification{
				RecipientID: freelancerID,
				Kind:        enums.NotificationJobClosed,
				Title:       "Job closed",
				Message:     fmt.Sprintf("%q was closed before your proposal was reviewed.", payload.JobTitle),
				PayloadRef:  ref(payload.JobID),
			})
		}
		return rows, nil

	default:
		return nil, nil
	}
}

func ref(id uuid.UUID) *uuid.UUID {
	return &id
}
