package notifications

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/config"
	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox/payloads"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupDispatcher(t *testing.T) (*gorm.DB, *outbox.Service, *Dispatcher) {
	t.Helper()

	db := setupNotificationsTestDB(t)
	outboxSchema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(outboxSchema).Error)

	repo := outbox.NewRepository(db)
	publisher := outbox.NewService(repo, nil)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	dispatcher, err := NewDispatcher(repo, NewRepository(db), gormTxRunner{db: db}, logg, nil, config.DispatcherConfig{BatchSize: 10})
	require.NoError(t, err)
	return db, publisher, dispatcher
}

func emit(t *testing.T, db *gorm.DB, publisher *outbox.Service, event outbox.DomainEvent) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return publisher.Emit(context.Background(), tx, event)
	}))
}

func notificationsFor(t *testing.T, db *gorm.DB, recipientID uuid.UUID) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", recipientID).Order("created_at ASC, id ASC").Find(&rows).Error)
	return rows
}

func TestDispatchProposalSubmitted(t *testing.T) {
	db, publisher, dispatcher := setupDispatcher(t)
	clientID := uuid.New()
	proposalID := uuid.New()

	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventProposalSubmitted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   proposalID,
		Data: payloads.ProposalSubmittedEvent{
			ProposalID:   proposalID,
			JobID:        uuid.New(),
			JobTitle:     "Build landing page",
			ClientID:     clientID,
			FreelancerID: uuid.New(),
			BidAmount:    decimal.NewFromInt(500),
		},
	})

	published, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	rows := notificationsFor(t, db, clientID)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.NotificationProposalReceived, rows[0].Kind)
	assert.Contains(t, rows[0].Message, "Build landing page")
	require.NotNil(t, rows[0].PayloadRef)
	assert.Equal(t, proposalID, *rows[0].PayloadRef)

	var event models.OutboxEvent
	require.NoError(t, db.First(&event).Error)
	assert.NotNil(t, event.PublishedAt)

	t.Run("published events are not redelivered", func(t *testing.T) {
		published, err := dispatcher.ProcessBatch(context.Background())
		require.NoError(t, err)
		assert.Zero(t, published)
		assert.Len(t, notificationsFor(t, db, clientID), 1)
	})
}

func TestDispatchProposalAcceptedFansOut(t *testing.T) {
	db, publisher, dispatcher := setupDispatcher(t)
	winner := uuid.New()
	loserOne := uuid.New()
	loserTwo := uuid.New()
	contractID := uuid.New()

	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventProposalAccepted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   uuid.New(),
		Data: payloads.ProposalAcceptedEvent{
			ProposalID:   uuid.New(),
			JobID:        uuid.New(),
			JobTitle:     "API integration",
			ContractID:   contractID,
			ClientID:     uuid.New(),
			FreelancerID: winner,
			AgreedAmount: decimal.NewFromInt(900),
			RejectedProposals: []payloads.RejectedProposalRef{
				{ProposalID: uuid.New(), FreelancerID: loserOne},
				{ProposalID: uuid.New(), FreelancerID: loserTwo},
			},
		},
	})

	_, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)

	winnerRows := notificationsFor(t, db, winner)
	require.Len(t, winnerRows, 1)
	assert.Equal(t, enums.NotificationProposalAccepted, winnerRows[0].Kind)
	require.NotNil(t, winnerRows[0].PayloadRef)
	assert.Equal(t, contractID, *winnerRows[0].PayloadRef)

	for _, loser := range []uuid.UUID{loserOne, loserTwo} {
		rows := notificationsFor(t, db, loser)
		require.Len(t, rows, 1)
		assert.Equal(t, enums.NotificationProposalRejected, rows[0].Kind)
	}
}

func TestDispatchContractCompletedPaysFreelancer(t *testing.T) {
	db, publisher, dispatcher := setupDispatcher(t)
	freelancer := uuid.New()
	client := uuid.New()

	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventContractCompleted,
		AggregateType: enums.AggregateContract,
		AggregateID:   uuid.New(),
		Data: payloads.ContractCompletedEvent{
			ContractID:   uuid.New(),
			JobID:        uuid.New(),
			JobTitle:     "Logo refresh",
			ClientID:     client,
			FreelancerID: freelancer,
			AgreedAmount: decimal.NewFromInt(250),
		},
	})

	_, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)

	rows := notificationsFor(t, db, freelancer)
	require.Len(t, rows, 2)
	kinds := []enums.NotificationKind{rows[0].Kind, rows[1].Kind}
	assert.Contains(t, kinds, enums.NotificationContractCompleted)
	assert.Contains(t, kinds, enums.NotificationPaymentReceived)

	clientRows := notificationsFor(t, db, client)
	require.Len(t, clientRows, 1, "client is told the contract completed")
	assert.Equal(t, enums.NotificationContractCompleted, clientRows[0].Kind)
}

func TestDispatchContractCancelledSkipsCanceller(t *testing.T) {
	db, publisher, dispatcher := setupDispatcher(t)
	freelancer := uuid.New()
	client := uuid.New()

	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventContractCancelled,
		AggregateType: enums.AggregateContract,
		AggregateID:   uuid.New(),
		Data: payloads.ContractCancelledEvent{
			ContractID:   uuid.New(),
			JobID:        uuid.New(),
			JobTitle:     "Data migration",
			ClientID:     client,
			FreelancerID: freelancer,
			CancelledBy:  freelancer,
			Reason:       "scope changed",
		},
	})

	_, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)

	rows := notificationsFor(t, db, client)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.NotificationContractCancelled, rows[0].Kind)
	assert.Contains(t, rows[0].Message, "scope changed")

	assert.Empty(t, notificationsFor(t, db, freelancer))
}

func TestDispatchJobClosedNotifiesPendingFreelancers(t *testing.T) {
	db, publisher, dispatcher := setupDispatcher(t)
	pendingOne := uuid.New()
	pendingTwo := uuid.New()

	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventJobClosed,
		AggregateType: enums.AggregateJob,
		AggregateID:   uuid.New(),
		Data: payloads.JobClosedEvent{
			JobID:              uuid.New(),
			JobTitle:           "Copywriting",
			ClientID:           uuid.New(),
			PendingFreelancers: []uuid.UUID{pendingOne, pendingTwo},
		},
	})

	published, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	for _, freelancer := range []uuid.UUID{pendingOne, pendingTwo} {
		rows := notificationsFor(t, db, freelancer)
		require.Len(t, rows, 1)
		assert.Equal(t, enums.NotificationJobClosed, rows[0].Kind)
	}
}

func TestDispatchMalformedPayloadMarksFailed(t *testing.T) {
	db, _, dispatcher := setupDispatcher(t)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventProposalSubmitted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   uuid.New(),
		Payload:       []byte("{not json"),
	}
	require.NoError(t, db.Create(&event).Error)

	published, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Nil(t, row.PublishedAt)
	assert.Equal(t, 1, row.AttemptCount)
	require.NotNil(t, row.LastError)
}

// faultyRepo rejects inserts of one notification kind while armed, letting
// tests abort a fan-out part way through.
type faultyRepo struct {
	Repository
	failKind enums.NotificationKind
	armed    *bool
}

func (f *faultyRepo) WithTx(tx *gorm.DB) Repository {
	return &faultyRepo{Repository: f.Repository.WithTx(tx), failKind: f.failKind, armed: f.armed}
}

func (f *faultyRepo) Create(ctx context.Context, notification *models.Notification) error {
	if *f.armed && notification.Kind == f.failKind {
		return errors.New("insert rejected")
	}
	return f.Repository.Create(ctx, notification)
}

func TestDispatchRetryCreatesNoDuplicates(t *testing.T) {
	db, publisher, _ := setupDispatcher(t)

	armed := true
	repo := &faultyRepo{Repository: NewRepository(db), failKind: enums.NotificationProposalRejected, armed: &armed}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	dispatcher, err := NewDispatcher(outbox.NewRepository(db), repo, gormTxRunner{db: db}, logg, nil, config.DispatcherConfig{BatchSize: 10})
	require.NoError(t, err)

	winner := uuid.New()
	loser := uuid.New()
	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventProposalAccepted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   uuid.New(),
		Data: payloads.ProposalAcceptedEvent{
			ProposalID:   uuid.New(),
			JobID:        uuid.New(),
			JobTitle:     "Build landing page",
			ContractID:   uuid.New(),
			ClientID:     uuid.New(),
			FreelancerID: winner,
			AgreedAmount: decimal.NewFromInt(500),
			RejectedProposals: []payloads.RejectedProposalRef{
				{ProposalID: uuid.New(), FreelancerID: loser},
			},
		},
	})

	published, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, published)
	assert.Empty(t, notificationsFor(t, db, winner),
		"a failed fan-out leaves no partial rows behind")

	armed = false
	published, err = dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	assert.Len(t, notificationsFor(t, db, winner), 1, "the retry produces each row exactly once")
	assert.Len(t, notificationsFor(t, db, loser), 1)
}

func TestDispatchGivesUpOnPoisonEvent(t *testing.T) {
	db, _, dispatcher := setupDispatcher(t)

	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventProposalSubmitted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   uuid.New(),
		Payload:       []byte("{not json"),
	}
	require.NoError(t, db.Create(&event).Error)

	for i := 0; i < outbox.MaxDispatchAttempts; i++ {
		_, err := dispatcher.ProcessBatch(context.Background())
		require.NoError(t, err)
	}

	var row models.OutboxEvent
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, outbox.MaxDispatchAttempts, row.AttemptCount)

	_, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.NoError(t, db.First(&row, "id = ?", event.ID).Error)
	assert.Equal(t, outbox.MaxDispatchAttempts, row.AttemptCount, "exhausted events are no longer polled")
	assert.Nil(t, row.PublishedAt)
}

func TestDispatchReviewSubmitted(t *testing.T) {
	db, publisher, dispatcher := setupDispatcher(t)
	reviewee := uuid.New()

	emit(t, db, publisher, outbox.DomainEvent{
		EventType:     enums.EventReviewSubmitted,
		AggregateType: enums.AggregateReview,
		AggregateID:   uuid.New(),
		Data: payloads.ReviewSubmittedEvent{
			ReviewID:   uuid.New(),
			ContractID: uuid.New(),
			JobTitle:   "Build landing page",
			ReviewerID: uuid.New(),
			RevieweeID: reviewee,
			Score:      5,
		},
	})

	_, err := dispatcher.ProcessBatch(context.Background())
	require.NoError(t, err)

	rows := notificationsFor(t, db, reviewee)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.NotificationReviewReceived, rows[0].Kind)
	assert.Contains(t, rows[0].Message, "5-star")
}
