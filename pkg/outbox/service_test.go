package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox/payloads"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestEmitQueuesEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	jobID := uuid.New()
	proposalID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventProposalSubmitted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   proposalID,
		Actor:         &ActorRef{UserID: uuid.New(), Role: enums.RoleFreelancer.String()},
		Data: payloads.ProposalSubmittedEvent{
			ProposalID:   proposalID,
			JobID:        jobID,
			JobTitle:     "Build landing page",
			ClientID:     uuid.New(),
			FreelancerID: uuid.New(),
		},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, event)
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventProposalSubmitted, rows[0].EventType)
	assert.Equal(t, enums.AggregateProposal, rows[0].AggregateType)
	assert.Equal(t, proposalID, rows[0].AggregateID)
	assert.Nil(t, rows[0].PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	require.NotNil(t, envelope.Actor)

	var data payloads.ProposalSubmittedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, jobID, data.JobID)
	assert.Equal(t, "Build landing page", data.JobTitle)
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := NewService(NewRepository(setupOutboxTestDB(t)), nil)
	err := svc.Emit(context.Background(), nil, DomainEvent{})
	require.Error(t, err)
}

func TestEmitIfNotExistsSkipsDuplicates(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	event := DomainEvent{
		EventType:     enums.EventJobClosed,
		AggregateType: enums.AggregateJob,
		AggregateID:   uuid.New(),
		Data:          payloads.JobClosedEvent{},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := svc.EmitIfNotExists(context.Background(), tx, event); err != nil {
			return err
		}
		return svc.EmitIfNotExists(context.Background(), tx, event)
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFetchUnpublishedOrdersByCreation(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		row := models.OutboxEvent{
			ID:            uuid.New(),
			EventType:     enums.EventProposalSubmitted,
			AggregateType: enums.AggregateProposal,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&row).Error)
	}
	published := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventProposalSubmitted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		CreatedAt:     base,
	}
	now := time.Now()
	published.PublishedAt = &now
	require.NoError(t, db.Create(&published).Error)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 1; i < len(rows); i++ {
		assert.False(t, rows[i].CreatedAt.Before(rows[i-1].CreatedAt))
	}
}

func TestMarkPublishedAndFailed(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventContractCompleted,
		AggregateType: enums.AggregateContract,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	require.NoError(t, db.Create(&row).Error)

	require.NoError(t, repo.MarkFailed(row.ID, errors.New("recipient lookup failed")))
	var got models.OutboxEvent
	require.NoError(t, db.First(&got, "id = ?", row.ID).Error)
	assert.Equal(t, 1, got.AttemptCount)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "recipient lookup failed")

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return repo.MarkPublished(tx, row.ID)
	}))
	require.NoError(t, db.First(&got, "id = ?", row.ID).Error)
	assert.NotNil(t, got.PublishedAt)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchUnpublishedSkipsExhaustedEvents(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventProposalSubmitted,
		AggregateType: enums.AggregateProposal,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  MaxDispatchAttempts,
	}
	require.NoError(t, db.Create(&row).Error)

	rows, err := repo.FetchUnpublished(10)
	require.NoError(t, err)
	assert.Empty(t, rows, "events past the retry cap stay out of the batch")
}
