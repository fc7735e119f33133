package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fastworkhq/fastwork-backend/internal/jobs"
	"github.com/fastworkhq/fastwork-backend/internal/lifecycle"
	"github.com/fastworkhq/fastwork-backend/internal/notifications"
	"github.com/fastworkhq/fastwork-backend/internal/users"
	"github.com/fastworkhq/fastwork-backend/internal/wallet"
	"github.com/fastworkhq/fastwork-backend/pkg/config"
	"github.com/fastworkhq/fastwork-backend/pkg/db/models"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
	"github.com/fastworkhq/fastwork-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubUsersService struct{}

func (stubUsersService) Register(ctx context.Context, input users.RegisterInput) (*users.Account, error) {
	return &users.Account{}, nil
}

func (stubUsersService) Get(ctx context.Context, userID uuid.UUID) (*users.Account, error) {
	return &users.Account{User: models.User{ID: userID}}, nil
}

func (stubUsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, input users.UpdateProfileInput) (*users.Account, error) {
	return &users.Account{User: models.User{ID: userID}}, nil
}

type stubJobsService struct{}

func (stubJobsService) Post(ctx context.Context, input jobs.PostInput) (*models.Job, error) {
	return &models.Job{ID: uuid.New()}, nil
}

func (stubJobsService) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	return &models.Job{ID: jobID}, nil
}

func (stubJobsService) Browse(ctx context.Context, params jobs.BrowseParams) (*jobs.BrowseResult, error) {
	return &jobs.BrowseResult{Items: []models.Job{}}, nil
}

type stubLifecycleService struct{}

func (stubLifecycleService) SubmitProposal(ctx context.Context, input lifecycle.SubmitProposalInput) (*models.Proposal, error) {
	return &models.Proposal{ID: uuid.New()}, nil
}

func (stubLifecycleService) WithdrawProposal(ctx context.Context, input lifecycle.WithdrawProposalInput) error {
	return nil
}

func (stubLifecycleService) AcceptProposal(ctx context.Context, input lifecycle.AcceptProposalInput) (*models.Contract, error) {
	return &models.Contract{ID: uuid.New()}, nil
}

func (stubLifecycleService) CompleteContract(ctx context.Context, input lifecycle.CompleteContractInput) error {
	return nil
}

func (stubLifecycleService) CancelContract(ctx context.Context, input lifecycle.CancelContractInput) error {
	return nil
}

func (stubLifecycleService) CloseJob(ctx context.Context, input lifecycle.CloseJobInput) error {
	return nil
}

func (stubLifecycleService) SubmitReview(ctx context.Context, input lifecycle.SubmitReviewInput) (*models.Review, error) {
	return &models.Review{ID: uuid.New()}, nil
}

type stubWalletService struct{}

func (stubWalletService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (stubWalletService) List(ctx context.Context, params wallet.ListParams) (*wallet.ListResult, error) {
	return &wallet.ListResult{Items: []models.WalletTransaction{}}, nil
}

func (stubWalletService) Deposit(ctx context.Context, input wallet.DepositInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (stubWalletService) Withdraw(ctx context.Context, input wallet.WithdrawInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (stubWalletService) Credit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

func (stubWalletService) Debit(ctx context.Context, tx *gorm.DB, input wallet.EntryInput) (*models.WalletTransaction, error) {
	return &models.WalletTransaction{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []models.Notification{}}, nil
}

func (stubNotificationsService) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		stubUsersService{},
		stubJobsService{},
		stubLifecycleService{},
		stubWalletService{},
		stubNotificationsService{},
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestProtectedGroupRejectsMissingIdentity(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity got %d", resp.Code)
	}
}

func TestProtectedGroupAcceptsIdentityHeaders(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-User-Id", uuid.NewString())
	req.Header.Set("X-User-Role", string(enums.RoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with identity got %d", resp.Code)
	}
}

func TestPublicBoardNeedsNoIdentity(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public board got %d", resp.Code)
	}
}

func TestNotificationsRouteRequiresIdentity(t *testing.T) {
	router := newTestRouter(testConfig())

	anonymous := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anonymous)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	authed.Header.Set("X-User-Id", uuid.NewString())
	authed.Header.Set("X-User-Role", string(enums.RoleFreelancer))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with identity got %d", resp.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
