package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fastworkhq/fastwork-backend/api/controllers"
	"github.com/fastworkhq/fastwork-backend/api/middleware"
	"github.com/fastworkhq/fastwork-backend/internal/jobs"
	"github.com/fastworkhq/fastwork-backend/internal/lifecycle"
	"github.com/fastworkhq/fastwork-backend/internal/notifications"
	"github.com/fastworkhq/fastwork-backend/internal/users"
	"github.com/fastworkhq/fastwork-backend/internal/wallet"
	"github.com/fastworkhq/fastwork-backend/pkg/config"
	"github.com/fastworkhq/fastwork-backend/pkg/db"
	"github.com/fastworkhq/fastwork-backend/pkg/enums"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
	"github.com/fastworkhq/fastwork-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	userService users.Service,
	jobService jobs.Service,
	lifecycleService lifecycle.Service,
	walletService wallet.Service,
	notificationService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	writePolicy := middleware.NewWriteRateLimitPolicy(
		"write",
		cfg.RateLimit.WriteWindow,
		cfg.RateLimit.WriteIPLimit,
		cfg.RateLimit.WriteUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// Registration and the public board need no identity.
	r.Group(func(r chi.Router) {
		r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))
		r.Post("/api/v1/users", controllers.RegisterUser(userService, logg))
		r.Get("/api/v1/users/{userId}", controllers.GetUser(userService, logg))
		r.Get("/api/v1/jobs", controllers.BrowseJobs(jobService, logg))
		r.Get("/api/v1/jobs/{jobId}", controllers.GetJob(jobService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.WriteRateLimit(writePolicy, redisClient, logg))

		r.Get("/me", controllers.Me(userService, logg))
		r.Patch("/me/profile", controllers.UpdateMyProfile(userService, logg))

		asClient := middleware.RequireRole(string(enums.RoleClient), logg)
		asFreelancer := middleware.RequireRole(string(enums.RoleFreelancer), logg)

		r.With(asClient).Post("/jobs", controllers.PostJob(jobService, logg))
		r.With(asClient).Post("/jobs/{jobId}/close", controllers.CloseJob(lifecycleService, logg))
		r.With(asFreelancer).Post("/jobs/{jobId}/proposals", controllers.SubmitProposal(lifecycleService, logg))

		r.With(asClient).Post("/proposals/{proposalId}/accept", controllers.AcceptProposal(lifecycleService, logg))
		r.With(asFreelancer).Post("/proposals/{proposalId}/withdraw", controllers.WithdrawProposal(lifecycleService, logg))

		r.Post("/contracts/{contractId}/complete", controllers.CompleteContract(lifecycleService, logg))
		r.Post("/contracts/{contractId}/cancel", controllers.CancelContract(lifecycleService, logg))
		r.Post("/contracts/{contractId}/reviews", controllers.SubmitReview(lifecycleService, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/balance", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
			r.Post("/deposit", controllers.WalletDeposit(walletService, logg))
			r.Post("/withdraw", controllers.WalletWithdraw(walletService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})
	})

	return r
}
