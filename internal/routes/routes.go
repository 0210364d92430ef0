package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Webhook   *handlers.WebhookHandler
	Legal     *handlers.LegalHandler
	Config    *handlers.RemoteConfigHandler
	Profile   *handlers.ProfileHandler
	Household *handlers.HouseholdHandler
	Child     *handlers.ChildHandler
	Toy       *handlers.ToyHandler
	Rotation  *handlers.RotationHandler
	AI        *handlers.AIHandler
}

// Setup registers every route. auth verifies bearer tokens; storage backs the
// rate limiters and may be nil for in-memory windows.
func Setup(app *fiber.App, cfg *config.Config, auth fiber.Handler, storage fiber.Storage, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		Storage:           storage,
	}))

	api.Get("/health", h.Health.Check)
	api.Get("/config", h.Config.GetConfig)
	api.Get("/version-check", h.Config.VersionCheck)
	api.Get("/legal/privacy", h.Legal.PrivacyPolicy)
	api.Get("/legal/terms", h.Legal.TermsOfService)

	fn := api.Group("/fn", auth)

	fn.Post("/getUserInfo", handlers.Callable("getUserInfo", h.Profile.GetUserInfo))
	fn.Post("/updateUserProfile", handlers.Callable("updateUserProfile", h.Profile.UpdateUserProfile))
	fn.Post("/scheduleAccountDeletion", handlers.Callable("scheduleAccountDeletion", h.Profile.ScheduleAccountDeletion))
	fn.Post("/cancelAccountDeletion", handlers.Callable("cancelAccountDeletion", h.Profile.CancelAccountDeletion))
	fn.Post("/registerPushToken", handlers.Callable("registerPushToken", h.Profile.RegisterPushToken))

	fn.Post("/getHousehold", handlers.Callable("getHousehold", h.Household.GetHousehold))
	fn.Post("/inviteCaregiver", handlers.Callable("inviteCaregiver", h.Household.InviteCaregiver))
	fn.Post("/acceptInvitation", handlers.Callable("acceptInvitation", h.Household.AcceptInvitation))
	fn.Post("/declineInvitation", handlers.Callable("declineInvitation", h.Household.DeclineInvitation))
	fn.Post("/getPendingInvitations", handlers.Callable("getPendingInvitations", h.Household.GetPendingInvitations))
	fn.Post("/removeCaregiver", handlers.Callable("removeCaregiver", h.Household.RemoveCaregiver))

	fn.Post("/getChildProfiles", handlers.Callable("getChildProfiles", h.Child.GetChildProfiles))
	fn.Post("/addChildProfile", handlers.Callable("addChildProfile", h.Child.AddChildProfile))
	fn.Post("/updateChildProfile", handlers.Callable("updateChildProfile", h.Child.UpdateChildProfile))
	fn.Post("/deleteChildProfile", handlers.Callable("deleteChildProfile", h.Child.DeleteChildProfile))

	fn.Post("/getToys", handlers.Callable("getToys", h.Toy.GetToys))
	fn.Post("/addToy", handlers.Callable("addToy", h.Toy.AddToy))
	fn.Post("/updateToy", handlers.Callable("updateToy", h.Toy.UpdateToy))
	fn.Post("/deleteToy", handlers.Callable("deleteToy", h.Toy.DeleteToy))

	fn.Post("/createRotation", handlers.Callable("createRotation", h.Rotation.CreateRotation))
	fn.Post("/getCurrentRotation", handlers.Callable("getCurrentRotation", h.Rotation.GetCurrentRotation))
	fn.Post("/getRotations", handlers.Callable("getRotations", h.Rotation.GetRotations))
	fn.Post("/logFeedback", handlers.Callable("logFeedback", h.Rotation.LogFeedback))
	fn.Post("/getFeedback", handlers.Callable("getFeedback", h.Rotation.GetFeedback))

	// AI calls are slow and paid: 10 req/min per user on top of the ledger
	aiLimit := limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return "ai:" + tenant.GetUserID(c) },
		Storage:           storage,
	})
	fn.Post("/getAiRotationSuggestion", aiLimit, handlers.Callable("getAiRotationSuggestion", h.AI.GetRotationSuggestion))
	fn.Post("/recognizeToyFromPhoto", aiLimit, handlers.Callable("recognizeToyFromPhoto", h.AI.RecognizeToyFromPhoto))
	fn.Post("/analyzeSpace", aiLimit, handlers.Callable("analyzeSpace", h.AI.AnalyzeSpace))

	admin := api.Group("/admin", middleware.OptionalAuth(auth), middleware.AdminRequired(cfg))
	admin.Put("/config/:key", h.Config.SetConfigKey)
	admin.Delete("/config/:key", h.Config.DeleteConfigKey)

	webhooks := api.Group("/webhooks")
	webhooks.Post("/revenuecat", h.Webhook.HandleRevenueCat)
}
