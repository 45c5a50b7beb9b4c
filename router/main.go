package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-market/config"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/handlers"
	admin_handlers "github.com/sahilchouksey/course-market/handlers/admin"
	auth_handlers "github.com/sahilchouksey/course-market/handlers/auth"
	cart_handlers "github.com/sahilchouksey/course-market/handlers/cart"
	certificate_handlers "github.com/sahilchouksey/course-market/handlers/certificate"
	course_handlers "github.com/sahilchouksey/course-market/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/course-market/handlers/enrollment"
	notification_handlers "github.com/sahilchouksey/course-market/handlers/notification"
	payment_handlers "github.com/sahilchouksey/course-market/handlers/payment"
	review_handlers "github.com/sahilchouksey/course-market/handlers/review"
	upload_handlers "github.com/sahilchouksey/course-market/handlers/upload"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/sahilchouksey/course-market/services/storage"
	"github.com/sahilchouksey/course-market/utils/auth"
	"github.com/sahilchouksey/course-market/utils/cache"
	"github.com/sahilchouksey/course-market/utils/middleware"
	"gorm.io/gorm"
)

// Deps carries the infrastructure built at boot. Cache may be nil.
type Deps struct {
	Config        *config.EnviornmentVariable
	Store         database.Storage
	Cache         *cache.RedisCache
	Objects       storage.Store
	Publisher     events.Publisher
	Email         *services.EmailService
	Notifications *services.NotificationService
	Catalog       *services.CatalogService
}

func SetupRoutes(app *fiber.App, deps Deps) {
	cfg := deps.Config
	if cfg.JWT_SECRET == "" {
		log.Fatal("JWT_SECRET environment variable is not set")
	}

	db, ok := deps.Store.GetDB().(*gorm.DB)
	if !ok {
		log.Fatal("Failed to get GORM DB instance")
	}

	jwtManager := auth.NewJWTManager(auth.DefaultJWTConfig(cfg.JWT_SECRET, cfg.JWT_ISSUER))
	authMiddleware := middleware.NewAuthMiddleware(jwtManager, db)

	var bruteForceProtection *middleware.BruteForceProtection
	var settingsCache services.SettingsCache
	if deps.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(deps.Cache)
		settingsCache = deps.Cache
	} else {
		log.Println("[ROUTER] Redis unavailable: brute force protection and settings cache disabled")
	}

	// Services
	notifier := deps.Notifications
	catalogService := deps.Catalog
	cartService := services.NewCartService(db)
	paymentService := services.NewPaymentService(db, notifier, deps.Publisher)
	enrollmentService := services.NewEnrollmentService(db)
	certificateService := services.NewCertificateService(db, notifier, deps.Publisher)
	reviewService := services.NewReviewService(db)
	quizService := services.NewQuizService(db)
	settingsService := services.NewSettingsService(db, settingsCache)
	analyticsService := services.NewAnalyticsService(db)
	uploadService := services.NewUploadService(deps.Objects)

	// Handlers
	authHandler := auth_handlers.NewAuthHandler(db, jwtManager, bruteForceProtection, notifier, deps.Email)
	courseHandler := course_handlers.NewCourseHandler(catalogService, quizService, enrollmentService)
	cartHandler := cart_handlers.NewCartHandler(cartService)
	paymentHandler := payment_handlers.NewPaymentHandler(paymentService, catalogService)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(enrollmentService, certificateService)
	certificateHandler := certificate_handlers.NewCertificateHandler(certificateService, enrollmentService)
	reviewHandler := review_handlers.NewReviewHandler(reviewService, enrollmentService)
	notificationHandler := notification_handlers.NewNotificationHandler(notifier)
	uploadHandler := upload_handlers.NewUploadHandler(uploadService)

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    cfg.CORS_ORIGINS,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error { return handlers.HandleCheckHealth(c, deps.Store, deps.Cache) })

	// Local uploads are served by the API itself
	if local, ok := deps.Objects.(*storage.LocalStore); ok {
		app.Static(storage.PublicPath, local.Root())
	}

	api := app.Group("/api/v1")

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", bruteForceProtection.CheckLock(), authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/forgot-password", authHandler.ForgotPassword)
	authGroup.Post("/reset-password", authHandler.ResetPassword)

	// Protected auth routes
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Post("/logout-all", authMiddleware.Required(), authHandler.LogoutAll)
	authGroup.Post("/change-password", authMiddleware.Required(), authHandler.ChangePassword)

	// Profile routes (protected)
	profileGroup := api.Group("/profile", authMiddleware.Required())
	profileGroup.Get("/", authHandler.GetProfile)
	profileGroup.Put("/", authHandler.UpdateProfile)
	profileGroup.Get("/notification-preferences", authHandler.GetPreferences)
	profileGroup.Put("/notification-preferences", authHandler.UpdatePreferences)

	// Public site settings
	api.Get("/settings", func(c *fiber.Ctx) error { return admin_handlers.GetPublicSettings(c, settingsService) })

	// ==================== Catalog ====================

	courses := api.Group("/courses")
	courses.Get("/", authMiddleware.Optional(), courseHandler.ListCourses)
	courses.Get("/categories", courseHandler.ListCategories)
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)
	courses.Post("/", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "course_create", "courses"), courseHandler.CreateCourse)
	courses.Put("/:id", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "course_update", "courses"), courseHandler.UpdateCourse)
	courses.Patch("/:id/status", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "course_status", "courses"), courseHandler.SetCourseStatus)
	courses.Delete("/:id", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "course_delete", "courses"), courseHandler.DeleteCourse)

	courses.Get("/:id/lessons", authMiddleware.Optional(), courseHandler.ListLessons)
	courses.Post("/:id/lessons", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "lesson_create", "lessons"), courseHandler.CreateLesson)
	courses.Get("/:id/quizzes", authMiddleware.Optional(), courseHandler.ListQuizzes)
	courses.Post("/:id/quizzes", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "quiz_create", "quizzes"), courseHandler.CreateQuiz)

	// Reviews (nested under courses)
	courses.Get("/:id/reviews", reviewHandler.ListCourseReviews)
	courses.Get("/:id/reviews/me", authMiddleware.Required(), reviewHandler.GetMyReview)
	courses.Put("/:id/reviews", authMiddleware.Required(), reviewHandler.UpsertReview)
	api.Delete("/reviews/:id", authMiddleware.Required(), reviewHandler.DeleteReview)

	lessons := api.Group("/lessons")
	lessons.Get("/:id", authMiddleware.Required(), courseHandler.GetLesson)
	lessons.Post("/:id/complete", authMiddleware.Required(), enrollmentHandler.CompleteLesson)
	lessons.Put("/:id", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "lesson_update", "lessons"), courseHandler.UpdateLesson)
	lessons.Delete("/:id", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "lesson_delete", "lessons"), courseHandler.DeleteLesson)

	quizzes := api.Group("/quizzes")
	quizzes.Get("/:id", authMiddleware.Required(), courseHandler.GetQuiz)
	quizzes.Post("/:id/attempts", authMiddleware.Required(), courseHandler.SubmitAttempt)
	quizzes.Get("/:id/attempts", authMiddleware.Required(), courseHandler.ListAttempts)
	quizzes.Put("/:id", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "quiz_update", "quizzes"), courseHandler.UpdateQuiz)
	quizzes.Delete("/:id", authMiddleware.RequireAdmin(), middleware.AdminAuditLog(db, "quiz_delete", "quizzes"), courseHandler.DeleteQuiz)

	// ==================== Purchase flow ====================

	cart := api.Group("/cart", authMiddleware.Required())
	cart.Get("/", cartHandler.GetCart)
	cart.Get("/count", cartHandler.GetCartCount)
	cart.Post("/", cartHandler.AddToCart)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Delete("/courses/:course_id", cartHandler.RemoveCourseFromCart)
	cart.Delete("/:id", cartHandler.RemoveFromCart)

	payments := api.Group("/payments", authMiddleware.Required())
	payments.Get("/", paymentHandler.ListMyPayments)
	payments.Post("/", paymentHandler.CreatePayment)
	payments.Post("/checkout", paymentHandler.Checkout)
	payments.Get("/:id", paymentHandler.GetMyPayment)
	payments.Put("/:id/proof", paymentHandler.AttachProof)

	enrollments := api.Group("/enrollments", authMiddleware.Required())
	enrollments.Get("/", enrollmentHandler.ListMyEnrollments)
	enrollments.Get("/courses/:course_id", enrollmentHandler.GetCourseProgress)

	certificates := api.Group("/certificates")
	certificates.Get("/verify/:number", certificateHandler.VerifyCertificate)
	certificates.Get("/", authMiddleware.Required(), certificateHandler.ListMyCertificates)
	certificates.Post("/", authMiddleware.Required(), certificateHandler.ClaimCertificate)
	certificates.Get("/:id", authMiddleware.Required(), certificateHandler.GetCertificate)

	// ==================== Notifications ====================

	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Post("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/", notificationHandler.DeleteAllNotifications)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)

	api.Post("/uploads", authMiddleware.Required(), uploadHandler.Upload)

	// ==================== Admin Panel Endpoints ====================

	store := deps.Store
	admin := api.Group("/admin", authMiddleware.RequireAdmin())

	// Payments and enrollments
	admin.Get("/payments", paymentHandler.ListPayments)
	admin.Get("/payments/:id", paymentHandler.GetPayment)
	admin.Post("/payments/:id/verify", middleware.AdminAuditLog(db, "payment_verify", "payments"), paymentHandler.VerifyPayment)
	admin.Post("/payments/:id/reject", middleware.AdminAuditLog(db, "payment_reject", "payments"), paymentHandler.RejectPayment)
	admin.Get("/enrollments", enrollmentHandler.ListEnrollments)

	// Notification fan-out
	admin.Post("/notifications/broadcast", middleware.AdminAuditLog(db, "notification_broadcast", "notifications"), notificationHandler.Broadcast)
	admin.Post("/notifications/global", middleware.AdminAuditLog(db, "notification_global", "notifications"), notificationHandler.CreateGlobal)
	admin.Get("/notifications/broadcasts", notificationHandler.ListBroadcasts)
	admin.Get("/notifications/broadcasts/:id", notificationHandler.GetBroadcast)

	// Admin User Management
	admin.Get("/users/stats", func(c *fiber.Ctx) error { return admin_handlers.GetUserStats(c, store) })
	admin.Get("/users", func(c *fiber.Ctx) error { return admin_handlers.ListUsers(c, store) })
	admin.Get("/users/:id", func(c *fiber.Ctx) error { return admin_handlers.GetUser(c, store) })
	admin.Put("/users/:id", middleware.AdminAuditLog(db, "user_update", "users"), func(c *fiber.Ctx) error { return admin_handlers.UpdateUser(c, store) })
	admin.Delete("/users/:id", middleware.AdminAuditLog(db, "user_delete", "users"), func(c *fiber.Ctx) error { return admin_handlers.DeleteUser(c, store) })
	admin.Post("/users/:id/reset-password", middleware.AdminAuditLog(db, "password_reset", "users"), func(c *fiber.Ctx) error { return admin_handlers.ResetUserPassword(c, store) })

	// Admin Analytics
	admin.Get("/dashboard", func(c *fiber.Ctx) error { return admin_handlers.GetOverviewAnalytics(c, analyticsService) })
	admin.Get("/analytics/overview", func(c *fiber.Ctx) error { return admin_handlers.GetOverviewAnalytics(c, analyticsService) })
	admin.Get("/analytics/top-courses", func(c *fiber.Ctx) error { return admin_handlers.GetTopCourses(c, analyticsService) })
	admin.Get("/analytics/revenue", func(c *fiber.Ctx) error { return admin_handlers.GetRevenueAnalytics(c, analyticsService) })
	admin.Get("/analytics/enrollments", func(c *fiber.Ctx) error { return admin_handlers.GetEnrollmentAnalytics(c, analyticsService) })

	// Admin Audit Logs
	admin.Get("/audit", func(c *fiber.Ctx) error { return admin_handlers.ListAuditLogs(c, store) })
	admin.Get("/audit/:id", func(c *fiber.Ctx) error { return admin_handlers.GetAuditLog(c, store) })

	// Admin Settings Management
	admin.Get("/settings", func(c *fiber.Ctx) error { return admin_handlers.ListSettings(c, settingsService) })
	admin.Get("/settings/:key", func(c *fiber.Ctx) error { return admin_handlers.GetSetting(c, settingsService) })
	admin.Put("/settings/:key", middleware.AdminAuditLog(db, "setting_update", "settings"), func(c *fiber.Ctx) error { return admin_handlers.UpdateSetting(c, settingsService) })
	admin.Delete("/settings/:key", middleware.AdminAuditLog(db, "setting_delete", "settings"), func(c *fiber.Ctx) error { return admin_handlers.DeleteSetting(c, settingsService) })
}
