package app

import (
	"fmt"
	"log"
	"os"

	"github.com/sahilchouksey/course-market/api"
	"github.com/sahilchouksey/course-market/config"
	"github.com/sahilchouksey/course-market/database"
	"github.com/sahilchouksey/course-market/router"
	"github.com/sahilchouksey/course-market/services"
	"github.com/sahilchouksey/course-market/services/cron"
	"github.com/sahilchouksey/course-market/services/events"
	"github.com/sahilchouksey/course-market/services/storage"
	"github.com/sahilchouksey/course-market/utils/cache"
	"gorm.io/gorm"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		log.Printf("[BOOT] .env not loaded: %v; using process environment", err)
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		print("If not running, run the following command:\n")
		print("  make docker-up   (for Docker setup)\n")
		print("  make db-up       (for local PostgreSQL)\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		print("Error running migrations:\n")
		return err
	}

	db, ok := store.GetDB().(*gorm.DB)
	if !ok {
		return fmt.Errorf("database store does not expose *gorm.DB")
	}

	redisCache := connectRedis(getEnv)

	objects, err := newObjectStore(getEnv)
	if err != nil {
		return err
	}

	publisher := newPublisher(getEnv)

	notifier := services.NewNotificationService(db, services.NotificationConfig{
		BatchSize: getEnv.FANOUT_BATCH_SIZE,
		Async:     true,
	})
	catalog := services.NewCatalogService(db, notifier)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(db, notifier, catalog)
		if err := cronManager.Start(); err != nil {
			print("Warning: Failed to start cron jobs\n")
			print("Error: ", err.Error(), "\n")
			// Don't fail the app, just log the warning
		}
	}

	// Defer closing connections and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		if err := publisher.Close(); err != nil {
			log.Printf("[BOOT] event publisher close: %v", err)
		}
		if redisCache != nil {
			redisCache.Close()
		}
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT), store)
	app := server.GetEngine()

	// Setup Routes (security, access log and recover middleware included)
	router.SetupRoutes(app, router.Deps{
		Config:        getEnv,
		Store:         store,
		Cache:         redisCache,
		Objects:       objects,
		Publisher:     publisher,
		Email:         services.NewEmailService(),
		Notifications: notifier,
		Catalog:       catalog,
	})

	// Get the PORT & Start the Server
	return server.Run()
}

// connectRedis returns nil when Redis is not configured or unreachable
func connectRedis(env *config.EnviornmentVariable) *cache.RedisCache {
	if env.REDIS_URL == "" {
		log.Println("[BOOT] REDIS_URL not set; running without cache")
		return nil
	}
	redisCache, err := cache.NewRedisCache(env.REDIS_URL, env.REDIS_PASSWORD, "course_market:")
	if err != nil {
		log.Printf("[BOOT] Warning: Failed to connect to Redis: %v. Cache and brute force protection disabled.", err)
		return nil
	}
	log.Println("[BOOT] Redis connected")
	return redisCache
}

// newObjectStore uses Spaces when credentials are present, local disk otherwise
func newObjectStore(env *config.EnviornmentVariable) (storage.Store, error) {
	if env.SpacesConfigured() {
		spaces, err := storage.NewSpacesStore(storage.SpacesConfig{
			AccessKey: env.DO_SPACES_ACCESS_KEY,
			SecretKey: env.DO_SPACES_SECRET_KEY,
			Bucket:    env.DO_SPACES_BUCKET,
			Region:    env.DO_SPACES_REGION,
			Endpoint:  env.DO_SPACES_ENDPOINT,
			CDNURL:    env.DO_SPACES_CDN_URL,
			KeyPrefix: "course-market",
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[BOOT] Uploads stored in Spaces bucket %s", env.DO_SPACES_BUCKET)
		return spaces, nil
	}

	local, err := storage.NewLocalStore(env.UPLOAD_DIR, env.PUBLIC_BASE_URL)
	if err != nil {
		return nil, err
	}
	log.Printf("[BOOT] Uploads stored on disk at %s", env.UPLOAD_DIR)
	return local, nil
}

// newPublisher falls back to a no-op publisher when RabbitMQ is absent
func newPublisher(env *config.EnviornmentVariable) events.Publisher {
	if env.RABBITMQ_URL == "" {
		log.Println("[BOOT] RABBITMQ_URL not set; domain events are not published")
		return events.NoopPublisher{}
	}
	publisher, err := events.NewAMQPPublisher(env.RABBITMQ_URL, env.RABBITMQ_EXCHANGE)
	if err != nil {
		log.Printf("[BOOT] Warning: RabbitMQ unavailable: %v. Domain events disabled.", err)
		return events.NoopPublisher{}
	}
	log.Printf("[BOOT] Publishing domain events to exchange %s", env.RABBITMQ_EXCHANGE)
	return publisher
}
