package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"housingadmin/console/config"
	"housingadmin/console/internal/api"
	"housingadmin/console/internal/client"
	"housingadmin/console/internal/console"
	"housingadmin/console/internal/database"
	"housingadmin/console/internal/geocoding"
	"housingadmin/console/internal/models"
	"housingadmin/console/internal/processor"
	"housingadmin/console/internal/queue"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/scheduler"
	"housingadmin/console/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.WithError(err).Warn("Failed to read .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.WithField("level", cfg.Server.LogLevel).Warn("Unknown log level, keeping info")
	}

	logger.Infof("Using database at: %s", cfg.Server.DatabasePath)
	db, err := database.NewDatabase(cfg.Server.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	failures := processor.NewFailureWriter(db, queue.New[database.UploadFailure](cfg.Failures.QueueSize, logger), processor.Options{
		MaxRetries: cfg.Failures.MaxRetries,
		RetryDelay: cfg.Failures.RetryDelay,
	}, logger)
	failures.Start()
	defer failures.Stop()

	transitions, err := config.LoadTransitions(cfg.Status.TransitionsFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load status transitions")
	}
	if err := transitions.Validate(statusNames()); err != nil {
		logger.WithError(err).Fatal("Invalid status transitions")
	}

	uploads := &console.Uploads{Failures: failures, Logger: logger}
	var uploader storage.Uploader
	if cfg.StorageConfigured() {
		bucket, err := storage.NewBucket(storage.BucketConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			Bucket:    cfg.Storage.Bucket,
			UseSSL:    cfg.Storage.UseSSL,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize object storage")
		}
		uploader = bucket
	} else {
		logger.Warn("Object storage is not configured, uploads will be skipped")
	}
	uploads.Images = storage.NewBatch(uploader, storage.ImagePolicy.WithMaxSize(cfg.Storage.MaxFileSize), logger)
	uploads.Documents = storage.NewBatch(uploader, storage.DocumentPolicy.WithMaxSize(cfg.Storage.MaxFileSize), logger)

	if cfg.Geocoding.Enabled {
		uploads.Geocoder = geocoding.NewGeocoder(logger, geocoding.Options{
			BaseURL:   cfg.Geocoding.BaseURL,
			UserAgent: cfg.Geocoding.UserAgent,
			CacheFile: cfg.Geocoding.CacheFile,
			Interval:  cfg.Geocoding.Interval,
		})
	}

	paths := client.Paths{
		Admins:     cfg.Backend.AdminsPath,
		Users:      cfg.Backend.UsersPath,
		Properties: cfg.Backend.PropertiesPath,
		Listings:   cfg.Backend.ListingsPath,
		Reports:    cfg.Backend.ReportsPath,
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}

	cookies := sessions.NewCookieStore([]byte(cfg.Server.SessionSecret))
	cookies.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.Maintenance.TokenRetention.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	handler := api.NewHandler(api.Deps{
		Logger:      logger,
		Tokens:      db,
		Cookies:     cookies,
		Failures:    db,
		Transitions: resource.Transitions(transitions),
		Uploads:     uploads,
		NewClients: func(tokens client.TokenSource) *client.Set {
			return client.NewSet(cfg.Backend.URL, paths, tokens, client.WithHTTPClient(httpClient), client.WithLogger(logger))
		},
	})

	maintenance := scheduler.NewScheduler(logger,
		scheduler.Job{
			Name:  "purge session tokens",
			Every: cfg.Maintenance.Interval,
			Run: func(context.Context) error {
				n, err := db.PurgeTokens(time.Now().Add(-cfg.Maintenance.TokenRetention))
				if err != nil {
					return err
				}
				if n > 0 {
					logger.WithField("count", n).Info("Purged old session tokens")
				}
				if dropped := handler.ForgetIdleSessions(); dropped > 0 {
					logger.WithField("count", dropped).Info("Dropped idle session workspaces")
				}
				return nil
			},
		},
		scheduler.Job{
			Name:  "prune upload failures",
			Every: cfg.Maintenance.Interval,
			Run: func(ctx context.Context) error {
				_, err := db.PruneUploadFailures(ctx, time.Now().Add(-cfg.Maintenance.FailureRetention))
				return err
			},
		},
	)
	maintenance.Start()
	defer maintenance.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(api.AccessLog(logger), gin.Recovery())
	api.SetupRoutes(router, handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: router}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.WithField("backend", cfg.Backend.URL).Infof("Starting console on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}

func statusNames() []string {
	out := make([]string, len(models.RegistrationStatuses))
	for i, s := range models.RegistrationStatuses {
		out[i] = string(s)
	}
	return out
}
