// Command server runs the booking HTTP API together with the queue
// notifier.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-slot-booking/internal/config"
	"github.com/iliyamo/event-slot-booking/internal/database"
	"github.com/iliyamo/event-slot-booking/internal/handler"
	"github.com/iliyamo/event-slot-booking/internal/mailer"
	appmw "github.com/iliyamo/event-slot-booking/internal/middleware"
	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/queue"
	"github.com/iliyamo/event-slot-booking/internal/repository"
	"github.com/iliyamo/event-slot-booking/internal/router"
	"github.com/iliyamo/event-slot-booking/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	db, err := database.Open(database.Config{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxOpenConns: cfg.DBMaxOpenConns, MaxIdleConns: cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime, PingTimeout: cfg.DBPingTimeout,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the rate limiter, the response cache
	// and the notifier throttle all degrade to no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable, rate limiting and caching disabled")
	}

	eventRepo := repository.NewEventRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	adminRepo := repository.NewAdminRepo(db)

	publisher := queue.NewPublisher(cfg.AMQPURL, logger)

	offsets := []model.ReminderOffset{
		{Type: model.ReminderThreeDaysBefore, Hours: cfg.ReminderThreeDaysHours},
		{Type: model.ReminderOneDayBefore, Hours: cfg.ReminderOneDayHours},
		{Type: model.ReminderOneHourBefore, Hours: cfg.ReminderOneHourHours},
	}

	bookings := service.NewBookings(eventRepo, bookingRepo, publisher, logger)
	reminders := service.NewReminders(bookingRepo, eventRepo, publisher, offsets, logger)
	statuses := service.NewStatuses(eventRepo, logger)
	auth := service.NewAuth(adminRepo, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost)

	// Seed the first admin account when the deployment asks for one.
	if cfg.AdminEmail != "" && cfg.AdminPass != "" {
		if err := auth.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPass); err != nil {
			logger.WithError(err).Fatal("admin bootstrap failed")
		}
	}

	// The notifier consumes the broker queues and emails holders. SMTP
	// is optional; without it deliveries land in logs/notifications.log.
	var m *mailer.Mailer
	if cfg.SMTPHost != "" {
		m, err = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
		if err != nil {
			logger.WithError(err).Warn("smtp client init failed, falling back to log delivery")
			m = nil
		}
	}
	notifier := queue.NewNotifier(cfg.AMQPURL, m, rdb, cfg.PublicBaseURL, logger)
	go notifier.Run()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(appmw.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterPublic(e, handler.NewPublicHandler(eventRepo, bookings), config.LoadCacheConfig(), rdb)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings))
	router.RegisterAdmin(e, handler.NewAdminHandler(auth, bookings, reminders, statuses), cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("server starting")
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
