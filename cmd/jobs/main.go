// Command jobs runs the scheduled background work: the periodic
// reminder dispatch and the event status refresh. It shares all
// configuration with the server and can run on a separate host.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-slot-booking/internal/config"
	"github.com/iliyamo/event-slot-booking/internal/database"
	"github.com/iliyamo/event-slot-booking/internal/model"
	"github.com/iliyamo/event-slot-booking/internal/queue"
	"github.com/iliyamo/event-slot-booking/internal/repository"
	"github.com/iliyamo/event-slot-booking/internal/service"
)

func main() {
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

	eventRepo := repository.NewEventRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	publisher := queue.NewPublisher(cfg.AMQPURL, logger)

	offsets := []model.ReminderOffset{
		{Type: model.ReminderThreeDaysBefore, Hours: cfg.ReminderThreeDaysHours},
		{Type: model.ReminderOneDayBefore, Hours: cfg.ReminderOneDayHours},
		{Type: model.ReminderOneHourBefore, Hours: cfg.ReminderOneHourHours},
	}
	reminders := service.NewReminders(bookingRepo, eventRepo, publisher, offsets, logger)
	statuses := service.NewStatuses(eventRepo, logger)

	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.ReminderInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			sum, err := reminders.Dispatch(ctx, time.Now().UTC())
			if err != nil {
				logger.WithError(err).Error("reminder dispatch failed")
				return
			}
			logger.WithFields(logrus.Fields{
				"due": sum.Due, "sent": sum.Sent, "failed": sum.Failed,
			}).Info("reminder dispatch finished")
		}),
	)
	if err != nil {
		log.Fatalf("reminder job: %v", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.StatusRefreshInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			sum, err := statuses.Refresh(ctx, time.Now().UTC())
			if err != nil {
				logger.WithError(err).Error("status refresh failed")
				return
			}
			logger.WithFields(logrus.Fields{
				"events": sum.Events, "updated": sum.Updated,
			}).Info("status refresh finished")
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		log.Fatalf("status job: %v", err)
	}

	sched.Start()
	logger.WithFields(logrus.Fields{
		"reminder_interval": cfg.ReminderInterval.String(),
		"status_interval":   cfg.StatusRefreshInterval.String(),
	}).Info("jobs scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := sched.Shutdown(); err != nil {
		logger.WithError(err).Warn("scheduler shutdown failed")
	}
	logger.Info("jobs scheduler stopped")
}
