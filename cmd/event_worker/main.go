package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-user-directory/config"
	"github.com/oksasatya/go-user-directory/internal/application"
	"github.com/oksasatya/go-user-directory/internal/infrastructure/searchindex"
	"github.com/oksasatya/go-user-directory/pkg/helpers"
	"github.com/oksasatya/go-user-directory/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-event-worker", cfg.Env, cfg.LogLevel)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQUserEventsQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	handler := &application.EventHandler{
		AppName:     cfg.AppName,
		CompanyName: cfg.CompanyName,
		Logger:      logger,
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("elasticsearch client: %v", err)
		}
		indexer := searchindex.NewUserIndexer(es, cfg.ESUsersIndex)
		if err := indexer.EnsureIndex(context.Background()); err != nil {
			log.Fatalf("elasticsearch index %s: %v", cfg.ESUsersIndex, err)
		}
		handler.Index = indexer
	}

	if cfg.MailSendEnabled {
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		if !mg.Configured() {
			log.Fatal("MAIL_SEND_ENABLED=true but Mailgun not configured")
		}
		handler.Mail = mg
	} else {
		logger.Info("MAIL_SEND_ENABLED=false; welcome emails disabled")
	}

	conn, ch, err := helpers.OpenRabbitChannel(cfg.RabbitMQURL, cfg.RabbitMQUserEventsQueue)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer func() { _ = conn.Close() }()
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQUserEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx := context.Background()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			c, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := handler.Handle(c, msg.Body)
			cancel()

			switch {
			case err == nil:
				_ = msg.Ack(false)
			case errors.Is(err, application.ErrBadEvent):
				logger.WithError(err).WithField("message_id", msg.MessageId).Warn("dropping user event")
				_ = msg.Nack(false, false)
			default:
				logger.WithError(err).WithFields(logrus.Fields{
					"message_id":  msg.MessageId,
					"redelivered": msg.Redelivered,
				}).Error("user event failed, requeueing")
				_ = msg.Nack(false, true)
			}
		}
		close(done)
	}()

	logger.Infof("event worker listening on queue=%s", cfg.RabbitMQUserEventsQueue)
	<-stop
	logger.Info("shutting down...")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
