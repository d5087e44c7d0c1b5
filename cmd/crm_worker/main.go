package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/crmgate/crmgate/config"
	"github.com/crmgate/crmgate/internal/infrastructure/bitrix"
	"github.com/crmgate/crmgate/internal/queue"
	"github.com/crmgate/crmgate/pkg/helpers"
	"github.com/crmgate/crmgate/pkg/mailer"
)

// crm_worker consumes registration sync jobs: for each new user it creates a
// Bitrix24 contact and sends the Mailgun welcome email. Both steps are
// independent; either can be disabled through configuration.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-crm-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQCRMQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// Prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	if _, err := ch.QueueDeclare(cfg.RabbitMQCRMQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQCRMQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	crm := bitrix.NewClient(cfg.BitrixWebhookBase(), nil, logger)

	var mg *mailer.Mailgun
	if cfg.MailSendEnabled && cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" && cfg.MailgunSender != "" {
		mg = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	} else {
		logger.Info("mailgun disabled; welcome emails will be skipped")
	}

	ctx := context.Background()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			var job queue.SyncJob
			if err := json.Unmarshal(msg.Body, &job); err != nil {
				logger.WithError(err).Warn("bad message, dropping")
				_ = msg.Nack(false, false)
				continue
			}

			jobCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			handle(jobCtx, crm, mg, job, logger)
			cancel()

			_ = msg.Ack(false)
		}
	}()

	logger.Infof("crm worker consuming %q", cfg.RabbitMQCRMQueue)
	<-stop
	logger.Info("shutting down crm worker")
	_ = ch.Close()
	<-done
}

func handle(ctx context.Context, crm *bitrix.Client, mg *mailer.Mailgun, job queue.SyncJob, logger *logrus.Logger) {
	if crm.Configured() {
		id, err := crm.CreateContact(ctx, bitrix.ContactInput{
			Name:    job.Name,
			Surname: job.Surname,
			Email:   job.Email,
			Phone:   job.Phone,
		})
		if err != nil {
			logger.WithError(err).WithField("user_id", job.UserID).Error("bitrix contact creation failed")
		} else {
			logger.WithField("user_id", job.UserID).WithField("contact_id", id).Info("bitrix contact created")
		}
	}

	if mg != nil {
		name := job.Name
		if name == "" {
			name = job.Email
		}
		subject := "Welcome aboard"
		text := fmt.Sprintf("Hi %s,\n\nYour account is ready. You can sign in with %s.\n", name, job.Email)
		if err := mg.Send(ctx, job.Email, subject, text, ""); err != nil {
			logger.WithError(err).WithField("user_id", job.UserID).Error("welcome email failed")
		}
	}
}
