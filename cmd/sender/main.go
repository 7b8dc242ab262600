package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/eventorias/eventorias/internal/logger"
	"github.com/eventorias/eventorias/internal/prefs"
	"github.com/eventorias/eventorias/internal/rabbit"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/sender_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	config, err := NewConfig(configFile)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	err = logger.PrepareLogger(config.Logger)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	prefStore, err := newPrefStore(config.Prefs)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	r := rabbit.New(config.Rabbit)
	if err := r.Connect(); err != nil {
		log.Errorf("failed to connect to rabbit: %v", err)
		return
	}
	defer r.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	log.Info("sender is running...")

	err = r.Consume(ctx, func(msg amqp.Delivery) {
		m := rabbit.Message{}
		if err := json.Unmarshal(msg.Body, &m); err != nil {
			log.Errorf("failed to parse message: %s", err)
			return
		}
		if m.UserID != "" && !prefStore.NotificationsEnabled(m.UserID) {
			log.Debugf("notifications disabled for user %q, dropping reminder for event %q", m.UserID, m.EventID)
			return
		}
		log.WithField("event", m.EventID).WithField("startsAt", m.StartsAt).
			Infof("push notification: %s starts at %s (%s)", m.Title, m.StartsAt, m.Location)
	})
	if err != nil {
		log.Errorf("failed to consume: %v", err)
	}
}

func newPrefStore(config PrefsConfig) (prefs.Store, error) {
	if config.File == "" {
		return prefs.NewMemoryStore(), nil
	}
	return prefs.NewFileStore(config.File)
}
