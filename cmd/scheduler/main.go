package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/logger"
	"github.com/eventorias/eventorias/internal/rabbit"
	"github.com/eventorias/eventorias/internal/storage"
	"github.com/eventorias/eventorias/internal/storagebuilder"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/scheduler_config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func newMessage(e event.Event) rabbit.Message {
	return rabbit.Message{
		EventID:  e.ID,
		Title:    e.Title,
		StartsAt: e.StartsAt(),
		Location: e.Location,
	}
}

// reminderScan publishes one reminder per upcoming event. The sent map keeps
// the scan from re-publishing an event whose start time has not changed.
type reminderScan struct {
	stor   storage.Storage
	rabbit *rabbit.Provider
	window time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
}

func (s *reminderScan) run(ctx context.Context) {
	now := time.Now()
	events, err := s.stor.ListEvents(ctx, event.SortByDate)
	if err != nil {
		log.Errorf("failed to get events: %s", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		startsAt := e.StartsAt()
		if startsAt.Before(now) || startsAt.After(now.Add(s.window)) {
			continue
		}
		if sentAt, ok := s.sent[e.ID]; ok && sentAt.Equal(startsAt) {
			continue
		}

		log.Debugf("send reminder for event %q", e.ID)
		data, err := json.Marshal(newMessage(e))
		if err != nil {
			log.Errorf("failed to marshal reminder: %s", err)
			continue
		}
		if err := s.rabbit.Publish(data); err != nil {
			log.Errorf("failed to publish reminder: %s", err)
			continue
		}
		s.sent[e.ID] = startsAt
	}
}

// cleanup drops events that started longer ago than the retention window.
func cleanup(ctx context.Context, stor storage.Storage, retention time.Duration) {
	cutoff := time.Now().Add(-retention)
	events, err := stor.ListEvents(ctx, event.SortNone)
	if err != nil {
		log.Errorf("failed to get events for cleanup: %s", err)
		return
	}
	for _, e := range events {
		if e.StartsAt().After(cutoff) {
			continue
		}
		if err := stor.RemoveEvent(ctx, e.ID); err != nil {
			log.Errorf("failed to remove event %q: %s", e.ID, err)
		}
	}
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

	r := rabbit.New(config.Rabbit)
	if err := r.Connect(); err != nil {
		log.Errorf("failed to connect to rabbit: %v", err)
		return
	}
	defer r.Close()

	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		stor.Close(ctx)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	scan := &reminderScan{
		stor:   stor,
		rabbit: r,
		window: config.Scheduler.ReminderWindow,
		sent:   make(map[string]time.Time),
	}

	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() { scan.run(ctx) }); err != nil {
		log.Errorf("failed to schedule reminder scan: %v", err)
		return
	}
	if _, err := c.AddFunc("@daily", func() { cleanup(ctx, stor, config.Scheduler.Retention) }); err != nil {
		log.Errorf("failed to schedule cleanup: %v", err)
		return
	}
	c.Start()
	defer c.Stop()

	log.Info("scheduler is running...")
	scan.run(ctx)

	<-ctx.Done()
}
