package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventorias/eventorias/internal/app"
	"github.com/eventorias/eventorias/internal/auth"
	"github.com/eventorias/eventorias/internal/blob"
	"github.com/eventorias/eventorias/internal/geocode"
	"github.com/eventorias/eventorias/internal/logger"
	"github.com/eventorias/eventorias/internal/prefs"
	internalhttp "github.com/eventorias/eventorias/internal/server/http"
	"github.com/eventorias/eventorias/internal/storagebuilder"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "./configs/config.yaml", "Path to configuration file")
	log.SetFormatter(&log.TextFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.WarnLevel)
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to load .env file: %v", err)
	}

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
	stor, err := storagebuilder.New(config.Storage)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	prefStore, err := newPrefStore(config.Prefs)
	if err != nil {
		log.Errorf("failed to start %v", err)
		return
	}

	uploader := &blob.FSUploader{Root: config.Media.Root, BaseURL: config.Media.BaseURL}
	application := app.New(
		stor,
		uploader,
		auth.StaticAuth{},
		geocode.NewNominatim(config.Geocode.Endpoint),
		config.Geocode.MapsAPIKey,
	)
	server := internalhttp.NewServer(config.Server, application, auth.NewTokenVerifier(config.Auth.Secret), prefStore)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			log.Error("failed to stop http server: " + err.Error())
		}
	}()

	log.Info("eventorias is running...")

	if err := server.Start(ctx); err != nil {
		log.Error("failed to start http server: " + err.Error())
		cancel()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
		defer cancel()
		if err := stor.Close(ctx); err != nil {
			log.Errorf("failed to close storage: %v", err)
		}
		os.Exit(1) //nolint:gocritic
	}
	ctx, cancel = context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()
	if err := stor.Close(ctx); err != nil {
		log.Errorf("failed to close storage: %v", err)
	}
}

func newPrefStore(config PrefsConfig) (prefs.Store, error) {
	if config.File == "" {
		return prefs.NewMemoryStore(), nil
	}
	return prefs.NewFileStore(config.File)
}
