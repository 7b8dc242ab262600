package storagebuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/eventorias/eventorias/internal/storage"
	memorystorage "github.com/eventorias/eventorias/internal/storage/memory"
	mongostorage "github.com/eventorias/eventorias/internal/storage/mongo"
	sqlstorage "github.com/eventorias/eventorias/internal/storage/sql"
)

const connectTimeout = 15 * time.Second

type Config struct {
	StorageType string
	Database    sqlstorage.Config
	Mongo       mongostorage.Config
}

func New(config Config) (storage.Storage, error) {
	switch config.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "sql":
		s := sqlstorage.New(config.Database)
		if err := connect(s); err != nil {
			return nil, fmt.Errorf("failed to connect to database %s %d: %w",
				config.Database.Host, config.Database.Port, err)
		}
		return s, nil
	case "mongo":
		s := mongostorage.New(config.Mongo)
		if err := connect(s); err != nil {
			return nil, fmt.Errorf("failed to connect to mongo %s: %w", config.Mongo.URI, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %s", config.StorageType)
	}
}

func connect(s storage.Storage) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.Connect(ctx)
}
