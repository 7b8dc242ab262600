package mongostorage

import (
	"context"
	"fmt"
	"time"

	"github.com/eventorias/eventorias/internal/event"
	"github.com/eventorias/eventorias/internal/storage"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "events"

type Config struct {
	URI      string
	Database string
}

// Storage keeps the events collection in MongoDB. Live queries ride on
// change streams, so this backend requires a replica set.
type Storage struct {
	uri      string
	database string
	client   *mongo.Client
	coll     *mongo.Collection
}

func New(config Config) *Storage {
	return &Storage{uri: config.URI, database: config.Database}
}

func (s *Storage) Connect(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return storage.ErrConnectionFailed
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Errorf("failed to ping: %v", err)
		return storage.ErrConnectionFailed
	}
	s.client = client
	s.coll = client.Database(s.database).Collection(collectionName)
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) AddEvent(ctx context.Context, e *event.Event) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	doc := bson.M(event.Encode(*e))
	doc["_id"] = e.ID
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
		}
		return "", err
	}
	return e.ID, nil
}

func (s *Storage) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return event.Event{}, fmt.Errorf("failed to get event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	if err != nil {
		return event.Event{}, err
	}
	e, ok := event.Decode(document(raw))
	if !ok {
		return event.Event{}, fmt.Errorf("failed to decode event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return e, nil
}

func (s *Storage) UpdateEvent(ctx context.Context, id string, e event.Event) error {
	e.ID = id
	if e.CreatedAt.IsZero() {
		existing, err := s.GetEvent(ctx, id)
		if err != nil {
			return err
		}
		e.CreatedAt = existing.CreatedAt
	}

	doc := bson.M(event.Encode(e))
	doc["_id"] = id
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return nil
}

func (s *Storage) RemoveEvent(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("failed to remove event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return nil
}

func (s *Storage) ListEvents(ctx context.Context, opt event.SortOption) ([]event.Event, error) {
	findOpts := options.Find()
	if sortDoc := sortSpec(opt); sortDoc != nil {
		findOpts.SetSort(sortDoc)
	}

	cursor, err := s.coll.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, err
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, err
	}

	events := make([]event.Event, 0, len(raws))
	for _, raw := range raws {
		if e, ok := event.Decode(document(raw)); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *Storage) Subscribe(ctx context.Context, opt event.SortOption) (*storage.Subscription, error) {
	stream, err := s.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	streamCtx, stop := context.WithCancel(context.Background())
	out := make(chan storage.Delivery)

	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		// Initial snapshot, then one re-query per change notification.
		for {
			d := storage.Delivery{}
			d.Events, d.Err = s.ListEvents(streamCtx, opt)
			select {
			case out <- d:
			case <-streamCtx.Done():
				return
			}

			if !stream.Next(streamCtx) {
				if err := stream.Err(); err != nil && streamCtx.Err() == nil {
					select {
					case out <- storage.Delivery{Err: err}:
					case <-streamCtx.Done():
					}
				}
				return
			}
		}
	}()

	return storage.NewSubscription(out, stop), nil
}

// document converts a decoded BSON map back into the codec's document form.
// Timestamps come out of BSON as primitive.DateTime.
func document(raw bson.M) map[string]any {
	doc := make(map[string]any, len(raw))
	for k, v := range raw {
		if dt, ok := v.(primitive.DateTime); ok {
			doc[k] = dt.Time().UTC()
			continue
		}
		doc[k] = v
	}
	return doc
}

func sortSpec(opt event.SortOption) bson.D {
	switch opt {
	case event.SortByDate:
		return bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}}
	case event.SortByCategory:
		return bson.D{{Key: "category", Value: 1}}
	case event.SortByCreation:
		return bson.D{{Key: "createdAt", Value: -1}}
	default:
		return nil
	}
}
