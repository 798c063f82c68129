// Package mongo implements the repository interfaces on MongoDB.
//
// The collection layout matches the documents the service has always written:
// collection "codesnippets", ObjectID primary keys, and an optional "user"
// field. Older documents store the owner as an ObjectID, newer ones may store
// a plain string identity; both are read back as the same string form.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sakif/codegen-gateway/internal/apperror"
	"github.com/sakif/codegen-gateway/internal/model"
	"github.com/sakif/codegen-gateway/internal/repository"
)

// CollectionName is where snippets live.
const CollectionName = "codesnippets"

var _ repository.Store = (*Store)(nil)

// Store is a MongoDB-backed snippet repository.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// New connects to uri, verifies the primary is reachable and ensures the
// owner/createdAt index exists.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connecting: %w", err)
	}

	s := newWithCollection(client.Database(database).Collection(CollectionName))

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	_, err = s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: creating index: %w", err)
	}

	return s, nil
}

func newWithCollection(coll *mongo.Collection) *Store {
	return &Store{
		client: coll.Database().Client(),
		coll:   coll,
	}
}

// Ping checks the primary.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo: ping: %w", err)
	}
	return nil
}

// Close disconnects the client, giving in-flight operations a few seconds.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// snippetDocument is the on-disk shape. User is decoded as `any` because it
// may be an ObjectID (legacy) or a string.
type snippetDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Code        string             `bson:"code"`
	Language    string             `bson:"language"`
	Framework   string             `bson:"framework"`
	User        any                `bson:"user,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d *snippetDocument) toModel() *model.Snippet {
	return &model.Snippet{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Code:        d.Code,
		Language:    d.Language,
		Framework:   d.Framework,
		Owner:       ownerString(d.User),
		CreatedAt:   d.CreatedAt,
	}
}

func ownerString(v any) string {
	switch u := v.(type) {
	case primitive.ObjectID:
		return u.Hex()
	case string:
		return u
	default:
		return ""
	}
}

// ownerValue is what gets stored: an identity that looks like an ObjectID is
// stored as one so it lines up with legacy documents.
func ownerValue(owner string) any {
	if owner == "" {
		return nil
	}
	if oid, err := primitive.ObjectIDFromHex(owner); err == nil {
		return oid
	}
	return owner
}

// ownerFilter matches both storage forms of the same identity.
func ownerFilter(owner string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(owner); err == nil {
		return bson.M{"user": bson.M{"$in": bson.A{owner, oid}}}
	}
	return bson.M{"user": owner}
}

// Create inserts a new document and writes the generated id and timestamp
// back into snippet. Mongo keeps millisecond precision, so CreatedAt is
// truncated up front to match what a later read returns.
func (s *Store) Create(ctx context.Context, snippet *model.Snippet) error {
	doc := snippetDocument{
		ID:          primitive.NewObjectID(),
		Title:       snippet.Title,
		Description: snippet.Description,
		Code:        snippet.Code,
		Language:    snippet.Language,
		Framework:   snippet.Framework,
		User:        ownerValue(snippet.Owner),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: creating snippet: %w", err)
	}

	snippet.ID = doc.ID.Hex()
	snippet.CreatedAt = doc.CreatedAt
	return nil
}

// GetByID returns NotFound both for a well-formed id with no document and
// for an id that cannot be an ObjectID at all.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("Snippet")
	}

	var doc snippetDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("Snippet")
		}
		return nil, fmt.Errorf("mongo: getting snippet %s: %w", id, err)
	}

	return doc.toModel(), nil
}

func (s *Store) ListByOwner(ctx context.Context, owner string) ([]model.Snippet, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := s.coll.Find(ctx, ownerFilter(owner), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing snippets: %w", err)
	}

	var docs []snippetDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decoding snippets: %w", err)
	}

	snippets := make([]model.Snippet, 0, len(docs))
	for i := range docs {
		snippets = append(snippets, *docs[i].toModel())
	}
	return snippets, nil
}

func (s *Store) Update(ctx context.Context, snippet *model.Snippet) error {
	oid, err := primitive.ObjectIDFromHex(snippet.ID)
	if err != nil {
		return apperror.NotFound("Snippet")
	}

	set := bson.M{
		"title":       snippet.Title,
		"description": snippet.Description,
		"code":        snippet.Code,
		"language":    snippet.Language,
		"framework":   snippet.Framework,
	}

	result, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongo: updating snippet %s: %w", snippet.ID, err)
	}
	if result.MatchedCount == 0 {
		return apperror.NotFound("Snippet")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperror.NotFound("Snippet")
	}

	result, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo: deleting snippet %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return apperror.NotFound("Snippet")
	}
	return nil
}
