package adapter

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/domain"
	"github.com/RahidMalik/lms-chat/internal/pkg/messaging/repository/port"
	"github.com/google/uuid"
)

// MongoRepository persists conversations and messages in MongoDB.
// Field names mirror the web application's existing collections so both
// backends can share a database.
type MongoRepository struct {
	conversations *mongo.Collection
	messages      *mongo.Collection
	client        *mongo.Client
}

var _ port.Repository = (*MongoRepository)(nil)

func NewMongoRepository(client *mongo.Client, dbName string) *MongoRepository {
	db := client.Database(dbName)
	return &MongoRepository{
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
		client:        client,
	}
}

// EnsureIndexes creates the unique pair index and the per-conversation
// message scan index. Safe to call on every startup.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "pairKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = r.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

func (r *MongoRepository) UpsertConversation(ctx context.Context, c domain.Conversation) (*domain.Conversation, error) {
	// Single conditional upsert: the unique pairKey index plus $setOnInsert
	// guarantee at most one conversation per pair under concurrent first-sends.
	filter := bson.M{"pairKey": c.PairKey}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          uuid.NewString(),
		"participants": c.Participants,
		"pairKey":      c.PairKey,
		"lastMessage":  "",
		"createdAt":    c.CreatedAt,
		"updatedAt":    c.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out domain.Conversation
	if err := r.conversations.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MongoRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var out domain.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MongoRepository) ListConversationsByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cur, err := r.conversations.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var convs []domain.Conversation
	if err := cur.All(ctx, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *MongoRepository) AppendMessage(ctx context.Context, m domain.Message) error {
	if _, err := r.messages.InsertOne(ctx, m); err != nil {
		return err
	}
	// Preview update is a second single-document write. If it fails the
	// message log stays authoritative and the preview self-heals on the
	// next append.
	_, err := r.conversations.UpdateOne(ctx,
		bson.M{"_id": m.ConversationID},
		bson.M{"$set": bson.M{"lastMessage": m.Text, "updatedAt": m.CreatedAt}},
	)
	return err
}

func (r *MongoRepository) ListMessagesByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.messages.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []domain.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MongoRepository) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var out domain.Message
	err := r.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *MongoRepository) MarkMessageSeen(ctx context.Context, id string) error {
	res, err := r.messages.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoRepository) MarkConversationSeen(ctx context.Context, conversationID, userID string) (int64, error) {
	res, err := r.messages.UpdateMany(ctx,
		bson.M{"conversationId": conversationID, "receiverId": userID, "seen": false},
		bson.M{"$set": bson.M{"seen": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
