package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
)

// MongoStore persists transactions in a MongoDB collection. The conditional
// terminal transition is a single FindOneAndUpdate filtered on the current
// status, so concurrent resolvers for the same checkout request id cannot
// both win.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("transactions")}
}

// EnsureIndexes creates the uniqueness constraint on checkout_request_id and
// the listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "checkout_request_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := s.col.Indexes().CreateMany(ctx, indexModels); err != nil {
		log.Printf("Failed to create transaction indexes: %v", err)
		return fmt.Errorf("failed to create transaction indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := s.col.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		log.Printf("Failed to insert transaction %s: %v", tx.CheckoutRequestID, err)
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var tx models.Transaction
	err := s.col.FindOne(ctx, bson.M{"checkout_request_id": checkoutRequestID}).Decode(&tx)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		log.Printf("Failed to fetch transaction %s: %v", checkoutRequestID, err)
		return nil, fmt.Errorf("failed to fetch transaction: %w", err)
	}
	return &tx, nil
}

func (s *MongoStore) ResolveIfPending(ctx context.Context, checkoutRequestID string, res Resolution) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"status":      res.Status,
		"result_code": res.ResultCode,
		"result_desc": res.ResultDesc,
		"updated_at":  time.Now().UTC(),
	}
	if res.Status == models.StatusSuccess {
		set["receipt_number"] = res.ReceiptNumber
	}

	filter := bson.M{
		"checkout_request_id": checkoutRequestID,
		"status":              models.StatusPending,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tx models.Transaction
	err := s.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&tx)
	if err == nil {
		return &tx, nil
	}
	if err != mongo.ErrNoDocuments {
		log.Printf("Failed to resolve transaction %s: %v", checkoutRequestID, err)
		return nil, fmt.Errorf("failed to resolve transaction: %w", err)
	}

	// No pending record matched: either the id is unknown or someone else
	// already resolved it.
	if _, getErr := s.Get(ctx, checkoutRequestID); getErr != nil {
		if IsNotFound(getErr) {
			return nil, ErrNotFound
		}
		return nil, getErr
	}
	return nil, ErrNotPending
}

func (s *MongoStore) List(ctx context.Context, status models.Status) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	query := bson.M{}
	if status != "" {
		query["status"] = status
	}

	cur, err := s.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		log.Printf("Failed to fetch transactions: %v", err)
		return nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}
	defer cur.Close(ctx)

	var transactions []models.Transaction
	if err := cur.All(ctx, &transactions); err != nil {
		log.Printf("Failed to decode transactions: %v", err)
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}
