package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

const currentSnapshotID = "current"

type mongoProduct struct {
	ID       string `bson:"id"`
	Name     string `bson:"name"`
	Quantity int    `bson:"quantity"`
	Price    string `bson:"price"`
}

// SnapshotDocument is the single document holding the inventory.
type SnapshotDocument struct {
	ID        string         `bson:"_id"`
	Products  []mongoProduct `bson:"products"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

// MongoAdapter keeps the full inventory in one document so every Save is a
// single atomic ReplaceOne.
type MongoAdapter struct {
	col *mongo.Collection
}

func NewMongoAdapter(client *mongo.Client, dbName string) *MongoAdapter {
	return &MongoAdapter{col: client.Database(dbName).Collection("inventory_snapshots")}
}

func (m *MongoAdapter) Load(ctx context.Context) ([]domain.ProductRecord, error) {
	raw, err := m.col.FindOne(ctx, bson.M{"_id": currentSnapshotID}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.ProductRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}

	var doc SnapshotDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: snapshot document: %v", domain.ErrStorageCorrupt, err)
	}

	records := make([]domain.ProductRecord, 0, len(doc.Products))
	for _, p := range doc.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s price %q: %v", domain.ErrStorageCorrupt, p.ID, p.Price, err)
		}
		records = append(records, domain.ProductRecord{
			ID:       p.ID,
			Name:     p.Name,
			Quantity: p.Quantity,
			Price:    price,
		})
	}
	return records, nil
}

func (m *MongoAdapter) Save(ctx context.Context, records []domain.ProductRecord) error {
	doc := SnapshotDocument{
		ID:        currentSnapshotID,
		Products:  make([]mongoProduct, 0, len(records)),
		UpdatedAt: time.Now(),
	}
	for _, r := range records {
		doc.Products = append(doc.Products, mongoProduct{
			ID:       r.ID,
			Name:     r.Name,
			Quantity: r.Quantity,
			Price:    r.Price.String(),
		})
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := m.col.ReplaceOne(ctx, bson.M{"_id": currentSnapshotID}, doc, opts); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
