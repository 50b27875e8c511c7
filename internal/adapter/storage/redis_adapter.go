package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/stock-keeper/internal/core/domain"
)

const (
	productsKey     = "products"
	productOrderKey = "product_order"
	auditKey        = "audit_log"
)

type redisProduct struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// RedisAdapter keeps products in a hash (id -> JSON) plus a list holding the
// order, and the audit trail in a list of text lines.
type RedisAdapter struct {
	client *redis.Client
	prefix string
	loc    *time.Location
}

func NewRedisAdapter(client *redis.Client, prefix string) *RedisAdapter {
	return &RedisAdapter{client: client, prefix: prefix, loc: time.Local}
}

func (r *RedisAdapter) key(name string) string {
	return r.prefix + name
}

func (r *RedisAdapter) Load(ctx context.Context) ([]domain.ProductRecord, error) {
	ids, err := r.client.LRange(ctx, r.key(productOrderKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read product order: %w", err)
	}
	if len(ids) == 0 {
		n, err := r.client.HLen(ctx, r.key(productsKey)).Result()
		if err != nil {
			return nil, fmt.Errorf("read products: %w", err)
		}
		if n != 0 {
			return nil, fmt.Errorf("%w: %d products without order list", domain.ErrStorageCorrupt, n)
		}
		return []domain.ProductRecord{}, nil
	}

	values, err := r.client.HMGet(ctx, r.key(productsKey), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	records := make([]domain.ProductRecord, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: product %s listed but missing", domain.ErrStorageCorrupt, ids[i])
		}
		var p redisProduct
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("%w: product %s: %v", domain.ErrStorageCorrupt, ids[i], err)
		}
		records = append(records, domain.ProductRecord{
			ID:       ids[i],
			Name:     p.Name,
			Quantity: p.Quantity,
			Price:    p.Price,
		})
	}
	return records, nil
}

// Save replaces hash and order list in one MULTI/EXEC.
func (r *RedisAdapter) Save(ctx context.Context, records []domain.ProductRecord) error {
	fields := make([]interface{}, 0, 2*len(records))
	ids := make([]interface{}, 0, len(records))
	for _, rec := range records {
		raw, err := json.Marshal(redisProduct{Name: rec.Name, Quantity: rec.Quantity, Price: rec.Price})
		if err != nil {
			return fmt.Errorf("encode product %s: %w", rec.ID, err)
		}
		fields = append(fields, rec.ID, string(raw))
		ids = append(ids, rec.ID)
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(productsKey), r.key(productOrderKey))
		if len(records) > 0 {
			pipe.HSet(ctx, r.key(productsKey), fields...)
			pipe.RPush(ctx, r.key(productOrderKey), ids...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save products: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Record(ctx context.Context, entry domain.AuditEntry) error {
	if err := r.client.RPush(ctx, r.key(auditKey), entry.Line()).Err(); err != nil {
		return fmt.Errorf("%w: rpush: %w", domain.ErrLogWrite, err)
	}
	return nil
}

func (r *RedisAdapter) ReadAll(ctx context.Context) ([]domain.AuditEntry, error) {
	lines, err := r.client.LRange(ctx, r.key(auditKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	entries := make([]domain.AuditEntry, 0, len(lines))
	for i, line := range lines {
		e, err := domain.ParseAuditLine(line, r.loc)
		if err != nil {
			return nil, fmt.Errorf("%w: audit entry %d: %v", domain.ErrStorageCorrupt, i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
