package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

//go:generate mockgen -source cache.go -destination=cache_mock_test.go -package=cache

type repo interface {
	GetReceipt(ctx context.Context, id string) (*domain.Receipt, error)
	RecentReceiptIDs(ctx context.Context, limit int) ([]string, error)
}

// Cache keeps recently read receipts in memory. Receipts never change once
// stored, so entries are only ever evicted, never invalidated.
type Cache struct {
	size int
	lru  *lru.Cache[string, domain.Receipt]
}

func New(size int) (*Cache, error) {
	c, err := lru.New[string, domain.Receipt](size)
	if err != nil {
		return nil, err
	}
	return &Cache{
		size: size,
		lru:  c,
	}, nil
}

// Warm preloads the newest receipts. Read errors leave the cache partially
// filled; the store stays authoritative.
func (c *Cache) Warm(ctx context.Context, repo repo) {
	if ids, err := repo.RecentReceiptIDs(ctx, c.size); err == nil {
		for _, id := range ids {
			if r, err := repo.GetReceipt(ctx, id); err == nil {
				c.Set(r)
			}
		}
	}
}

func (c *Cache) Get(id string) (*domain.Receipt, bool) {
	r, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return &r, true
}

func (c *Cache) Set(r *domain.Receipt) {
	c.lru.Add(r.ReceiptID, *r)
}

// Remove drops an entry, used when retention deletes the receipt.
func (c *Cache) Remove(id string) {
	c.lru.Remove(id)
}

func (c *Cache) Len() int { return c.lru.Len() }
