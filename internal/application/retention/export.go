package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

// Snapshot is the full export document, one array per collection.
type Snapshot struct {
	PendingOrders []domain.PendingOrder `json:"pendingOrders"`
	Receipts      []domain.Receipt      `json:"receipts"`
	Pools         []domain.Pool         `json:"pools"`
	SyncQueue     []domain.SyncTask     `json:"syncQueue"`
	ExportDate    time.Time             `json:"exportDate"`
}

type ImportResult struct {
	Orders   int `json:"orders"`
	Receipts int `json:"receipts"`
	Pools    int `json:"pools"`
	Tasks    int `json:"tasks"`
	Skipped  int `json:"skipped"`
}

// Archive binds Export and Import to one store.
type Archive struct {
	store Store
	now   func() time.Time
}

func NewArchive(store Store) *Archive {
	return &Archive{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (a *Archive) Export(ctx context.Context) (*Snapshot, error) {
	return Export(ctx, a.store, a.now())
}

func (a *Archive) Import(ctx context.Context, snap *Snapshot) (ImportResult, error) {
	return Import(ctx, a.store, snap)
}

func Export(ctx context.Context, store Store, now time.Time) (*Snapshot, error) {
	var (
		snap = &Snapshot{ExportDate: now}
		err  error
	)
	if snap.PendingOrders, err = store.Orders(ctx); err != nil {
		return nil, fmt.Errorf("export orders: %w", err)
	}
	if snap.Receipts, err = store.Receipts(ctx); err != nil {
		return nil, fmt.Errorf("export receipts: %w", err)
	}
	if snap.Pools, err = store.Pools(ctx); err != nil {
		return nil, fmt.Errorf("export pools: %w", err)
	}
	if snap.SyncQueue, err = store.Tasks(ctx); err != nil {
		return nil, fmt.Errorf("export sync queue: %w", err)
	}
	return snap, nil
}

// Import upserts every record of snap. Records already in the store and
// absent from snap are left alone. Receipts already stored are kept as is.
func Import(ctx context.Context, store Store, snap *Snapshot) (ImportResult, error) {
	var res ImportResult

	for i := range snap.PendingOrders {
		o := &snap.PendingOrders[i]
		if o.ID == "" {
			res.Skipped++
			continue
		}
		if err := store.PutOrder(ctx, o); err != nil {
			return res, fmt.Errorf("import order %s: %w", o.ID, err)
		}
		res.Orders++
	}
	for i := range snap.Receipts {
		r := &snap.Receipts[i]
		if r.ReceiptID == "" {
			res.Skipped++
			continue
		}
		if err := store.PutReceipt(ctx, r); err != nil {
			return res, fmt.Errorf("import receipt %s: %w", r.ReceiptID, err)
		}
		res.Receipts++
	}
	for i := range snap.Pools {
		p := &snap.Pools[i]
		if p.PoolID == "" {
			res.Skipped++
			continue
		}
		if err := store.PutPool(ctx, p); err != nil {
			return res, fmt.Errorf("import pool %s: %w", p.PoolID, err)
		}
		res.Pools++
	}
	for i := range snap.SyncQueue {
		t := &snap.SyncQueue[i]
		if t.ID == "" {
			res.Skipped++
			continue
		}
		if err := store.PutTask(ctx, t); err != nil {
			return res, fmt.Errorf("import task %s: %w", t.ID, err)
		}
		res.Tasks++
	}
	return res, nil
}

func Encode(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func Decode(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	return &snap, nil
}
