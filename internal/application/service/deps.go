package service

import (
	"context"
	"time"

	"github.com/TemirB/moneyorder-sync/internal/application/syncer"
	"github.com/TemirB/moneyorder-sync/internal/domain"
	"github.com/TemirB/moneyorder-sync/internal/notify"
)

//go:generate mockgen -source deps.go -destination=deps_mock_test.go -package=service

type Cache interface {
	Set(*domain.Receipt)
	Get(string) (*domain.Receipt, bool)
}

type Syncer interface {
	SyncOne(ctx context.Context, orderID string) error
	RunPass(ctx context.Context) (syncer.PassResult, error)
	Trigger()
	InFlight() bool
	LastPassAt() time.Time
}

type Events interface {
	Subscribe() *notify.Subscription
	Publish(ev domain.Event)
}

type Connectivity interface {
	IsOnline() bool
}
