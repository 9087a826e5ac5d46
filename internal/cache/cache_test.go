package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/TemirB/moneyorder-sync/internal/domain"
)

func TestWarm(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockrepo(ctrl)
	cap := 3
	ids := []string{"r1", "r2", "r3"}

	repo.EXPECT().RecentReceiptIDs(gomock.Any(), cap).Return(ids, nil)
	for _, id := range ids {
		repo.EXPECT().GetReceipt(gomock.Any(), id).Return(&domain.Receipt{ReceiptID: id}, nil)
	}

	c, err := New(cap)
	require.NoError(t, err)
	c.Warm(context.Background(), repo)

	for _, id := range ids {
		got, ok := c.Get(id)
		require.True(t, ok, "expected %s to be cached after Warm", id)
		require.Equal(t, id, got.ReceiptID)
	}
	require.Equal(t, 3, c.Len())
}

func TestWarmIgnoresRepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockrepo(ctrl)
	cap := 5

	repo.EXPECT().RecentReceiptIDs(gomock.Any(), cap).Return(nil, errors.New("repo error"))
	repo.EXPECT().GetReceipt(gomock.Any(), gomock.Any()).Times(0)

	c, err := New(cap)
	require.NoError(t, err)

	c.Warm(context.Background(), repo)
	require.Zero(t, c.Len())
}

func TestWarmPartialErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockrepo(ctrl)
	cap := 4
	ids := []string{"ok1", "bad", "ok2"}

	repo.EXPECT().RecentReceiptIDs(gomock.Any(), cap).Return(ids, nil)
	repo.EXPECT().GetReceipt(gomock.Any(), "ok1").Return(&domain.Receipt{ReceiptID: "ok1"}, nil)
	repo.EXPECT().GetReceipt(gomock.Any(), "bad").Return(nil, errors.New("db read err"))
	repo.EXPECT().GetReceipt(gomock.Any(), "ok2").Return(&domain.Receipt{ReceiptID: "ok2"}, nil)

	c, err := New(cap)
	require.NoError(t, err)
	c.Warm(context.Background(), repo)

	_, ok := c.Get("ok1")
	require.True(t, ok)
	_, ok = c.Get("ok2")
	require.True(t, ok)
	_, ok = c.Get("bad")
	require.False(t, ok)
}

func TestGetMissAndRemove(t *testing.T) {
	c, err := New(1)
	require.NoError(t, err)

	got, ok := c.Get("nope")
	require.False(t, ok)
	require.Nil(t, got)

	c.Set(&domain.Receipt{ReceiptID: "a"})
	c.Set(&domain.Receipt{ReceiptID: "b"})
	_, ok = c.Get("a")
	require.False(t, ok, "capacity 1 must evict the older entry")

	c.Remove("b")
	require.Zero(t, c.Len())
}

func TestNewRejectsNonPositiveSize(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
}
