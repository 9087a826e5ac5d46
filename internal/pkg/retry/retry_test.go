package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TemirB/moneyorder-sync/internal/config"
)

var errBoom = errors.New("boom")

func TestDo(t *testing.T) {
	policy := config.Retry{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond}

	testCases := []struct {
		name      string
		failures  int
		permanent bool
		wantCalls int
		wantErr   error
	}{
		{name: "first try", failures: 0, wantCalls: 1},
		{name: "recovers", failures: 2, wantCalls: 3},
		{name: "exhausted", failures: 5, wantCalls: 3, wantErr: errBoom},
		{name: "permanent stops at once", failures: 5, permanent: true, wantCalls: 1, wantErr: errBoom},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), policy, func() error {
				calls++
				if calls <= tc.failures {
					if tc.permanent {
						return Permanent(errBoom)
					}
					return errBoom
				}
				return nil
			})
			require.Equal(t, tc.wantCalls, calls)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				var perm *permanentError
				require.False(t, errors.As(err, &perm), "permanent wrapper must not leak")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, config.Retry{Attempts: 5, Base: time.Hour}, func() error {
		calls++
		return errBoom
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestPermanentNil(t *testing.T) {
	require.NoError(t, Permanent(nil))
}
