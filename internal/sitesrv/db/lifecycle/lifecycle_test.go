package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Luna-Sites/lunasites-platform/pkg/types"
)

// shrink the retry pacing so the policy tests run fast
func fastRetries(t *testing.T) {
	t.Helper()
	savedDelay, savedDrain := cloneRetryDelay, drainWait
	cloneRetryDelay, drainWait = time.Millisecond, 0
	t.Cleanup(func() {
		cloneRetryDelay, drainWait = savedDelay, savedDrain
	})
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		tenantID string
		want     string
	}{
		{"acme", "ls_acme"},
		{"Acme-42", "ls_acme42"},
		{"my.site_01", "ls_mysite01"},
		{"UPPER", "ls_upper"},
		{"", "ls_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DatabaseName(types.TenantId(tt.tenantID)), tt.tenantID)
	}
}

func TestDatabaseNameDeterministic(t *testing.T) {
	assert.Equal(t, DatabaseName("tenant-a"), DatabaseName("tenant-a"))
	// distinct tenants that normalize identically collide by design; the
	// registry's tenant_id primary key keeps them from coexisting
	assert.Equal(t, DatabaseName("tenant-a"), DatabaseName("TENANT.A"))
}

func TestCloneRetrySucceedsAfterBusy(t *testing.T) {
	fastRetries(t)
	busy := &pgconn.PgError{Code: "55006"}

	terminations, attempts := 0, 0
	err := cloneWithRetry(context.Background(), "ls_src",
		func() error {
			terminations++
			return nil
		},
		func() error {
			attempts++
			if attempts < 3 {
				return busy
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// sessions are terminated before every attempt, not just the first
	assert.Equal(t, 3, terminations)
}

func TestCloneRetryGivesUpWhenStillBusy(t *testing.T) {
	fastRetries(t)
	busy := &pgconn.PgError{Code: "55006"}

	attempts := 0
	err := cloneWithRetry(context.Background(), "ls_src",
		func() error { return nil },
		func() error {
			attempts++
			return busy
		})
	require.Error(t, err)
	assert.Equal(t, cloneAttempts, attempts)
	assert.True(t, IsSourceBusy(err))
}

func TestCloneRetryAbortsOnOtherErrors(t *testing.T) {
	fastRetries(t)
	fatal := &pgconn.PgError{Code: "42501"}

	attempts := 0
	err := cloneWithRetry(context.Background(), "ls_src",
		func() error { return nil },
		func() error {
			attempts++
			return fatal
		})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.False(t, IsSourceBusy(err))
}

func TestCloneRetryAbortsWhenTerminationFails(t *testing.T) {
	fastRetries(t)
	boom := errors.New("terminate failed")

	attempts := 0
	err := cloneWithRetry(context.Background(), "ls_src",
		func() error { return boom },
		func() error {
			attempts++
			return nil
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, attempts)
}

func TestIsSourceBusy(t *testing.T) {
	busy := &pgconn.PgError{Code: "55006"}
	assert.True(t, IsSourceBusy(busy))
	assert.True(t, IsSourceBusy(fmt.Errorf("clone: %w", busy)))

	assert.False(t, IsSourceBusy(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsSourceBusy(errors.New("plain error")))
	assert.False(t, IsSourceBusy(nil))
}
