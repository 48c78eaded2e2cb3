// internal/common/camunda/client_test.go
package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	stderrors "gig-dispatch/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	MaxDelay:    5 * time.Millisecond,
}

// ==========================
// SendWithRetry Tests
// ==========================

func TestSendWithRetry_TransientFailureThenSuccess(t *testing.T) {
	attempts := 0
	err := SendWithRetry(context.Background(), fastRetry, "complete job", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("rpc error: code = Unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestSendWithRetry_NonTransientFailsImmediately(t *testing.T) {
	attempts := 0
	err := SendWithRetry(context.Background(), fastRetry, "complete job", func(ctx context.Context) error {
		attempts++
		return errors.New("rpc error: code = InvalidArgument")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeExternalService, stdErr.Code)
}

func TestSendWithRetry_ExhaustedAttempts(t *testing.T) {
	attempts := 0
	err := SendWithRetry(context.Background(), fastRetry, "complete job", func(ctx context.Context) error {
		attempts++
		return errors.New("context deadline exceeded")
	})

	require.Error(t, err)
	assert.Equal(t, fastRetry.MaxAttempts, attempts)

	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeTimeout, stdErr.Code)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"unavailable", errors.New("rpc error: code = Unavailable"), true},
		{"deadline exceeded", errors.New("context deadline exceeded"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"invalid argument", errors.New("rpc error: code = InvalidArgument"), false},
		{"not found", errors.New("process not found"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, isTransient(tt.err))
		})
	}
}
