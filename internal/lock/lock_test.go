package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lvdashuaibi/campusvote/config"
)

func TestQuorum(t *testing.T) {
	assert.Equal(t, 1, quorum(1))
	assert.Equal(t, 2, quorum(2))
	assert.Equal(t, 2, quorum(3))
	assert.Equal(t, 3, quorum(5))
}

func TestLeaseSeconds(t *testing.T) {
	assert.Equal(t, int64(1), leaseSeconds(0))
	assert.Equal(t, int64(1), leaseSeconds(300*time.Millisecond))
	assert.Equal(t, int64(30), leaseSeconds(30*time.Second))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	cfg := &config.Config{Lock: config.LockConfig{Backend: "zookeeper"}}
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewRedLockRequiresAddresses(t *testing.T) {
	_, err := NewRedLock(context.Background(), config.RedisConfig{}, 3)
	assert.Error(t, err)
}
