package monitors

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teamhub-dev/teamhub/db"
	"go.uber.org/zap"
)

type staticProbe struct {
	name string
	err  error
}

func (p staticProbe) Name() string { return p.name }
func (p staticProbe) Check(ctx context.Context) error { return p.err }

func TestDatabaseProbe(t *testing.T) {
	conn, err := db.OpenTest(t.Name())
	require.NoError(t, err)

	probe := NewDatabaseProbe(conn)
	assert.Equal(t, "database", probe.Name())
	assert.NoError(t, probe.Check(context.Background()))

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.Error(t, probe.Check(context.Background()))
}

func TestRedisProbe_Unreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer rdb.Close()

	err := NewRedisProbe(rdb).Check(context.Background())
	assert.Error(t, err)
}

func TestRunAll(t *testing.T) {
	results := RunAll(context.Background(), []Probe{
		staticProbe{name: "database"},
		staticProbe{name: "redis", err: errors.New("connection refused")},
	}, zap.NewNop().Sugar())

	assert.Equal(t, map[string]string{"database": StatusOK, "redis": StatusUnavailable}, results)
	assert.False(t, Healthy(results))
	assert.True(t, Healthy(map[string]string{"database": StatusOK}))
	assert.True(t, Healthy(nil))
}
