package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/amp-gateway/internal/migrate"
)

func TestMemoryRecorder(t *testing.T) {
	r := NewMemoryRecorder(2)
	ctx := context.Background()

	require.NoError(t, r.InsertAction(ctx, Action{AmpID: "a", Action: "power_on", Success: true}))
	require.NoError(t, r.InsertAction(ctx, Action{AmpID: "a", Action: "power_off", Success: true}))
	require.NoError(t, r.InsertAction(ctx, Action{AmpID: "a", Action: "ping", Success: false, Error: "timeout"}))

	got, err := r.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ping", got[0].Action)
	assert.Equal(t, "power_off", got[1].Action)
	assert.NotEqual(t, uuid.Nil, got[0].ID)
	assert.False(t, got[0].CreatedAt.IsZero())

	got, err = r.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMigrationsEmbedded(t *testing.T) {
	ups, err := migrate.Runner{FS: Migrations()}.Discover()
	require.NoError(t, err)
	require.Len(t, ups, 1)
	assert.Equal(t, int64(1), ups[0].Version)
}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("测试数据库不可用: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("测试数据库不可用: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = migrate.Runner{FS: Migrations()}.Up(ctx, pool)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM amp_actions`)
	require.NoError(t, err)
	return pool
}

func TestRepository(t *testing.T) {
	repo := &Repository{Pool: setupTestDB(t)}
	ctx := context.Background()

	ch := 2
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.InsertAction(ctx, Action{
		RequestID: "req-1", AmpID: "amp-1", Action: "mute", Channel: &ch,
		Success: true, Duration: 15 * time.Millisecond, CreatedAt: now.Add(-time.Minute),
	}))
	require.NoError(t, repo.InsertAction(ctx, Action{
		AmpID: "amp-1", Action: "ping", Success: false, Error: "timeout", CreatedAt: now,
	}))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ping", got[0].Action)
	assert.Nil(t, got[0].Channel)
	require.NotNil(t, got[1].Channel)
	assert.Equal(t, 2, *got[1].Channel)
	assert.Equal(t, 15*time.Millisecond, got[1].Duration)
	assert.Equal(t, "req-1", got[1].RequestID)
}
