// Package audit 记录控制动作（PostgreSQL 或内存）
package audit

import (
	"context"
	"embed"
	"io/fs"
	"sync"
	"time"

	"github.com/google/uuid"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations 审计表迁移文件
func Migrations() fs.FS {
	sub, _ := fs.Sub(migrationFiles, "migrations")
	return sub
}

// Action 一条控制动作记录
type Action struct {
	ID        uuid.UUID     `json:"id"`
	RequestID string        `json:"request_id"`
	AmpID     string        `json:"amp_id"`
	Action    string        `json:"action"`
	Channel   *int          `json:"channel,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// Recorder 动作记录接口
type Recorder interface {
	InsertAction(ctx context.Context, a Action) error
	ListRecent(ctx context.Context, limit int) ([]Action, error)
}

// normalize 补全 ID 与时间
func normalize(a Action) Action {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return a
}

// MemoryRecorder 内存环形记录，数据库未启用时使用
type MemoryRecorder struct {
	mu    sync.Mutex
	max   int
	items []Action
}

// NewMemoryRecorder max<=0 时默认保留 500 条
func NewMemoryRecorder(max int) *MemoryRecorder {
	if max <= 0 {
		max = 500
	}
	return &MemoryRecorder{max: max}
}

func (m *MemoryRecorder) InsertAction(_ context.Context, a Action) error {
	a = normalize(a)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, a)
	if len(m.items) > m.max {
		m.items = m.items[len(m.items)-m.max:]
	}
	return nil
}

// ListRecent 最新的在前
func (m *MemoryRecorder) ListRecent(_ context.Context, limit int) ([]Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.items) {
		limit = len(m.items)
	}
	out := make([]Action, 0, limit)
	for i := len(m.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.items[i])
	}
	return out, nil
}
