// Package statestore 发布功放状态变量（内存或 Redis）
package statestore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound 状态不存在
var ErrNotFound = errors.New("state not found")

// 连接状态变量取值
const (
	Connected    = "Connected"
	Disconnected = "Disconnected"
)

// Snapshot 功放状态变量
type Snapshot struct {
	ID               string    `json:"id"`
	ConnectionStatus string    `json:"connection_status"`
	PowerStatus      string    `json:"power_status"`
	Manufacturer     string    `json:"manufacturer"`
	Family           string    `json:"family"`
	Model            string    `json:"model"`
	Serial           string    `json:"serial"`
	LastError        string    `json:"last_error"`
	ChannelCount     int       `json:"channel_count"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Store 状态存储
type Store interface {
	Save(ctx context.Context, id string, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
}

// MemoryStore 进程内存储
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Snapshot
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Snapshot)}
}

func (m *MemoryStore) Save(_ context.Context, id string, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = snap
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.items[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}
