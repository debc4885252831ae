package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

// MemoryStore keeps the serialized state in process memory.
// States go through JSON on every save and load, like the PostgreSQL store.
// プロセス内メモリに状態を保持（保存・読込ごとにJSONを経由）
type MemoryStore struct {
	mu      sync.RWMutex
	payload []byte
	version int64
	logger  *zap.Logger
}

var _ inventory.StateStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
// 空のインメモリストアを作成
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{logger: logger}
}

// Load returns the last saved state
// 最後に保存された状態を取得
func (s *MemoryStore) Load(ctx context.Context) (*inventory.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.payload == nil {
		return nil, inventory.ErrStateNotFound
	}

	state := inventory.NewState()
	if err := json.Unmarshal(s.payload, state); err != nil {
		return nil, fmt.Errorf("状態のデコードに失敗しました: %w", err)
	}
	state.Version = s.version
	return state, nil
}

// Save stores state when its version is exactly one past the stored version
// バージョンが保存済み+1の場合のみ保存（楽観的ロック）
func (s *MemoryStore) Save(ctx context.Context, state *inventory.State) error {
	if state == nil {
		return fmt.Errorf("状態が指定されていません")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("状態のエンコードに失敗しました: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if state.Version != s.version+1 {
		return inventory.ErrVersionMismatch
	}

	s.payload = payload
	s.version = state.Version

	s.logger.Debug("状態保存完了", zap.Int64("version", state.Version), zap.Int("bytes", len(payload)))
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close releases nothing
func (s *MemoryStore) Close() error {
	return nil
}
