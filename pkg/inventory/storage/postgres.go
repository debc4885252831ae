package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

// DefaultStateKey names the state row used by a single ledger
const DefaultStateKey = "default"

// PostgreSQLStore implements the StateStore interface using PostgreSQL.
// The whole state is one JSONB row guarded by a version column.
// PostgreSQLを使用したStateStoreの実装（状態全体をJSONBの1行として保存）
type PostgreSQLStore struct {
	db     *sqlx.DB
	key    string
	logger *zap.Logger
}

var _ inventory.StateStore = (*PostgreSQLStore)(nil)

type stateRow struct {
	Key       string    `db:"key"`
	Version   int64     `db:"version"`
	Payload   []byte    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewPostgreSQLStore creates a new PostgreSQL store; key selects the state row
// 新しいPostgreSQLストアを作成
func NewPostgreSQLStore(dsn, key string, logger *zap.Logger) (*PostgreSQLStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewPostgreSQLStoreFromDB(db, key, logger), nil
}

// NewPostgreSQLStoreFromDB wraps an open connection; key selects the state row
// 既存の接続からストアを作成
func NewPostgreSQLStoreFromDB(db *sqlx.DB, key string, logger *zap.Logger) *PostgreSQLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if key == "" {
		key = DefaultStateKey
	}
	return &PostgreSQLStore{db: db, key: key, logger: logger}
}

// Load retrieves the stored state
// 保存済みの状態を取得
func (s *PostgreSQLStore) Load(ctx context.Context) (*inventory.State, error) {
	query := `
		SELECT key, version, payload, updated_at
		FROM ledger_state
		WHERE key = $1`

	var row stateRow
	err := s.db.GetContext(ctx, &row, query, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("状態の取得に失敗しました: %w", err)
	}

	state := inventory.NewState()
	if err := json.Unmarshal(row.Payload, state); err != nil {
		return nil, fmt.Errorf("状態のデコードに失敗しました: %w", err)
	}
	state.Version = row.Version

	return state, nil
}

// Save writes the state. Version 1 inserts the row; later versions update it
// only while the stored version is the previous one.
// 状態を保存（バージョン1は新規作成、以降は前バージョンの場合のみ更新）
func (s *PostgreSQLStore) Save(ctx context.Context, state *inventory.State) error {
	if state == nil {
		return fmt.Errorf("状態が指定されていません")
	}

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("状態のエンコードに失敗しました: %w", err)
	}

	now := time.Now()
	if state.Version <= 1 {
		query := `
			INSERT INTO ledger_state (key, version, payload, updated_at)
			VALUES ($1, $2, $3, $4)`

		if _, err := s.db.ExecContext(ctx, query, s.key, state.Version, payload, now); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return inventory.ErrVersionMismatch
			}
			return fmt.Errorf("状態の作成に失敗しました: %w", err)
		}
		s.logger.Debug("状態作成完了", zap.String("key", s.key))
		return nil
	}

	query := `
		UPDATE ledger_state
		SET version = $2, payload = $3, updated_at = $4
		WHERE key = $1 AND version = $5`

	result, err := s.db.ExecContext(ctx, query,
		s.key,
		state.Version,
		payload,
		now,
		state.Version-1, // 楽観的ロックのための前バージョン
	)
	if err != nil {
		return fmt.Errorf("状態の更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新行数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return inventory.ErrVersionMismatch
	}

	s.logger.Debug("状態更新完了",
		zap.String("key", s.key),
		zap.Int64("version", state.Version),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// Ping checks database connectivity
// データベース接続を確認
func (s *PostgreSQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
// データベース接続を閉じる
func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}
