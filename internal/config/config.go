package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
)

// Config holds application configuration
// アプリケーション設定を保持
type Config struct {
	Database DatabaseConfig   `yaml:"database" envconfig:"DB"`
	Storage  StorageConfig    `yaml:"storage" envconfig:"STORAGE"`
	API      APIConfig        `yaml:"api" envconfig:"API"`
	Ledger   inventory.Config `yaml:"ledger" envconfig:"LEDGER"`
	Events   EventsConfig     `yaml:"events" envconfig:"EVENTS"`
	Logging  LoggingConfig    `yaml:"logging" envconfig:"LOG"`
}

// DatabaseConfig holds database configuration
// データベース設定を保持
type DatabaseConfig struct {
	Host     string `yaml:"host" envconfig:"HOST"`
	Port     int    `yaml:"port" envconfig:"PORT"`
	User     string `yaml:"user" envconfig:"USER"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DBName   string `yaml:"dbname" envconfig:"NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"SSLMODE"`
}

// StorageConfig selects the state store
// 状態ストアの種類を選択
type StorageConfig struct {
	Driver   string `yaml:"driver" envconfig:"DRIVER"` // memory, postgres
	StateKey string `yaml:"state_key" envconfig:"STATE_KEY"`
}

// APIConfig holds API server configuration
// APIサーバー設定を保持
type APIConfig struct {
	Port          int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	EnableCORS    bool          `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	EnableMetrics bool          `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
}

// EventsConfig holds Kafka publisher configuration
// Kafkaイベント発行の設定を保持
type EventsConfig struct {
	Enabled       bool     `yaml:"enabled" envconfig:"ENABLED"`
	Brokers       []string `yaml:"brokers" envconfig:"BROKERS"`
	StockTopic    string   `yaml:"stock_topic" envconfig:"STOCK_TOPIC"`
	LowStockTopic string   `yaml:"low_stock_topic" envconfig:"LOW_STOCK_TOPIC"`
}

// LoggingConfig holds logging configuration
// ログ設定を保持
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"` // json, console
}

// Default returns the built-in configuration
// 組み込みのデフォルト設定を返す
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "costledger",
			Password: "password",
			DBName:   "costledger_db",
			SSLMode:  "disable",
		},
		Storage: StorageConfig{
			Driver:   "memory",
			StateKey: "default",
		},
		API: APIConfig{
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   60 * time.Second,
			EnableCORS:    true,
			EnableMetrics: true,
		},
		Ledger: *inventory.DefaultConfig(),
		Events: EventsConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			StockTopic:    "costledger.stock-changed",
			LowStockTopic: "costledger.low-stock",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds configuration from defaults, the YAML file named by CONFIG_FILE
// (if any) and environment variables, in that order
// デフォルト → YAMLファイル（CONFIG_FILE）→ 環境変数の順に設定を読み込み
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file
// YAMLファイルのパスを指定して設定を読み込み
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗しました: %w", err)
	}

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
// 設定をバリデーション
func (c *Config) Validate() error {
	var errs []error

	// ストレージ設定チェック
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		// データベース設定チェック
		if c.Database.Host == "" {
			errs = append(errs, fmt.Errorf("データベースホストが指定されていません"))
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Errorf("無効なデータベースポート: %d", c.Database.Port))
		}
		if c.Database.User == "" {
			errs = append(errs, fmt.Errorf("データベースユーザーが指定されていません"))
		}
		if c.Database.DBName == "" {
			errs = append(errs, fmt.Errorf("データベース名が指定されていません"))
		}
	default:
		errs = append(errs, fmt.Errorf("無効なストレージドライバ: %s", c.Storage.Driver))
	}

	// API設定チェック
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("無効なAPIポート: %d", c.API.Port))
	}

	// 台帳設定チェック
	if c.Ledger.TaxRate < 0 || c.Ledger.TaxRate >= 1 {
		errs = append(errs, fmt.Errorf("税率は0以上1未満である必要があります: %v", c.Ledger.TaxRate))
	}
	if c.Ledger.ManufacturingMarkup <= 0 {
		errs = append(errs, fmt.Errorf("製造品の販売価格倍率は正の値である必要があります: %v", c.Ledger.ManufacturingMarkup))
	}
	if c.Ledger.DefaultLowStockAlert < 0 {
		errs = append(errs, fmt.Errorf("低在庫閾値は0以上である必要があります"))
	}

	// イベント設定チェック
	if c.Events.Enabled && len(c.Events.Brokers) == 0 {
		errs = append(errs, fmt.Errorf("Kafkaブローカーが指定されていません"))
	}

	// ログ設定チェック
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, fmt.Errorf("無効なログレベル: %s", c.Logging.Level))
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		errs = append(errs, fmt.Errorf("無効なログフォーマット: %s", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// DSN generates PostgreSQL Data Source Name
// PostgreSQLデータソース名を生成
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// DatabaseURL generates the postgres:// URL used by the migration tool
// マイグレーションツール用のURLを生成
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     "/" + c.Database.DBName,
		RawQuery: url.Values{"sslmode": []string{c.Database.SSLMode}}.Encode(),
	}
	return u.String()
}

// NewLogger builds a zap logger from the logging section
// ログ設定からzapロガーを作成
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("無効なログレベル: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Logging.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
