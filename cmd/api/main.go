package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiCostLedger/internal/config"
	"github.com/nemonet1337/zaiCostLedger/pkg/inventory"
	"github.com/nemonet1337/zaiCostLedger/pkg/inventory/events"
	"github.com/nemonet1337/zaiCostLedger/pkg/inventory/storage"
)

func main() {
	// 設定読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	// ログ設定
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer logger.Sync()

	// 状態ストア
	store, err := newStore(cfg, logger)
	if err != nil {
		logger.Fatal("状態ストアの初期化に失敗しました", zap.Error(err))
	}
	defer store.Close()

	// イベント発行
	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	// メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := inventory.NewMetrics(registry)

	// 原価台帳マネージャー初期化
	manager := inventory.NewManager(store, publisher, logger, &cfg.Ledger, inventory.WithMetrics(metrics))

	// HTTPハンドラー設定
	handlers := NewHandlers(manager, logger)
	var metricsHandler http.Handler
	if cfg.API.EnableMetrics {
		metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}
	router := setupRouter(handlers, metricsHandler, cfg.API.EnableCORS)

	// HTTPサーバー設定
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// グレースフルシャットダウン設定
	go func() {
		logger.Info("原価台帳APIサーバーを開始します",
			zap.Int("port", cfg.API.Port),
			zap.String("storage", cfg.Storage.Driver),
			zap.Bool("events", cfg.Events.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー開始に失敗しました", zap.Error(err))
		}
	}()

	// シャットダウンシグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// グレースフルシャットダウン
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("サーバーシャットダウンに失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常に停止しました")
}

// newStore selects the state store from the storage driver
// ストレージドライバに応じた状態ストアを作成
func newStore(cfg *config.Config, logger *zap.Logger) (inventory.StateStore, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		store, err := storage.NewPostgreSQLStore(cfg.DSN(), cfg.Storage.StateKey, logger)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		logger.Warn("インメモリストアを使用します（再起動で状態は失われます）")
		return storage.NewMemoryStore(logger), nil
	}
}

// newPublisher returns a Kafka publisher when events are enabled
// イベント有効時はKafka発行者を作成
func newPublisher(cfg *config.Config, logger *zap.Logger) inventory.EventPublisher {
	if !cfg.Events.Enabled {
		return events.NopPublisher{}
	}
	return events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.StockTopic, cfg.Events.LowStockTopic, logger)
}

// setupRouter sets up HTTP routes; a nil metrics handler disables /metrics
// HTTPルートを設定
func setupRouter(handlers *Handlers, metricsHandler http.Handler, enableCORS bool) *mux.Router {
	router := mux.NewRouter()

	// ヘルスチェック
	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods("GET")
	}

	// API v1ルート
	api := router.PathPrefix("/api/v1").Subrouter()

	// 商品管理
	api.HandleFunc("/products", handlers.CreateProduct).Methods("POST")
	api.HandleFunc("/products", handlers.ListProducts).Methods("GET")
	api.HandleFunc("/products/low-stock", handlers.LowStock).Methods("GET")
	api.HandleFunc("/products/{productId}", handlers.GetProduct).Methods("GET")
	api.HandleFunc("/products/{productId}/archive", handlers.ArchiveProduct).Methods("POST")
	api.HandleFunc("/products/{productId}/history", handlers.GetHistory).Methods("GET")
	api.HandleFunc("/movements", handlers.MovementsByReference).Methods("GET")

	// 仕入・販売
	api.HandleFunc("/purchases", handlers.ReceivePurchase).Methods("POST")
	api.HandleFunc("/sales", handlers.Checkout).Methods("POST")

	// 製造
	api.HandleFunc("/manufacturing/preview", handlers.PreviewManufacturing).Methods("POST")
	api.HandleFunc("/manufacturing", handlers.CommitManufacturing).Methods("POST")

	// クレーム
	api.HandleFunc("/claims", handlers.RecordClaim).Methods("POST")
	api.HandleFunc("/claims", handlers.ListClaims).Methods("GET")
	api.HandleFunc("/claims/{claimId}", handlers.GetClaim).Methods("GET")
	api.HandleFunc("/claims/{claimId}/resolve", handlers.ResolveClaim).Methods("POST")

	// 仕入先
	api.HandleFunc("/vendors", handlers.CreateVendor).Methods("POST")
	api.HandleFunc("/vendors/{vendorId}", handlers.GetVendor).Methods("GET")
	api.HandleFunc("/vendors/{vendorId}/purchases", handlers.VendorPurchases).Methods("GET")
	api.HandleFunc("/vendors/{vendorId}/payments", handlers.PayVendor).Methods("POST")
	api.HandleFunc("/vendors/{vendorId}/bills", handlers.BillVendor).Methods("POST")

	// 顧客
	api.HandleFunc("/customers", handlers.CreateCustomer).Methods("POST")
	api.HandleFunc("/customers/{customerId}/sales", handlers.CustomerSales).Methods("GET")
	api.HandleFunc("/customers/{customerId}/payments", handlers.ReceiveCustomerPayment).Methods("POST")

	// 在庫評価・エクスポート
	api.HandleFunc("/valuation", handlers.Valuation).Methods("GET")
	api.HandleFunc("/export/workbook.xlsx", handlers.ExportWorkbook).Methods("GET")
	api.HandleFunc("/export/{table}.csv", handlers.ExportCSV).Methods("GET")

	// CORS設定（開発用）
	if enableCORS {
		router.Use(corsMiddleware)
	}

	// 操作ユーザー
	router.Use(userMiddleware)

	// ログ機能
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// userMiddleware stores X-User-ID in the request context
// X-User-IDヘッダーを操作ユーザーとしてコンテキストに設定
func userMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user := r.Header.Get("X-User-ID"); user != "" {
			r = r.WithContext(inventory.WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
// HTTPリクエストをログ出力するミドルウェア
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// リクエスト処理
			next.ServeHTTP(w, r)

			// ログ出力
			logger.Info("HTTPリクエスト",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user", inventory.UserFromContext(r.Context())),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
