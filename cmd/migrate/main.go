package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/urfave/cli/v2"

	"github.com/nemonet1337/zaiCostLedger/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "costledger-migrate",
		Usage: "zaiCostLedger マイグレーション実行ツール",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "migrations",
				Usage:   "マイグレーションディレクトリ",
				EnvVars: []string{"MIGRATIONS_DIR"},
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "接続先URL（未指定時は設定から生成）",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "未適用のマイグレーションをすべて適用",
				Action: func(c *cli.Context) error {
					return run(c, func(m *migrate.Migrate) error { return m.Up() })
				},
			},
			{
				Name:      "down",
				Usage:     "マイグレーションを指定ステップ数ロールバック",
				ArgsUsage: "[steps]",
				Action: func(c *cli.Context) error {
					steps := 1
					if c.Args().Present() {
						n, err := strconv.Atoi(c.Args().First())
						if err != nil || n <= 0 {
							return cli.Exit("ステップ数は正の整数である必要があります", 1)
						}
						steps = n
					}
					return run(c, func(m *migrate.Migrate) error { return m.Steps(-steps) })
				},
			},
			{
				Name:  "version",
				Usage: "現在のスキーマバージョンを表示",
				Action: func(c *cli.Context) error {
					return run(c, func(m *migrate.Migrate) error {
						version, dirty, err := m.Version()
						if errors.Is(err, migrate.ErrNilVersion) {
							log.Println("マイグレーションは未適用です")
							return nil
						}
						if err != nil {
							return err
						}
						log.Printf("バージョン: %d (dirty=%t)", version, dirty)
						return nil
					})
				},
			},
			{
				Name:      "force",
				Usage:     "dirty状態を解除してバージョンを強制設定",
				ArgsUsage: "<version>",
				Action: func(c *cli.Context) error {
					version, err := strconv.Atoi(c.Args().First())
					if err != nil {
						return cli.Exit("バージョンを整数で指定してください", 1)
					}
					return run(c, func(m *migrate.Migrate) error { return m.Force(version) })
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal("マイグレーション実行に失敗しました: ", err)
	}
}

// run opens a migrator and applies fn; ErrNoChange is not an error
// マイグレーターを開いて処理を実行
func run(c *cli.Context, fn func(*migrate.Migrate) error) error {
	databaseURL := c.String("database-url")
	if databaseURL == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("設定読み込みに失敗しました: %w", err)
		}
		databaseURL = cfg.DatabaseURL()
	}

	dir, err := filepath.Abs(c.String("dir"))
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("マイグレーションディレクトリが見つかりません: %s", dir)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(dir), databaseURL)
	if err != nil {
		return fmt.Errorf("マイグレーターの初期化に失敗しました: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Printf("マイグレーターのクローズに失敗しました: %v %v", srcErr, dbErr)
		}
	}()

	if err := fn(m); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Println("適用するマイグレーションはありません")
			return nil
		}
		return err
	}

	log.Printf("%s が完了しました", c.Command.Name)
	return nil
}
