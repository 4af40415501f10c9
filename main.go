package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/decommerce/storefront-api/app/session"
	"github.com/decommerce/storefront-api/config"
	"github.com/decommerce/storefront-api/models"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := waitForDatabase(cfg.DatabaseURL, 10, time.Second); err != nil {
		logger.Fatal("database not reachable", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	if err := migrate(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	sessions := session.NewStore(cfg.SessionTTL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sessions.Run(ctx, time.Minute)

	handler := newRouter(db, sessions, []byte(cfg.JWTSecret), logger)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}

// waitForDatabase pings through database/sql so startup can outlast a
// database container that is still coming up.
func waitForDatabase(dsn string, attempts int, delay time.Duration) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	for i := 0; ; i++ {
		err = db.Ping()
		if err == nil || i >= attempts-1 {
			return err
		}
		time.Sleep(delay)
	}
}

func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic("build logger: " + err.Error())
	}
	return logger
}
