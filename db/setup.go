package db

import (
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/teamhub-dev/teamhub/internal/config"
	"github.com/teamhub-dev/teamhub/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Timestamps are stored in UTC so range queries compare like with like.
func utcNow() time.Time { return time.Now().UTC() }

// ConnectDatabase opens the configured store and keeps it in DB.
// Postgres is tried through pgx first and through lib/pq second.
func ConnectDatabase(cfg config.DBCfg, log *zap.Logger) (*gorm.DB, error) {
	if cfg.DSN == "" && cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("database.dsn is required for driver %q", cfg.Driver)
	}

	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn), NowFunc: utcNow}

	var (
		conn *gorm.DB
		err  error
	)

	switch cfg.Driver {
	case "postgres", "":
		conn, err = gorm.Open(postgres.Open(cfg.DSN), gcfg)
		if err != nil {
			log.Sugar().Warnw("pgx connection failed, retrying with lib/pq", "err", err)
			conn, err = gorm.Open(postgres.New(postgres.Config{
				DriverName: "postgres",
				DSN:        cfg.DSN,
			}), gcfg)
		}
	case "mysql":
		var dsnCfg *mysqldrv.Config
		dsnCfg, err = mysqldrv.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid mysql dsn: %w", err)
		}
		dsnCfg.ParseTime = true
		conn, err = gorm.Open(mysql.New(mysql.Config{DSNConfig: dsnCfg}), gcfg)
	case "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		conn, err = gorm.Open(sqlite.Open(dsn), gcfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = conn
	return conn, nil
}

func MigrateDatabase(conn *gorm.DB) error {
	migrator := conn.Migrator()

	for _, model := range models.All() {
		if !migrator.HasTable(model) {
			if err := conn.AutoMigrate(model); err != nil {
				return err
			}
		}
	}

	return nil
}

// OpenTest returns a fresh, migrated in-memory database.
func OpenTest(name string) (*gorm.DB, error) {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent), NowFunc: utcNow})
	if err != nil {
		return nil, err
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return nil, err
	}
	return conn, nil
}
