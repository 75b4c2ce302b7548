package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/ashwinyue/next-dataset/internal/config"
	"github.com/ashwinyue/next-dataset/internal/model"
)

// ErrStorage 存储失败（连接、约束等），不自动重试
var ErrStorage = errors.New("storage failure")

// DB 数据库封装
type DB struct {
	*gorm.DB
	Name string
}

// Opener 按名称打开数据存储
// sqlite: {dir}/{name}.db；postgres: 同名 schema
type Opener struct {
	cfg *config.Config
}

// NewOpener 创建存储打开器
func NewOpener(cfg *config.Config) *Opener {
	return &Opener{cfg: cfg}
}

// StoreName 返回运行日期对应的存储名
// 提示词测试使用独立的 -test 存储
func StoreName(date time.Time, testing bool) string {
	name := date.Format("01-02-2006") + "-dataset"
	if testing {
		name += "-test"
	}
	return name
}

// Open 打开（必要时创建）指定名称的存储并自动迁移
func (o *Opener) Open(ctx context.Context, name string) (*DB, error) {
	gcfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(o.logLevel()),
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	var (
		db  *gorm.DB
		err error
	)
	switch o.cfg.Storage.Driver {
	case "postgres":
		db, err = o.openPostgres(name, gcfg)
	default:
		db, err = o.openSQLite(name, gcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect database %s: %w", ErrStorage, name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get database: %w", ErrStorage, err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(o.cfg.Storage.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.cfg.Storage.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(o.cfg.Storage.MaxLifetime) * time.Second)

	// 健康检查
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", ErrStorage, err)
	}

	// 自动迁移
	if err := autoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: failed to auto migrate: %w", ErrStorage, err)
	}

	return &DB{DB: db, Name: name}, nil
}

// Path 返回 sqlite 存储文件路径
func (o *Opener) Path(name string) string {
	return filepath.Join(o.cfg.Storage.Dir, name+".db")
}

func (o *Opener) openSQLite(name string, gcfg *gorm.Config) (*gorm.DB, error) {
	if err := os.MkdirAll(o.cfg.Storage.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	dsn := o.Path(name) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	return gorm.Open(sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        dsn,
	}), gcfg)
}

func (o *Opener) openPostgres(name string, gcfg *gorm.Config) (*gorm.DB, error) {
	schema := SchemaName(name)
	db, err := gorm.Open(postgres.Open(o.cfg.Storage.Postgres.GetDSN(schema)), gcfg)
	if err != nil {
		return nil, err
	}
	if err := db.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, schema)).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	return db, nil
}

// SchemaName 将存储名转换为 postgres schema 名
func SchemaName(name string) string {
	s := strings.ToLower(name)
	s = strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(s)
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "dataset_" + s
	}
	return s
}

func (o *Opener) logLevel() gormlogger.LogLevel {
	if o.cfg.App.Debug {
		return gormlogger.Info
	}
	return gormlogger.Silent
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查数据库连接
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// autoMigrate 自动迁移
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(model.AllModels...)
}
