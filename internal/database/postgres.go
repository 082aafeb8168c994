package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres implements the Database interface on top of gorm
type Postgres struct {
	db     *gorm.DB
	config Config
}

// NewPostgres creates a new Postgres instance. Call Connect before use.
func NewPostgres(cfg Config) *Postgres {
	if cfg.SlowThreshold == 0 {
		cfg.SlowThreshold = time.Second
	}
	return &Postgres{config: cfg}
}

// Connect opens the connection pool and verifies it with a ping
func (p *Postgres) Connect(ctx context.Context) error {
	gormLogger := logger.New(
		slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             p.config.SlowThreshold,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(p.config.DSN), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if p.config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(p.config.MaxOpenConns)
	}
	if p.config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(p.config.MaxIdleConns)
	}

	p.db = db
	if err := p.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		p.db = nil
		return err
	}
	return nil
}

// Migrate runs gorm AutoMigrate for the given models.
// Production schema is owned by the hosted database; this is for local development.
func (p *Postgres) Migrate(ctx context.Context, models ...interface{}) error {
	if p.db == nil {
		return ErrConnection
	}
	if err := p.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping runs a minimal read-only query against the database
func (p *Postgres) Ping(ctx context.Context) error {
	if p.db == nil {
		return ErrConnection
	}
	var one int
	if err := p.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Query executes a query and returns all rows
func (p *Postgres) Query(ctx context.Context, query string, vars map[string]interface{}) ([]Row, error) {
	if p.db == nil {
		return nil, ErrConnection
	}

	rows := make([]Row, 0)
	if err := p.raw(ctx, query, vars).Scan(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// QueryOne executes a query and returns the first row
func (p *Postgres) QueryOne(ctx context.Context, query string, vars map[string]interface{}) (Row, error) {
	rows, err := p.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// Execute runs a query without returning results
func (p *Postgres) Execute(ctx context.Context, query string, vars map[string]interface{}) error {
	if p.db == nil {
		return ErrConnection
	}

	tx := p.db.WithContext(ctx)
	if len(vars) > 0 {
		tx = tx.Exec(query, vars)
	} else {
		tx = tx.Exec(query)
	}
	if tx.Error != nil {
		return translateError(tx.Error)
	}
	return nil
}

func (p *Postgres) raw(ctx context.Context, query string, vars map[string]interface{}) *gorm.DB {
	if len(vars) > 0 {
		return p.db.WithContext(ctx).Raw(query, vars)
	}
	return p.db.WithContext(ctx).Raw(query)
}

// translateError maps driver errors onto the package sentinels
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrQuery, err)
	}
}
