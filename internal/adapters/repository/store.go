package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/GruntingRhino/Athlemetry/internal/domain/model"
	"github.com/GruntingRhino/Athlemetry/pkg/logger"
	"github.com/GruntingRhino/Athlemetry/pkg/metrics"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Store implements every persistence interface of the domain packages.
type Store struct {
	db     *gorm.DB
	now    func() time.Time
	logger logger.Logger
}

// New wraps an open gorm handle.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		now:    utcNow,
		logger: logger.Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func utcNow() time.Time { return time.Now().UTC() }

// Open connects to driver with dsn. Timestamps are written in UTC.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		dialector = postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true})
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: utcNow,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		return nil, fmt.Errorf("instrument %s: %w", driver, err)
	}
	return db, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *gorm.DB { return s.db }

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&model.Athlete{},
		&model.DrillDefinition{},
		&model.ModelVersion{},
		&model.Submission{},
		&model.MetricResult{},
		&model.BenchmarkSnapshot{},
		&model.BenchmarkAggregate{},
		&model.ProcessingLog{},
		&model.SystemLog{},
		&model.ManualOverride{},
	)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn with a store bound to a single transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, now: s.now, logger: s.logger})
	})
}

// observe records query latency for the repository metrics.
func (s *Store) observe(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

// translate maps gorm's not-found error onto the domain sentinel.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// affected returns ErrNotFound when an update matched no rows.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
