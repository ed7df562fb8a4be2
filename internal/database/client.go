package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/JashanChopra/Summit/pkg/config"
	"go.uber.org/zap"
)

// Store is the single persistent store shared by every pipeline task.
// All reads and writes go through its query methods; Transaction hands
// the callback a Store bound to the open transaction.
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// sqlitePragmas are applied by the modernc driver to every new connection
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// readOnlyPragmas leave the journal mode as the writer set it and refuse writes
var readOnlyPragmas = []string{
	"busy_timeout(5000)",
	"query_only(1)",
}

// Open connects to the configured backend and migrates the schema
func Open(ctx context.Context, sc config.StorageData, zl *zap.SugaredLogger) (*Store, error) {
	return open(ctx, sc, zl, false)
}

// OpenReadOnly connects to an existing store without migrating it. Writes
// through a SQLite store opened this way fail.
func OpenReadOnly(ctx context.Context, sc config.StorageData, zl *zap.SugaredLogger) (*Store, error) {
	return open(ctx, sc, zl, true)
}

func open(ctx context.Context, sc config.StorageData, zl *zap.SugaredLogger, readOnly bool) (*Store, error) {
	dbLogger := logger.New(
		zap.NewStdLog(zl.Desugar()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	switch {
	case sc.Postgres != nil && sc.Postgres.ConnectionString != "":
		zl.Info("connecting to PostgreSQL...")
		dialector = postgres.Open(sc.Postgres.ConnectionString)
	case sc.SQLite != nil && sc.SQLite.Path != "":
		pragmas := sqlitePragmas
		if readOnly {
			if _, err := os.Stat(sc.SQLite.Path); err != nil {
				return nil, fmt.Errorf("open store: %w", err)
			}
			pragmas = readOnlyPragmas
		}
		zl.Infof("opening SQLite store at %s", sc.SQLite.Path)
		dialector = sqlite.New(sqlite.Config{
			DriverName: "sqlite",
			DSN:        sqliteDSN(sc.SQLite.Path, pragmas),
		})
	default:
		return nil, errors.New("no storage backend configured")
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if sc.Postgres == nil {
		// SQLite allows one writer; a single connection serializes every
		// statement through one handle.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: db, logger: zl}
	if readOnly {
		return s, nil
	}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

func sqliteDSN(path string, pragmas []string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&DataFile{}, &Datum{}, &CalEvent{}, &MasterCal{}); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}
