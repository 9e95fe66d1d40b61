package db

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"moul.io/zapgorm2"
)

// Options contains the connection settings. PostgresURI takes precedence over SQLitePath.
type Options struct {
	PostgresURI string
	SQLitePath  string
	Logger      *zap.Logger
}

type patchedLogger struct {
	zapgorm2.Logger
}

// ErrRecordNotFound will be handled in application logic, let's not forward this to zap/sentry
func (l *patchedLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	l.Logger.Trace(ctx, begin, fc, err)
}

func dialector(option Options) (gorm.Dialector, error) {
	switch {
	case option.PostgresURI != "":
		return postgres.Open(option.PostgresURI), nil
	case option.SQLitePath != "":
		return sqlite.Open(option.SQLitePath), nil
	}
	return nil, fmt.Errorf("either PostgresURI or SQLitePath is required")
}

// New returns an instance for interacting with the mirror database
func New(option Options) (*gorm.DB, error) {
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	dial, err := dialector(option)
	if err != nil {
		return nil, err
	}
	gLogger := zapgorm2.New(option.Logger)
	gLogger.LogLevel = gormlogger.Warn
	gLogger.SlowThreshold = time.Second

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: &patchedLogger{
			Logger: gLogger,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "Cannot connect to database")
	}
	pool, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "Cannot get the connection pool")
	}
	if option.PostgresURI != "" {
		pool.SetMaxIdleConns(1)
		pool.SetMaxOpenConns(20)
	} else {
		// sqlite allows a single writer
		pool.SetMaxOpenConns(1)
	}
	pool.SetConnMaxLifetime(time.Hour)
	return db, nil
}
