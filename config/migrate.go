package config

import (
	"context"
	"fmt"

	"useraccount/migrations"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the embedded SQL migrations.
func Migrate(ctx context.Context, db *gorm.DB, log logrus.FieldLogger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{log})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

type gooseLogger struct {
	log logrus.FieldLogger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Fatalf(format, v...)
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Infof(format, v...)
}
