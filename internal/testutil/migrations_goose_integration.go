//go:build integration

package testutil

import (
	"context"
	"fmt"
	"time"

	pgrepo "github.com/Gunvolt24/yote/internal/repo/postgres"
)

// ApplyMigrationsGoose — применяет встроенные миграции (migrations/*.sql) к базе dsn.
func ApplyMigrationsGoose(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pgrepo.Migrate(ctx, dsn); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
