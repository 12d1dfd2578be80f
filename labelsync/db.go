package labelsync

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lewtec/labelsync/internal/repository"
)

// GetDatabase opens the run history database and brings its schema up to date
func GetDatabase(cfg DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := repository.Open(path)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("while preparing database %s: %w", path, err)
	}
	if logger != nil {
		if version, _, err := repository.SchemaVersion(db); err == nil {
			logger.Debug("database ready", "path", path, "schema_version", version)
		}
	}
	return db, nil
}
