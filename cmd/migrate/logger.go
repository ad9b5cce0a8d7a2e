package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/sss-network/sss-indexer/pkg/logger"
)

var _ migrate.Logger = (*migrateLogger)(nil)

// migrateLogger sends golang-migrate output to the application logger.
type migrateLogger struct {
	ctx     context.Context
	verbose bool
}

func newMigrateLogger(ctx context.Context, module string, verbose bool) *migrateLogger {
	if ctx == nil {
		ctx = context.Background()
	}
	return &migrateLogger{
		ctx:     logger.WithContext(ctx, slog.String("package", "migrate"), slog.String("module", module)),
		verbose: verbose,
	}
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logger.InfoContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
