package persistence

import (
	"context"
	"log/slog"
)

// Options configures backend selection.
type Options struct {
	DBPath          string // empty selects the fallback backend directly
	MirrorPath      string // fallback CSV mirror, empty disables it
	MirrorMaxSizeMB int
}

// Open probes the durable backend once. If it cannot be opened the fallback
// backend is returned instead and stays selected: callers hold on to the
// returned Gateway for the process lifetime and never probe again.
func Open(ctx context.Context, opts Options, logger *slog.Logger) Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	if opts.DBPath != "" {
		db, err := OpenSQLite(ctx, opts.DBPath)
		if err == nil {
			logger.Info("persistence selected",
				slog.String("mode", string(ModeDurable)),
				slog.String("db_path", opts.DBPath),
			)
			return db
		}
		logger.Warn("durable backend unavailable, falling back to memory",
			slog.String("db_path", opts.DBPath),
			slog.String("error", err.Error()),
		)
	}

	var mirror *Mirror
	if opts.MirrorPath != "" {
		mirror = NewMirror(opts.MirrorPath, opts.MirrorMaxSizeMB, logger)
	}
	logger.Info("persistence selected",
		slog.String("mode", string(ModeFallback)),
		slog.Bool("mirror", mirror != nil),
	)
	return NewMemory(mirror, logger)
}
