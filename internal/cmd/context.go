package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/jobscout/jobscout/internal/config"
	"github.com/jobscout/jobscout/internal/store"
	"github.com/jobscout/jobscout/internal/store/filestore"
	"github.com/jobscout/jobscout/internal/store/pgstore"
	"github.com/jobscout/jobscout/internal/store/sqlstore"
	"github.com/jobscout/jobscout/internal/ui"
)

type Context struct {
	Out        io.Writer
	Err        io.Writer
	UI         *ui.UI
	Config     config.Config
	Profile    config.Profile
	Logger     zerolog.Logger
	Verbose    bool
	JSONOutput bool
	Version    string
	ColorMode  ui.ColorMode
}

// Format picks the renderer for list and detail output.
func (c *Context) Format() ui.Format {
	if c.JSONOutput {
		return ui.FormatJSON
	}
	return ui.FormatTable
}

// openStore opens the configured backend for the profile's user. The
// caller owns the returned store and must close it.
func (c *Context) openStore(ctx context.Context) (store.Store, error) {
	return openBackend(ctx, c.Config, c.Config.Storage.Backend, c.Profile.User())
}

func openBackend(ctx context.Context, cfg config.Config, backend, user string) (store.Store, error) {
	switch backend {
	case config.BackendFile:
		return filestore.Open(cfg.Storage.DataDir, user)
	case config.BackendSQLite:
		return sqlstore.Open(cfg.DBPath(), user)
	case config.BackendPostgres:
		if cfg.Storage.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend needs DATABASE_URL")
		}
		return pgstore.Open(ctx, cfg.Storage.DatabaseURL, user)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
