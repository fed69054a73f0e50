package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nathsou/disk-analyzer/internal/config"
	"github.com/nathsou/disk-analyzer/internal/explorer"
	"github.com/nathsou/disk-analyzer/internal/logging"
	"github.com/nathsou/disk-analyzer/internal/metrics"
	"github.com/nathsou/disk-analyzer/internal/report"
	"github.com/nathsou/disk-analyzer/pkg/client"
	"github.com/nathsou/disk-analyzer/pkg/pathutil"
	"github.com/nathsou/disk-analyzer/pkg/query"
	"github.com/nathsou/disk-analyzer/pkg/retry"
	"github.com/nathsou/disk-analyzer/pkg/sizefmt"
	"github.com/nathsou/disk-analyzer/pkg/snapshot"
)

// ownsTerminal marks commands that draw on the terminal themselves, so the
// logger must stay off stdout and stderr.
const ownsTerminal = "owns-terminal"

// app holds what the sub-commands share. It is filled in once the
// configuration is loaded, before any sub-command runs.
type app struct {
	v       *viper.Viper
	cfgFile string

	cfg    *config.Config
	log    *zap.Logger
	client *client.Client
	store  *snapshot.Store // nil when persistence is off or unavailable
	ex     *explorer.Explorer
}

func (a *app) setup(cmd *cobra.Command) error {
	bind(a.v, cmd.Flags(), commandKeys)
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
		NoTerminal: cmd.Annotations[ownsTerminal] == "true",
	}); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	a.log = logging.Named("cli")

	a.client = client.New(client.Config{
		BaseURL:     cfg.Server,
		Timeout:     cfg.Timeout,
		RetryConfig: retry.DefaultConfig().WithAttempts(cfg.Attempts()),
		AuthToken:   cfg.AuthToken,
		Transport:   metrics.InstrumentTransport(client.DefaultTransport()),
		Logger:      logging.Named("client"),
	})

	opts := explorer.Options{
		Cache: query.New(query.Config{
			StaleTime: cfg.StaleTime,
			Observer:  metrics.Recorder{},
		}),
		Recorder: metrics.Recorder{},
		Logger:   logging.Named("explorer"),
	}
	if cfg.CachePersist {
		store, err := snapshot.New(cfg.CacheDir, cfg.CacheMaxSize)
		if err != nil {
			a.log.Warn("snapshot store disabled", zap.String("dir", cfg.CacheDir), zap.Error(err))
		} else {
			a.store = store
			opts.Store = store
			size, _, _ := store.Stats()
			metrics.SetSnapshotStoreBytes(size)
		}
	}
	a.ex = explorer.New(a.client, opts)

	a.log.Debug("configured",
		zap.String("server", cfg.Server),
		zap.Int("attempts", cfg.Attempts()),
		zap.Duration("stale_time", cfg.StaleTime),
		zap.Bool("persist", a.store != nil),
	)
	return nil
}

func (a *app) sizes() sizefmt.Formatter {
	return sizefmt.Formatter{Base: a.cfg.Units, Precision: a.cfg.Precision}
}

func (a *app) renderer(w io.Writer) *report.Renderer {
	return report.New(w, a.cfg.Output, a.sizes())
}

func (a *app) limits() explorer.Limits {
	return explorer.Limits{Files: a.cfg.TopFiles, Dirs: a.cfg.TopDirs}
}

// target resolves the path argument of a command against the session root.
// Without an argument it is the home directory of the explored machine.
func (a *app) target(ctx context.Context, args []string) (string, pathutil.Root, error) {
	root, info, err := a.ex.Session.Root(ctx)
	if err != nil {
		return "", pathutil.Root{}, fmt.Errorf("os info: %w", err)
	}
	if len(args) == 0 || args[0] == "" {
		return info.Home, root, nil
	}

	path := args[0]
	if root.OS.Family() == pathutil.FamilyPOSIX && !strings.HasPrefix(path, pathutil.Slash) {
		return "", root, fmt.Errorf("path %q is not absolute", path)
	}
	if root.IsRoot(path) {
		return root.Path, root, nil
	}
	return strings.TrimRight(path, `\/`), root, nil
}

// refresh drops the cached results of path when asked to.
func (a *app) refresh(path string, force bool) {
	if !force {
		return
	}
	n := a.ex.Refresh(path)
	a.log.Debug("refreshed", zap.String("path", path), zap.Int("entries", n))
}
