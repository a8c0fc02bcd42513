// Command kovi is the Kovi bot runtime: it connects to a OneBot v11
// server, loads and runs plugins, and dispatches inbound events to
// them until shut down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/ThriceCola/Kovi/internal/botinfo"
	"github.com/ThriceCola/Kovi/internal/botstore"
	"github.com/ThriceCola/Kovi/internal/builtin"
	"github.com/ThriceCola/Kovi/internal/buildinfo"
	"github.com/ThriceCola/Kovi/internal/config"
	"github.com/ThriceCola/Kovi/internal/connwatch"
	"github.com/ThriceCola/Kovi/internal/contacts"
	"github.com/ThriceCola/Kovi/internal/correlator"
	"github.com/ThriceCola/Kovi/internal/dispatch"
	"github.com/ThriceCola/Kovi/internal/driver"
	"github.com/ThriceCola/Kovi/internal/driver/wsdriver"
	"github.com/ThriceCola/Kovi/internal/httpkit"
	"github.com/ThriceCola/Kovi/internal/onebot"
	"github.com/ThriceCola/Kovi/internal/plugin"
	"github.com/ThriceCola/Kovi/internal/registry"
	"github.com/ThriceCola/Kovi/internal/shutdown"
)

func main() {
	configPath := flag.String("config", "", "path to kovi.yaml (default: search standard locations)")
	flag.Parse()

	cmd := "run"
	if args := flag.Args(); len(args) > 0 {
		cmd = args[0]
	}

	switch cmd {
	case "version":
		fmt.Println(buildinfo.String())
	case "run":
		if err := run(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, "kovi:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "kovi: unknown command %q (want \"run\" or \"version\")\n", cmd)
		os.Exit(1)
	}
}

func run(configPath string) error {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return fmt.Errorf("locate config: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
	slog.SetDefault(logger)

	if !cfg.Driver.Configured() {
		return fmt.Errorf("driver.ws_url is not set in %s", path)
	}
	if cfg.Driver.HTTPURL != "" {
		if err := preflightHTTP(cfg.Driver.HTTPURL, logger); err != nil {
			return fmt.Errorf("driver http preflight: %w", err)
		}
	}

	store, err := botstore.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open bot store: %w", err)
	}
	defer store.Close()

	ctx, cancelMain := context.WithCancel(context.Background())
	defer cancelMain()

	drv := wsdriver.New(cfg.Driver.WSURL, cfg.Driver.AccessToken, logger)
	status, err := drv.Initialize(ctx)
	if err != nil || status != driver.StatusReady {
		return fmt.Errorf("connect to %s: %w", cfg.Driver.WSURL, err)
	}

	corr := correlator.New(drv, logger)
	info := botinfo.New()
	classifier := onebot.NewClassifier(corr, info, logger)
	reg := registry.New()
	mgr := plugin.NewManager()
	directory := contacts.New()
	disp := dispatch.New(classifier, reg, corr, mgr, logger).WithDirectory(directory)

	// builtinPlugins maps a plugin name from the config file to its Main
	// entrypoint. Real deployments would load these from a plugin
	// registration mechanism external to this package; the runtime only
	// needs the name-to-MainFunc mapping.
	builtinPlugins := map[string]plugin.MainFunc{
		"ping":   builtin.Ping(),
		"whoami": builtin.WhoAmI(directory, cfg.Admin.UserIDs),
	}
	loadPlugins(ctx, cfg, store, mgr, reg, corr, logger, builtinPlugins)

	watchers := connwatch.NewManager(logger)
	callTimeout := time.Duration(cfg.Driver.CallTimeoutSec) * time.Second
	watchers.Watch(ctx, connwatch.WatcherConfig{
		Name: "onebot-driver",
		Probe: func(probeCtx context.Context) error {
			_, err := corr.Call(probeCtx, "get_status", nil, "healthcheck")
			return err
		},
		OnDown: func(err error) {
			logger.Warn("onebot driver unreachable, attempting reconnect", "error", err)
			reconnectCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			if err := drv.Reconnect(reconnectCtx); err != nil {
				logger.Error("reconnect failed", "error", err)
			}
		},
	})
	defer watchers.Stop()

	if cfg.Debug.Enabled {
		auth, err := httpkit.NewAdminAuth(cfg.Admin.Token)
		if err != nil {
			return fmt.Errorf("admin auth: %w", err)
		}
		addr := fmt.Sprintf("%s:%d", cfg.Debug.Address, cfg.Debug.Port)
		srv := httpkit.NewDebugServer(addr, auth, pluginStatusAdapter{mgr})
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logger.Warn("debug server stopped", "error", err)
			}
		}()
	}

	coord := shutdown.New(logger, func(shutdownCtx context.Context) {
		for name, enabled := range mgr.Snapshot() {
			if err := store.SetEnabled(name, enabled); err != nil {
				logger.Error("persist plugin enable state failed", "plugin", name, "error", err)
			}
		}
		mgr.DisableAll()
		drv.Close()
		cancelMain()
	})
	go coord.Watch(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGALRM)

	logger.Info("kovi connected", "url", cfg.Driver.WSURL, "plugins", mgr.Names())

	err = disp.Run(ctx, drv)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// preflightHTTP checks that the sibling HTTP API is reachable before the
// WebSocket dial, since many OneBot implementations expose both
// transports and a reachable HTTP port is a good signal the process is
// actually up (as opposed to the port simply accepting TCP connections).
func preflightHTTP(httpURL string, logger *slog.Logger) error {
	client := httpkit.NewClient(
		httpkit.WithTimeout(5*time.Second),
		httpkit.WithUserAgent(buildinfo.UserAgent()),
		httpkit.WithRetry(2, time.Second),
		httpkit.WithLogger(logger),
	)
	resp, err := client.Get(httpURL)
	if err != nil {
		return err
	}
	httpkit.DrainAndClose(resp.Body, 1<<16)
	return nil
}

func loadPlugins(ctx context.Context, cfg *config.Config, store *botstore.SQLStore, mgr *plugin.Manager, reg *registry.Registry, corr *correlator.Correlator, logger *slog.Logger, builtinPlugins map[string]plugin.MainFunc) {
	for _, entry := range cfg.Plugins {
		main, ok := builtinPlugins[entry.Name]
		if !ok {
			logger.Warn("no such plugin, skipping", "plugin", entry.Name)
			continue
		}

		mode := plugin.AccessAll
		switch entry.AccessMode {
		case "whitelist":
			mode = plugin.AccessWhitelist
		case "blacklist":
			mode = plugin.AccessBlacklist
		}
		access := plugin.NewAccessControl(mode, entry.Groups, entry.Friends)

		p := plugin.New(entry.Name, main, access, logger)
		mgr.Add(p)

		enable := entry.EnableOnStartup
		if persisted, found, err := store.GetEnabled(entry.Name); err == nil && found {
			enable = persisted
		}
		if enable {
			p.Enable(ctx, reg, corr)
		}
	}
}

type pluginStatusAdapter struct {
	mgr *plugin.Manager
}

func (a pluginStatusAdapter) Statuses() []httpkit.PluginStatus {
	names := a.mgr.Names()
	out := make([]httpkit.PluginStatus, 0, len(names))
	for _, name := range names {
		p, ok := a.mgr.Get(name)
		if !ok {
			continue
		}
		out = append(out, httpkit.PluginStatus{Name: name, Enabled: p.Enabled()})
	}
	return out
}
