// Command desktop is the main-process host: it loads the environment, starts
// the logger, opens user preferences and serves IPC calls until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/applog"
	"github.com/lixenwraith/applog/compat"
	"github.com/lixenwraith/applog/env"
	"github.com/lixenwraith/applog/ipc"
	"github.com/lixenwraith/applog/lifecycle"
	"github.com/lixenwraith/applog/prefs"
)

const defaultAddr = "127.0.0.1:7345"

type options struct {
	base         string   // directory holding the .env files
	configPath   string   // optional TOML overlay for the logger
	addr         string   // IPC listen address
	logOverrides []string // key=value logger overrides
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "desktop",
		Short: "Main-process host with rotating logs, preferences and IPC",
		Long: `Starts the main-process services of the desktop application.

Environment files are read from --base in this order, later files winning:
  .env, .env.<APP_ENV>, .env.local, .env.<APP_ENV>.local

Examples:
  desktop --base . --addr 127.0.0.1:7345
  desktop --config logging.toml --log level=warn --log max_files=10`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.base, "base", ".", "directory containing .env files")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "TOML file with an [applog] section")
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "IPC listen address")
	cmd.Flags().StringArrayVar(&opts.logOverrides, "log", nil, "logger override as key=value (repeatable)")

	return cmd
}

// run starts every service and blocks until ctx ends or a termination signal arrives.
// Shutdown hooks run newest first, so the IPC server stops before the logger closes.
func run(ctx context.Context, opts options) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	environment, envErr := env.Load(opts.base)

	logger, err := newLogger(environment, opts)
	if err != nil {
		return err
	}

	lc := lifecycle.New()
	logger.Init(lc)

	defer func() {
		if r := recover(); r != nil {
			logger.Fatal("unrecovered panic", fmt.Sprint(r), string(debug.Stack()))
			_ = lc.Shutdown()
			err = fmt.Errorf("desktop: panic: %v", r)
		}
	}()

	if envErr != nil {
		logger.Warn("some environment files could not be parsed", envErr)
	}
	logger.Info("environment loaded", map[string]any{
		"name":  environment.Name(),
		"files": environment.Files(),
	})

	compat.RouteLogrus(logrus.StandardLogger(), logger)

	store, err := prefs.Open(environment.BaseStorageDirectory(), logger)
	if err != nil {
		logger.Error("failed to open preferences", err)
		return errors.Join(err, lc.Shutdown())
	}

	router := ipc.NewRouter(logger)
	if err := ipc.RegisterDefaults(router, environment, store); err != nil {
		logger.Error("failed to register ipc handlers", err)
		return errors.Join(err, lc.Shutdown())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		compat.NewCollector(logger, "applog"),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		logger.Error("failed to listen", opts.addr, err)
		return errors.Join(err, lc.Shutdown())
	}

	server := ipc.NewServer(router, logger, ipc.WithMetrics(reg))
	lc.OnShutdown(server.Close)

	go func() {
		if err := server.Serve(ln); err != nil {
			logger.Error("ipc server stopped unexpectedly", err)
			_ = lc.Shutdown()
		}
	}()

	logger.Info("application started", map[string]any{
		"addr":     ln.Addr().String(),
		"channels": router.Channels(),
		"prefs":    store.Path(),
	})

	return lc.Wait(ctx)
}

// newLogger applies, in order: environment defaults, the TOML overlay, then overrides
func newLogger(environment *env.Environment, opts options) (*applog.Logger, error) {
	cfg := applog.ConfigFromProvider(environment)
	if opts.configPath != "" {
		if err := cfg.LoadFile(opts.configPath); err != nil {
			return nil, err
		}
	}

	logger := applog.NewLogger()
	if err := logger.ApplyConfig(cfg); err != nil {
		return nil, err
	}
	if len(opts.logOverrides) > 0 {
		if err := logger.ApplyOverride(opts.logOverrides...); err != nil {
			return nil, err
		}
	}
	return logger, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
