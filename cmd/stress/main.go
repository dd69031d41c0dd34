// Command stress hammers a logger from many goroutines with a small size
// limit, so rotation and retention run constantly under contention. Bursts
// alternate between direct calls and the gnet adapters.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/panjf2000/gnet/v2/pkg/logging"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/applog"
	"github.com/lixenwraith/applog/compat"
	"github.com/lixenwraith/applog/lifecycle"
)

const configFile = "stress_config.toml"

// Written next to the logs and loaded back through the TOML loader
const tomlContent = `
[applog]
  level = -4 # Debug
  name = "stress_test"
  extension = "log"
  max_size_bytes = 1048576 # Force frequent rotation (1 MiB)
  max_files = 5
  enable_console = false
`

var levels = []int64{
	applog.LevelDebug,
	applog.LevelInfo,
	applog.LevelWarn,
	applog.LevelError,
}

type options struct {
	dir            string
	workers        int
	bursts         int
	logsPerBurst   int
	maxMessageSize int
}

func generateRandomMessage(r *rand.Rand, size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[r.Intn(len(chars))])
	}
	return sb.String()
}

// sinks are the write paths a burst can take
type sinks struct {
	logger     *applog.Logger
	gnet       logging.Logger
	structured logging.Logger
}

func newSinks(logger *applog.Logger) (*sinks, error) {
	b := compat.NewBuilder().WithLogger(logger)
	plain, err := b.BuildGnet()
	if err != nil {
		return nil, err
	}
	structured, err := b.BuildStructuredGnet()
	if err != nil {
		return nil, err
	}
	return &sinks{logger: logger, gnet: plain, structured: structured}, nil
}

// gnetf routes a record through a gnet logger at the matching level
func gnetf(l logging.Logger, level int64, format string, args ...any) {
	switch level {
	case applog.LevelDebug:
		l.Debugf(format, args...)
	case applog.LevelWarn:
		l.Warnf(format, args...)
	case applog.LevelError:
		l.Errorf(format, args...)
	default:
		l.Infof(format, args...)
	}
}

// logBurst simulates a burst of logging activity
func logBurst(s *sinks, r *rand.Rand, opts options, burstID int) {
	const format = "wkr=%d bst=%d seq=%d msg=%s"
	for i := 0; i < opts.logsPerBurst; i++ {
		level := levels[r.Intn(len(levels))]
		msg := generateRandomMessage(r, r.Intn(opts.maxMessageSize)+10)
		wkr := burstID % opts.workers

		switch burstID % 3 {
		case 1:
			gnetf(s.gnet, level, format, wkr, burstID, i, msg)
		case 2:
			gnetf(s.structured, level, format, wkr, burstID, i, msg)
		default:
			s.logger.Log(level, msg, map[string]any{
				"wkr": wkr,
				"bst": burstID,
				"seq": i,
				"rnd": r.Int63(),
			})
		}
	}
}

func worker(s *sinks, opts options, burstChan <-chan int, wg *sync.WaitGroup, completed *atomic.Int64) {
	defer wg.Done()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for burstID := range burstChan {
		logBurst(s, r, opts, burstID)
		n := completed.Add(1)
		if n%10 == 0 || n == int64(opts.bursts) {
			fmt.Printf("\rProgress: %d/%d bursts completed", n, opts.bursts)
		}
	}
}

func run(opts options) error {
	if opts.workers < 1 || opts.bursts < 1 || opts.logsPerBurst < 1 || opts.maxMessageSize < 1 {
		return fmt.Errorf("workers, bursts, per-burst and max-message must be positive")
	}
	if err := os.MkdirAll(opts.dir, 0755); err != nil {
		return err
	}
	cfgPath := filepath.Join(opts.dir, configFile)
	if err := os.WriteFile(cfgPath, []byte(tomlContent), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	cfg, err := applog.NewConfigFromFile(cfgPath)
	if err != nil {
		return err
	}
	cfg.Directory = filepath.Join(opts.dir, "logs")
	_ = os.RemoveAll(cfg.Directory)

	logger := applog.NewLogger()
	if err := logger.ApplyConfig(cfg); err != nil {
		return err
	}
	lc := lifecycle.New()
	logger.Init(lc)
	fmt.Printf("Logger initialized. Logs will be written to: %s\n", cfg.Directory)

	out, err := newSinks(logger)
	if err != nil {
		_ = lc.Shutdown()
		return err
	}

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		opts.workers, opts.bursts, opts.logsPerBurst)
	fmt.Println("Press Ctrl+C to stop early.")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	burstChan := make(chan int, opts.workers)
	var wg sync.WaitGroup
	var completed atomic.Int64
	for i := 0; i < opts.workers; i++ {
		wg.Add(1)
		go worker(out, opts, burstChan, &wg, &completed)
	}

	startTime := time.Now()
submit:
	for i := 1; i <= opts.bursts; i++ {
		select {
		case burstChan <- i:
		case <-ctx.Done():
			fmt.Println("\n[Signal Received] Halting burst submission.")
			break submit
		}
	}
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	done := completed.Load()

	fmt.Println("\n--- Test Finished ---")
	fmt.Printf("Completed %d/%d bursts in %v\n", done, opts.bursts, duration.Round(time.Millisecond))
	if done > 0 && duration.Seconds() > 0 {
		fmt.Printf("Approximate Logs/sec: %.2f\n", float64(done*int64(opts.logsPerBurst))/duration.Seconds())
	}

	stats := logger.Stats()
	fmt.Printf("Written: %d  Dropped: %d  Rotations: %d  Deletions: %d  Internal errors: %d\n",
		stats.RecordsWritten, stats.RecordsDropped, stats.Rotations, stats.Deletions, stats.InternalErrors)

	if err := lc.Shutdown(); err != nil {
		return fmt.Errorf("logger shutdown: %w", err)
	}
	fmt.Printf("Check log files in '%s'.\n", cfg.Directory)
	return nil
}

func main() {
	opts := options{}
	cmd := &cobra.Command{
		Use:          "stress",
		Short:        "Concurrent write, rotation and retention stress test",
		SilenceUsage: true,
		RunE: func(*cobra.Command, []string) error {
			return run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "./stress", "working directory for config and logs")
	cmd.Flags().IntVar(&opts.workers, "workers", 500, "concurrent writers")
	cmd.Flags().IntVar(&opts.bursts, "bursts", 100, "bursts to submit")
	cmd.Flags().IntVar(&opts.logsPerBurst, "per-burst", 500, "records per burst")
	cmd.Flags().IntVar(&opts.maxMessageSize, "max-message", 10000, "upper bound on message length")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
