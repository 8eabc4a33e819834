// QFan-Agent is a self-tuning fan controller: it learns fan speeds for
// the liquid-cooling radiator and the storage drives with tabular
// Q-learning, persisting what it learned across restarts.
//
// Usage:
//
//	qfan-agent [-config path] [-debug] [-reset-qtable]
//	qfan-agent monitor [-config path]
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/TIANLI0/QFan-Agent/internal/config"
	"github.com/TIANLI0/QFan-Agent/internal/control"
	"github.com/TIANLI0/QFan-Agent/internal/device"
	"github.com/TIANLI0/QFan-Agent/internal/lockfile"
	"github.com/TIANLI0/QFan-Agent/internal/logging"
	"github.com/TIANLI0/QFan-Agent/internal/monitor"
	"github.com/TIANLI0/QFan-Agent/internal/notify"
	"github.com/TIANLI0/QFan-Agent/internal/qlearn"
	"github.com/TIANLI0/QFan-Agent/internal/sensors"
	"github.com/TIANLI0/QFan-Agent/internal/telemetry"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "monitor" {
		if err := runMonitor(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := runAgent(args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runAgent(args []string) error {
	fs := flag.NewFlagSet("qfan-agent", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (defaults used when empty)")
	debug := fs.Bool("debug", false, "enable debug logging")
	resetQTable := fs.Bool("reset-qtable", false, "discard the persisted Q-table and learn from scratch")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg, changed := config.Normalize(cfg)

	lg := logging.New(cfg.Paths.Log, *debug)
	defer lg.Sync()

	if changed {
		lg.Warn("config contained out-of-range values, clamped to defaults")
		if *configPath != "" {
			if err := config.Save(*configPath, cfg); err != nil {
				lg.Warn("failed to write back normalized config", zap.Error(err))
			}
		}
	}

	lock, err := lockfile.Acquire(cfg.Paths.Lock)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := device.Init(); err != nil {
		return fmt.Errorf("hid init: %w", err)
	}
	defer device.Exit()

	var table *qlearn.Table
	if *resetQTable {
		lg.Info("resetting q-table", zap.String("path", cfg.Paths.QTable))
		table = qlearn.NewTable()
	} else {
		table, err = qlearn.Load(cfg.Paths.QTable)
		if err != nil {
			lg.Warn("q-table unreadable, starting fresh",
				zap.String("path", cfg.Paths.QTable), zap.Error(err))
		}
	}

	space, err := qlearn.NewSpace(cfg.Fans.Radiator, cfg.Fans.Storage)
	if err != nil {
		return fmt.Errorf("build action space: %w", err)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	policy := qlearn.NewPolicy(space, cfg.QLearning, rng)

	recorder, err := telemetry.NewWriter(cfg.Paths.Telemetry)
	if err != nil {
		return fmt.Errorf("open telemetry log: %w", err)
	}
	defer recorder.Close()

	notifier := notify.New(cfg.Notify, lg)
	mgr := device.NewManager(cfg.Cooler)
	defer mgr.Close()
	sampler := sensors.NewSampler(mgr, lg)

	loop := control.NewLoop(cfg, lg, sampler, mgr, notifier, recorder, table, space, policy)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lg.Info("agent starting",
		zap.String("cooler", cfg.Cooler.Product),
		zap.Int("actions", space.Len()),
		zap.Int("knownStates", table.States()),
		zap.Float64("epsilon", policy.Epsilon()))

	if err := loop.Run(ctx); err != nil {
		notifier.Notify("Fan agent crashed", err.Error())
		return err
	}
	return nil
}

func runMonitor(args []string) error {
	fs := flag.NewFlagSet("qfan-agent monitor", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (defaults used when empty)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	cfg, _ = config.Normalize(cfg)

	p := tea.NewProgram(monitor.New(cfg.Paths.Telemetry, cfg), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
