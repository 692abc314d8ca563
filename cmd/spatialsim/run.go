package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/san-kum/spatialsim/internal/config"
	"github.com/san-kum/spatialsim/internal/logging"
	"github.com/san-kum/spatialsim/internal/metrics"
	"github.com/san-kum/spatialsim/internal/modelspec"
	"github.com/san-kum/spatialsim/internal/simulate"
	"github.com/san-kum/spatialsim/internal/storage"
)

// loadConfig layers the preset, the config file and explicitly set flags,
// in that order.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) == 1 {
		cfg.Model = args[0]
	}
	if cfg.Model == "" {
		return nil, errors.New("no model given")
	}
	applyFlags(cmd, cfg)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool { return flags.Changed(name) }
	if changed("backend") {
		cfg.Backend = backend
	}
	if changed("durations") {
		cfg.Durations = durations
	}
	if changed("intervals") {
		cfg.Intervals = intervals
	}
	if changed("timeout") {
		cfg.TimeoutSeconds = timeout
	}
	if changed("threads") {
		cfg.Threads = threads
	}
	if changed("partial") {
		cfg.Partial = partial
	}
	if changed("integrator") {
		cfg.Pixel.Integrator = integrator
	}
	if changed("max-abs-err") {
		cfg.Pixel.MaxAbsErr = maxAbsErr
	}
	if changed("max-rel-err") {
		cfg.Pixel.MaxRelErr = maxRelErr
	}
	if changed("max-timestep") {
		cfg.Pixel.MaxTimestep = maxStep
		cfg.FEM.MaxTimestep = maxStep
	}
	if changed("cg-tol") {
		cfg.FEM.CGTolerance = cgTol
	}
	if f := cmd.Root().PersistentFlags(); f.Changed("data") {
		cfg.DataDir = dataDir
	}
	if f := cmd.Root().PersistentFlags(); f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	m, err := modelspec.Load(cfg.Model)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)
	if live {
		// slog output would corrupt the live view.
		logger = logging.Discard()
	}
	registry := prometheus.NewRegistry()
	solverMetrics := metrics.NewSolver(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionOpts := []simulate.SessionOption{
		simulate.WithLogger(logger),
		simulate.WithMetrics(solverMetrics),
	}

	var progress *liveProgress
	if live {
		progress = newLiveProgress(m.Name(), string(opts.Backend), expectedSnapshots(opts))
		sessionOpts = append(sessionOpts, simulate.WithObserver(progress))
	}
	session := simulate.NewSession(m, sessionOpts...)

	fmt.Printf("%s %s\n", titleStyle.Render("simulating"), m.Name())
	start := time.Now()
	var results []*simulate.Result
	if progress != nil {
		results, err = progress.run(cancel, func() ([]*simulate.Result, error) {
			return session.Simulate(ctx, opts)
		})
	} else {
		results, err = session.Simulate(ctx, opts)
	}
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("simulation failed", slog.Any("error", err))
		return err
	}

	outcome := metrics.OutcomeCompleted
	if len(results) > 0 && results[len(results)-1].Time < totalDuration(opts)*(1-1e-9) {
		outcome = metrics.OutcomePartial
	}

	species := make([]string, 0)
	if len(results) > 0 {
		for id := range results[0].Stats {
			species = append(species, id)
		}
	}
	runMetrics := make(map[string]float64)
	for _, metric := range metrics.Defaults(species) {
		for _, r := range results {
			metric.Observe(r.Time, r.Stats)
		}
		runMetrics[metric.Name()] = metric.Value()
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.Save(storage.RunMetadata{
		Model:      m.Name(),
		Backend:    string(opts.Backend),
		Integrator: integratorName(cfg),
		Durations:  opts.Durations,
		Intervals:  opts.Intervals,
		Elapsed:    elapsed.Seconds(),
		Outcome:    outcome,
		Metrics:    runMetrics,
	}, results)
	if err != nil {
		return err
	}

	samples, err := metrics.Gather(registry)
	if err != nil {
		return err
	}
	fmt.Println(panel.Render(
		keyValue("run", runID) + "\n" +
			keyValue("backend", opts.Backend) + "\n" +
			keyValue("snapshots", len(results)) + "\n" +
			keyValue("elapsed", elapsed.Round(time.Millisecond)) + "\n" +
			keyStyle.Render("outcome: ") + outcomeStyle(outcome).Render(outcome) + "\n\n" +
			renderSamples(samples),
	))
	return nil
}

// renderSamples lists the solver counters gathered during the run.
func renderSamples(samples []metrics.Sample) string {
	lines := make([]string, len(samples))
	for i, s := range samples {
		lines[i] = subtle.Render(s.String())
	}
	return strings.Join(lines, "\n")
}

func integratorName(cfg *config.Config) string {
	if cfg.Backend == string(simulate.BackendFEM) {
		return ""
	}
	return cfg.Pixel.Integrator
}

func totalDuration(o simulate.Options) float64 {
	var total float64
	for _, d := range o.Durations {
		total += d
	}
	return total
}

// expectedSnapshots counts the initial state and one snapshot per interval.
func expectedSnapshots(o simulate.Options) int {
	n := 1
	for k := range o.Durations {
		n += int(math.Round(o.Durations[k] / o.Intervals[k]))
	}
	return n
}
