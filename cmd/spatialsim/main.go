package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/spatialsim/internal/config"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string

	backend    string
	durations  string
	intervals  string
	timeout    float64
	threads    int
	partial    bool
	integrator string
	maxAbsErr  float64
	maxRelErr  float64
	maxStep    float64
	cgTol      float64
	live       bool

	plotSpecies []string
	plotStat    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "spatialsim",
		Short:         "spatial reaction-diffusion simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [model.yaml]",
		Short: "simulate a model and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	f := runCmd.Flags()
	f.StringVar(&configFile, "config", "", "run config file (yaml)")
	f.StringVar(&preset, "preset", "", "use a preset run configuration")
	f.StringVar(&backend, "backend", "pixel", "solver backend (pixel, fem)")
	f.StringVar(&durations, "durations", config.DefaultDurations, "';'-separated durations")
	f.StringVar(&intervals, "intervals", config.DefaultIntervals, "';'-separated image intervals")
	f.Float64Var(&timeout, "timeout", 0, "timeout in seconds, 0 for none")
	f.IntVar(&threads, "threads", 1, "worker threads, 0 for all cpus")
	f.BoolVar(&partial, "partial", false, "keep results of a timed out run")
	f.StringVar(&integrator, "integrator", "rk212", "pixel integrator (rk101, rk212, rk323, rk435)")
	f.Float64Var(&maxAbsErr, "max-abs-err", 0, "pixel absolute error bound, 0 for none")
	f.Float64Var(&maxRelErr, "max-rel-err", 0.005, "pixel relative error bound, 0 for none")
	f.Float64Var(&maxStep, "max-timestep", 0, "largest internal timestep, 0 for backend default")
	f.Float64Var(&cgTol, "cg-tol", 1e-10, "fem conjugate gradient tolerance")
	f.BoolVar(&live, "live", false, "show live progress")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run metadata and final statistics",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot species statistics against time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&plotSpecies, "species", nil, "species to plot (default all)")
	plotCmd.Flags().StringVar(&plotStat, "stat", "avg", "statistic to plot (avg, min, max)")

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list run presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %s  %s\n", keyStyle.Render(fmt.Sprintf("%-10s", name)),
					subtle.Render(fmt.Sprintf("backend=%s durations=%s intervals=%s", p.Backend, p.Durations, p.Intervals)))
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, exportCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}
