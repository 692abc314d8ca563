package main

import (
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/storage"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println(subtle.Render("no runs"))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tBACKEND\tSNAPSHOTS\tFINAL T\tOUTCOME\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\t%s\n",
			r.ID, r.Model, r.Backend, r.Snapshots, r.FinalTime, r.Outcome,
			r.CreatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	results, err := st.LoadStats(args[0])
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(meta.Model) + subtle.Render("  "+meta.ID))
	fmt.Println(keyValue("backend", meta.Backend))
	if meta.Integrator != "" {
		fmt.Println(keyValue("integrator", meta.Integrator))
	}
	fmt.Println(keyValue("durations", meta.Durations))
	fmt.Println(keyValue("intervals", meta.Intervals))
	fmt.Println(keyValue("snapshots", meta.Snapshots))
	fmt.Println(keyValue("elapsed", fmt.Sprintf("%.3fs", meta.Elapsed)))
	fmt.Println(keyStyle.Render("outcome: ") + outcomeStyle(meta.Outcome).Render(meta.Outcome))

	if len(results) > 0 {
		last := results[len(results)-1]
		fmt.Println()
		fmt.Println(headerStyle.Render(fmt.Sprintf("t = %g", last.Time)))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SPECIES\tAVG\tMIN\tMAX")
		for _, id := range meta.Species {
			s := last.Stats[id]
			fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%.6g\n", id, s.Avg, s.Min, s.Max)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(meta.Metrics) > 0 {
		names := make([]string, 0, len(meta.Metrics))
		for name := range meta.Metrics {
			names = append(names, name)
		}
		slices.Sort(names)
		fmt.Println()
		fmt.Println(headerStyle.Render("metrics"))
		for _, name := range names {
			fmt.Println(keyValue(name, fmt.Sprintf("%.6g", meta.Metrics[name])))
		}
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	results, err := st.LoadStats(args[0])
	if err != nil {
		return err
	}
	if len(results) < 2 {
		return fmt.Errorf("run %s has %d snapshots, need at least 2 to plot", meta.ID, len(results))
	}
	pick, err := statPicker(plotStat)
	if err != nil {
		return err
	}

	species := meta.Species
	if len(plotSpecies) > 0 {
		for _, id := range plotSpecies {
			if !slices.Contains(meta.Species, id) {
				return fmt.Errorf("run %s has no species %q (have %v)", meta.ID, id, meta.Species)
			}
		}
		species = plotSpecies
	}

	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("snapshots: %d, t = %g..%g\n\n", len(results), results[0].Time, results[len(results)-1].Time)

	for _, id := range species {
		data := make([]float64, len(results))
		for i, r := range results {
			data[i] = pick(r.Stats[id])
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s %s vs time", id, plotStat)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func statPicker(name string) (func(field.Stats) float64, error) {
	switch name {
	case "avg":
		return func(s field.Stats) float64 { return s.Avg }, nil
	case "min":
		return func(s field.Stats) float64 { return s.Min }, nil
	case "max":
		return func(s field.Stats) float64 { return s.Max }, nil
	}
	return nil, fmt.Errorf("unknown statistic %q (avg, min, max)", name)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	return st.ExportJSON(os.Stdout, args[0])
}
