package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/simulate"
)

func sampleResults() []*simulate.Result {
	return []*simulate.Result{
		{Time: 0, Stats: map[string]field.Stats{
			"A": {Avg: 1, Min: 1, Max: 1},
			"B": {Avg: 0, Min: 0, Max: 0},
		}},
		{Time: 0.5, Stats: map[string]field.Stats{
			"A": {Avg: 0.75, Min: 0.5, Max: 0.875},
			"B": {Avg: 0.25, Min: 0.125, Max: 0.5},
		}},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	defer st.Close()

	runID, err := st.Save(RunMetadata{
		Model:     "cell",
		Backend:   "pixel",
		Durations: []float64{0.5},
		Intervals: []float64{0.5},
		Outcome:   "completed",
		Metrics:   map[string]float64{"A_mean": 0.875},
	}, sampleResults())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "cell" || meta.Backend != "pixel" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Snapshots != 2 || meta.FinalTime != 0.5 {
		t.Errorf("expected 2 snapshots ending at 0.5, got %d at %g", meta.Snapshots, meta.FinalTime)
	}
	if len(meta.Species) != 2 || meta.Species[0] != "A" || meta.Species[1] != "B" {
		t.Errorf("expected species [A B], got %v", meta.Species)
	}
	if meta.Metrics["A_mean"] != 0.875 {
		t.Errorf("expected metric 0.875, got %g", meta.Metrics["A_mean"])
	}

	results, err := st.LoadStats(runID)
	if err != nil {
		t.Fatalf("load stats failed: %v", err)
	}
	want := sampleResults()
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i := range want {
		if results[i].Time != want[i].Time {
			t.Errorf("result %d: time %g, want %g", i, results[i].Time, want[i].Time)
		}
		for id, s := range want[i].Stats {
			if results[i].Stats[id] != s {
				t.Errorf("result %d %s: got %+v, want %+v", i, id, results[i].Stats[id], s)
			}
		}
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	defer st.Close()

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	ids := map[string]bool{}
	for _, backend := range []string{"pixel", "fem"} {
		id, err := st.Save(RunMetadata{Model: "cell", Backend: backend}, sampleResults())
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		ids[id] = true
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if !ids[r.ID] {
			t.Errorf("unexpected run id %s", r.ID)
		}
		if r.Snapshots != 2 || r.FinalTime != 0.5 {
			t.Errorf("run %s: unexpected summary %+v", r.ID, r)
		}
	}
	if runs[0].CreatedAt.Before(runs[1].CreatedAt) {
		t.Error("expected newest run first")
	}
}

func TestStoreNotFound(t *testing.T) {
	st := New(t.TempDir())
	defer st.Close()

	if _, err := st.Load("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.LoadStats("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	defer st.Close()

	runID, err := st.Save(RunMetadata{Model: "cell", Backend: "fem"}, sampleResults())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Metadata.ID != runID || len(data.Results) != 2 {
		t.Errorf("unexpected export %+v", data)
	}
	if data.Results[1].Stats["B"].Max != 0.5 {
		t.Errorf("expected B max 0.5, got %g", data.Results[1].Stats["B"].Max)
	}
}
