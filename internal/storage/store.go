// Package storage keeps simulation runs on disk: one directory per run
// holding metadata.json and stats.csv, plus a SQLite index of every run.
package storage

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/spatialsim/internal/field"
	"github.com/san-kum/spatialsim/internal/simulate"
)

const (
	metadataFile = "metadata.json"
	statsFile    = "stats.csv"
	indexFile    = "runs.db"
)

// ErrNotFound is returned for an unknown run id.
var ErrNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	db      *sql.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the base directory and opens the run index.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	if s.db != nil {
		return nil
	}
	db, err := openIndex(filepath.Join(s.baseDir, indexFile))
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

type RunMetadata struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Backend    string    `json:"backend"`
	Integrator string    `json:"integrator,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Durations  []float64 `json:"durations"`
	Intervals  []float64 `json:"intervals"`
	Species    []string  `json:"species"`
	Snapshots  int       `json:"snapshots"`
	FinalTime  float64   `json:"final_time"`
	// Elapsed is the wall-clock run time in seconds.
	Elapsed float64            `json:"elapsed"`
	Outcome string             `json:"outcome"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// Save writes a new run and returns its id. ID, CreatedAt, Species,
// Snapshots and FinalTime are filled from the results.
func (s *Store) Save(meta RunMetadata, results []*simulate.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	meta.ID = uuid.NewString()
	meta.CreatedAt = time.Now().UTC()
	meta.Snapshots = len(results)
	meta.Species = nil
	if len(results) > 0 {
		for id := range results[0].Stats {
			meta.Species = append(meta.Species, id)
		}
		slices.Sort(meta.Species)
		meta.FinalTime = results[len(results)-1].Time
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeStats(filepath.Join(runDir, statsFile), meta.Species, results); err != nil {
		return "", err
	}
	if err := s.index(meta); err != nil {
		return "", fmt.Errorf("index run %s: %w", meta.ID, err)
	}
	return meta.ID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeStats(path string, species []string, results []*simulate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"time"}
	for _, id := range species {
		header = append(header, id+"_avg", id+"_min", id+"_max")
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{formatFloat(r.Time)}
		for _, id := range species {
			st := r.Stats[id]
			row = append(row, formatFloat(st.Avg), formatFloat(st.Min), formatFloat(st.Max))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStats reads the per-snapshot statistics of a run back as results
// without concentration fields.
func (s *Store) LoadStats(runID string) ([]*simulate.Result, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return []*simulate.Result{}, nil
	}
	header := records[0]
	if (len(header)-1)%3 != 0 {
		return nil, fmt.Errorf("storage: malformed stats header in run %s", runID)
	}
	species := make([]string, 0, (len(header)-1)/3)
	for i := 1; i < len(header); i += 3 {
		species = append(species, header[i][:len(header[i])-len("_avg")])
	}

	results := make([]*simulate.Result, 0, len(records)-1)
	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: run %s line %d: %w", runID, line+2, err)
			}
			vals[j] = v
		}
		r := simulate.Result{Time: vals[0], Stats: make(map[string]field.Stats, len(species))}
		for k, id := range species {
			r.Stats[id] = field.Stats{Avg: vals[1+3*k], Min: vals[2+3*k], Max: vals[3+3*k]}
		}
		results = append(results, &r)
	}
	return results, nil
}
