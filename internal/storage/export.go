package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/spatialsim/internal/simulate"
)

type ExportData struct {
	Metadata RunMetadata       `json:"metadata"`
	Results  []*simulate.Result `json:"results"`
}

// ExportJSON writes a stored run as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	results, err := s.LoadStats(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Metadata: *meta, Results: results})
}
