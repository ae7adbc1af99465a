package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run      *RunMetadata  `json:"run"`
	Spectrum *SpectrumData `json:"spectrum,omitempty"`
	Left     []int         `json:"left,omitempty"`
	Right    []int         `json:"right,omitempty"`
}

// Export gathers a run's metadata with its tabulated data.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Run: meta}
	switch meta.Kind {
	case KindSHC:
		if data.Spectrum, err = s.LoadSpectrum(runID); err != nil {
			return nil, err
		}
	case KindSample:
		if data.Left, data.Right, err = s.LoadInterface(runID); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// ExportJSON writes the run to path, or to stdout when path is empty or "-".
func (s *Store) ExportJSON(runID, path string) error {
	if path == "" || path == "-" {
		return s.ExportJSONTo(os.Stdout, runID)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := s.ExportJSONTo(file, runID); err != nil {
		return err
	}
	return file.Close()
}

func (s *Store) ExportJSONTo(w io.Writer, runID string) error {
	data, err := s.Export(runID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
