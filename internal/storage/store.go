package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/nemd/internal/analysis"
	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/sim"
)

const (
	KindSample = "sample"
	KindSHC    = "shc"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RegionBounds is one region's interval along the partition axis. Unbounded
// ends are omitted.
type RegionBounds struct {
	Name string   `json:"name"`
	Lo   *float64 `json:"lo,omitempty"`
	Hi   *float64 `json:"hi,omitempty"`
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

type RunMetadata struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Config    *config.Config `json:"config"`

	NL       int            `json:"nl,omitempty"`
	NR       int            `json:"nr,omitempty"`
	N        int            `json:"n,omitempty"`
	Axis     string         `json:"axis,omitempty"`
	Regions  []RegionBounds `json:"regions,omitempty"`
	Groups   map[string]int `json:"groups,omitempty"`
	Warnings []string       `json:"warnings,omitempty"`

	Chunks      int     `json:"chunks,omitempty"`
	ChunkSize   int     `json:"chunk_size,omitempty"`
	TotalG      float64 `json:"total_conductance,omitempty"`
	Frequencies int     `json:"frequencies,omitempty"`
}

func (s *Store) newRun(kind string) (string, string, error) {
	runID := fmt.Sprintf("%s_%d", kind, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", "", err
	}
	return runID, runDir, nil
}

func writeMeta(runDir string, meta *RunMetadata) error {
	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// SaveSample records a sampling run: its layout, group sizes and slab
// membership.
func (s *Store) SaveSample(source string, cfg *config.Config, report *sim.Report) (string, error) {
	runID, runDir, err := s.newRun(KindSample)
	if err != nil {
		return "", err
	}

	meta := &RunMetadata{
		ID:        runID,
		Kind:      KindSample,
		Source:    source,
		Timestamp: time.Now(),
		Config:    cfg,
		NL:        report.NL,
		NR:        report.NR,
		N:         report.N,
		Groups:    make(map[string]int, len(report.Groups)),
	}
	if l := report.Layout; l != nil {
		meta.Axis = l.Params.Axis.String()
		meta.Warnings = l.Warnings
		for _, r := range l.Regions() {
			meta.Regions = append(meta.Regions, RegionBounds{Name: r.ID, Lo: finite(r.Interval.Lo), Hi: finite(r.Interval.Hi)})
		}
	}
	for _, g := range report.Groups {
		meta.Groups[g.Name] = g.Count()
	}
	if err := writeMeta(runDir, meta); err != nil {
		return "", err
	}

	var rows [][]string
	for _, g := range report.Groups {
		if g.Name != "left" && g.Name != "right" {
			continue
		}
		for _, id := range g.IDs() {
			rows = append(rows, []string{g.Name, strconv.Itoa(id)})
		}
	}
	if err := writeCSV(filepath.Join(runDir, "interface.csv"), []string{"side", "id"}, rows); err != nil {
		return "", err
	}
	return runID, nil
}

var spectrumHeader = []string{"freq_thz", "shc", "shc_raw", "shc_error", "g", "transmission", "cumulative_g"}

// SaveSpectrum records a post-processing run.
func (s *Store) SaveSpectrum(source string, cfg *config.Config, res *analysis.Result, spec *analysis.Spectrum) (string, error) {
	runID, runDir, err := s.newRun(KindSHC)
	if err != nil {
		return "", err
	}

	meta := &RunMetadata{
		ID:          runID,
		Kind:        KindSHC,
		Source:      source,
		Timestamp:   time.Now(),
		Config:      cfg,
		Chunks:      res.Chunks,
		ChunkSize:   res.ChunkSize,
		TotalG:      spec.Total,
		Frequencies: len(spec.FreqTHz),
	}
	if err := writeMeta(runDir, meta); err != nil {
		return "", err
	}

	rows := make([][]string, len(spec.FreqTHz))
	for i := range rows {
		errVal := 0.0
		if res.Error != nil {
			errVal = res.Error[i]
		}
		rows[i] = []string{
			ftoa(spec.FreqTHz[i]),
			ftoa(res.Smooth[i]),
			ftoa(res.Average[i]),
			ftoa(errVal),
			ftoa(spec.G[i]),
			ftoa(spec.Transmission[i]),
			ftoa(spec.Cumulative[i]),
		}
	}
	if err := writeCSV(filepath.Join(runDir, "spectrum.csv"), spectrumHeader, rows); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// SpectrumData is the tabulated content of a post-processing run.
type SpectrumData struct {
	FreqTHz      []float64 `json:"freq_thz"`
	SHC          []float64 `json:"shc"`
	SHCRaw       []float64 `json:"shc_raw"`
	SHCError     []float64 `json:"shc_error"`
	G            []float64 `json:"g"`
	Transmission []float64 `json:"transmission"`
	Cumulative   []float64 `json:"cumulative_g"`
}

func (s *Store) LoadSpectrum(runID string) (*SpectrumData, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "spectrum.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(spectrumHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	data := &SpectrumData{}
	cols := []*[]float64{&data.FreqTHz, &data.SHC, &data.SHCRaw, &data.SHCError, &data.G, &data.Transmission, &data.Cumulative}
	for i := 1; i < len(records); i++ {
		for j, col := range cols {
			v, err := strconv.ParseFloat(records[i][j], 64)
			if err != nil {
				return nil, fmt.Errorf("spectrum.csv line %d: %w", i+1, err)
			}
			*col = append(*col, v)
		}
	}
	return data, nil
}

// LoadInterface returns the left and right ids recorded by a sampling run.
func (s *Store) LoadInterface(runID string) (left, right []int, err error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "interface.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	for i := 1; i < len(records); i++ {
		id, err := strconv.Atoi(records[i][1])
		if err != nil {
			return nil, nil, fmt.Errorf("interface.csv line %d: %w", i+1, err)
		}
		switch records[i][0] {
		case "left":
			left = append(left, id)
		case "right":
			right = append(right, id)
		}
	}
	return left, right, nil
}
