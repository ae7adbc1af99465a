package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/nemd/internal/analysis"
	"github.com/san-kum/nemd/internal/checkpoint"
	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/nemd"
	"github.com/san-kum/nemd/internal/sim"
)

type discard struct{}

func (discard) Create(string) (io.WriteCloser, error) { return nopCloser{io.Discard}, nil }

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func sampleReport(t *testing.T) *sim.Report {
	t.Helper()
	snap := &checkpoint.Snapshot{Box: [3][2]float64{{0, 10}, {0, 430}, {0, 10}}}
	for i := 0; i < 430; i++ {
		snap.Atoms = append(snap.Atoms, nemd.Atom{ID: i + 1, Type: 1, Pos: [3]float64{5, float64(i) + 0.5, 5}})
	}
	report, err := sim.Run(context.Background(), snap, config.DefaultConfig(), discard{}, nil)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	return report
}

func spectrum(t *testing.T) (*analysis.Result, *analysis.Spectrum) {
	t.Helper()
	res := &analysis.Result{
		Omega:     []float64{0, 2e12, 4e12},
		Smooth:    []float64{0, 1e-22, 2e-22},
		Smooth2:   []float64{0, 1e-44, 4e-44},
		Average:   []float64{0, 1.5e-22, 1.5e-22},
		Chunks:    1,
		ChunkSize: 4,
	}
	spec, err := analysis.Conductance(res, 100, 10)
	if err != nil {
		t.Fatalf("conductance: %v", err)
	}
	return res, spec
}

func TestStoreSaveSample(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.SaveSample("chain.data", config.DefaultConfig(), sampleReport(t))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Kind != KindSample || meta.Source != "chain.data" {
		t.Errorf("unexpected kind/source %s/%s", meta.Kind, meta.Source)
	}
	if meta.NL != 6 || meta.NR != 6 || meta.N != 430 {
		t.Errorf("unexpected counts NL=%d NR=%d N=%d", meta.NL, meta.NR, meta.N)
	}
	if meta.Groups["freeze"] != 230 {
		t.Errorf("expected 230 frozen atoms, got %d", meta.Groups["freeze"])
	}
	if meta.Config == nil || meta.Config.Masses[2] != 12.011 {
		t.Error("config not recorded")
	}
	if len(meta.Regions) == 0 || meta.Regions[0].Name != "lfixed" || meta.Regions[0].Lo != nil {
		t.Errorf("expected unbounded lfixed first, got %+v", meta.Regions)
	}
	if meta.Regions[0].Hi == nil || *meta.Regions[0].Hi != 115 {
		t.Error("expected lfixed upper bound 115")
	}

	left, right, err := st.LoadInterface(runID)
	if err != nil {
		t.Fatalf("load interface: %v", err)
	}
	if len(left) != 6 || len(right) != 6 {
		t.Errorf("expected 6+6 interface ids, got %d+%d", len(left), len(right))
	}
}

func TestStoreSaveSpectrum(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res, spec := spectrum(t)
	runID, err := st.SaveSpectrum("vels.compact.dat", config.DefaultConfig(), res, spec)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	data, err := st.LoadSpectrum(runID)
	if err != nil {
		t.Fatalf("load spectrum failed: %v", err)
	}
	if len(data.FreqTHz) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(data.FreqTHz))
	}
	if data.SHC[2] != 2e-22 || data.SHCRaw[1] != 1.5e-22 {
		t.Errorf("unexpected spectrum values %v %v", data.SHC, data.SHCRaw)
	}
	if data.SHCError[1] != 0 {
		t.Error("single chunk run must store zero error")
	}
	if data.Cumulative[2] != spec.Cumulative[2] {
		t.Errorf("cumulative mismatch %g vs %g", data.Cumulative[2], spec.Cumulative[2])
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Kind != KindSHC || meta.Frequencies != 3 || meta.TotalG != spec.Total {
		t.Errorf("unexpected metadata %+v", meta)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list on missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	first, err := st.SaveSample("a", config.DefaultConfig(), sampleReport(t))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	res, spec := spectrum(t)
	second, err := st.SaveSpectrum("b", config.DefaultConfig(), res, spec)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != first || runs[1].ID != second {
		t.Errorf("expected runs oldest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res, spec := spectrum(t)
	runID, err := st.SaveSpectrum("b", config.DefaultConfig(), res, spec)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runDir := filepath.Join(tmpDir, runID)
	for _, name := range []string{"metadata.json", "spectrum.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	runID, err := st.SaveSample("a", config.DefaultConfig(), sampleReport(t))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSONTo(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Run.ID != runID || len(got.Left) != 6 || got.Spectrum != nil {
		t.Errorf("unexpected export %+v", got)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := st.ExportJSON(runID, path); err != nil {
		t.Fatalf("export to file failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}

	if err := st.ExportJSONTo(&buf, "missing"); err == nil {
		t.Error("expected error for unknown run")
	}
}
