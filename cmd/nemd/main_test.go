package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/nemd/internal/dump"
	"github.com/san-kum/nemd/internal/nemd"
	"github.com/san-kum/nemd/internal/storage"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"bogus", LogLevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("warn", log.New(&buf, "", 0))
	l.Debugf("d")
	l.Infof("i")
	l.Warnf("w %d", 1)
	l.Errorf("e")

	got := buf.String()
	if strings.Contains(got, "[DEBUG]") || strings.Contains(got, "[INFO]") {
		t.Errorf("low levels leaked: %q", got)
	}
	if !strings.Contains(got, "[WARN] w 1") || !strings.Contains(got, "[ERROR] e") {
		t.Errorf("missing messages: %q", got)
	}
}

// writeData writes a 430 atom chain along y in a [0,430] box.
func writeData(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("chain for cli tests\n\n430 atoms\n3 atom types\n\n")
	b.WriteString("0 10 xlo xhi\n0 430 ylo yhi\n0 10 zlo zhi\n\n")
	b.WriteString("Masses\n\n1 10.811\n2 12.011\n3 14.007\n\nAtoms # atomic\n\n")
	for i := 0; i < 430; i++ {
		fmt.Fprintf(&b, "%d %d 1.0 %g 0.0\n", i+1, i%3+1, float64(i)+0.5)
	}
	path := filepath.Join(dir, "chain.data")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestScriptCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "script", "--data", dir, "--restart", "relaxed.restart")
	if err != nil {
		t.Fatalf("script: %v", err)
	}
	for _, want := range []string{
		"read_restart    relaxed.restart",
		"region          interface union 2 left right units box",
		"dump            dinterface interface custom 1 dump.interface id",
		`print           "NL = ${NL}"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("script output missing %q", want)
		}
	}
}

func TestScriptCommandRejectsSmallBox(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)
	if _, err := execute(t, "script", data, "--data", dir, "--margin", "300"); err == nil {
		t.Fatal("expected error for a box narrower than twice the margin")
	}
}

func TestSampleCommand(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)
	dumps := filepath.Join(dir, "dumps")

	out, err := execute(t, "sample", data, "--data", filepath.Join(dir, "runs"), "--out", dumps)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if !strings.Contains(out, "NL = 6\nNR = 6\n") {
		t.Errorf("unexpected counts in %q", out)
	}

	left, err := dump.ReadIDsFile(filepath.Join(dumps, "dump.left"))
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 6 {
		t.Errorf("dump.left has %d ids, want 6", len(left))
	}

	runs, err := storage.New(filepath.Join(dir, "runs")).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Kind != storage.KindSample || runs[0].NL != 6 {
		t.Fatalf("unexpected stored runs: %+v", runs)
	}

	listed, err := execute(t, "list", "--data", filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(listed, runs[0].ID) {
		t.Errorf("list output missing %s", runs[0].ID)
	}

	exported, err := execute(t, "export-json", runs[0].ID, "--data", filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatal(err)
	}
	var parsed storage.ExportData
	if err := json.Unmarshal([]byte(exported), &parsed); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if len(parsed.Left) != 6 || len(parsed.Right) != 6 {
		t.Errorf("exported interface %d/%d, want 6/6", len(parsed.Left), len(parsed.Right))
	}
}

func TestConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "nemd.yaml")
	if err := os.WriteFile(cfgPath, []byte("temperature: 500\nlayout:\n  margin: 130\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		args   []string
		margin float64
		temp   float64
	}{
		{"preset", []string{"--preset", "bnc-wide"}, 150, 300},
		{"file over preset", []string{"--preset", "bnc-wide", "--config", cfgPath}, 130, 500},
		{"flag over file", []string{"--config", cfgPath, "--margin", "120"}, 120, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetArgs(append([]string{"presets", "--data", dir}, tt.args...))
			cmd.SetOut(&bytes.Buffer{})
			if err := cmd.Execute(); err != nil {
				t.Fatal(err)
			}
			sub, _, err := cmd.Find([]string{"presets"})
			if err != nil {
				t.Fatal(err)
			}
			cfg, _, _, err := setup(sub)
			if err != nil {
				t.Fatal(err)
			}
			if cfg.Layout.Margin != tt.margin {
				t.Errorf("margin = %g, want %g", cfg.Layout.Margin, tt.margin)
			}
			if cfg.Temperature != tt.temp {
				t.Errorf("temperature = %g, want %g", cfg.Temperature, tt.temp)
			}
		})
	}
}

func TestRegionsCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "regions", "--data", dir, "--box", "0,430")
	if err != nil {
		t.Fatalf("regions: %v", err)
	}
	for _, want := range []string{"lfixed", "interface", "215"} {
		if !strings.Contains(out, want) {
			t.Errorf("regions output missing %q", want)
		}
	}
	if _, err := execute(t, "regions", "--data", dir); err == nil {
		t.Error("expected error without checkpoint or box")
	}
}

func TestRegionsCommandWritesSVG(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)
	svg := filepath.Join(dir, "layout.svg")
	if _, err := execute(t, "regions", data, "--data", dir, "--svg", svg); err != nil {
		t.Fatalf("regions: %v", err)
	}
	b, err := os.ReadFile(svg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "<title>hot ") {
		t.Errorf("svg missing hot band")
	}
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)
	out, err := execute(t, "sweep", data, "--data", dir,
		"--presets", "bnc,bnc-thin", "--out", filepath.Join(dir, "sweep"))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}

	rows := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n")[1:] {
		fields := strings.Fields(line)
		rows[fields[0]] = fields[1] + "/" + fields[2]
	}
	if rows["bnc"] != "6/6" || rows["bnc-thin"] != "3/3" {
		t.Errorf("unexpected NL/NR per preset: %v", rows)
	}
	for _, name := range []string{"bnc", "bnc-thin"} {
		if _, err := os.Stat(filepath.Join(dir, "sweep", name, "dump.interface")); err != nil {
			t.Errorf("missing dumps for %s: %v", name, err)
		}
	}
}

func TestSweepCommandAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)

	_, err := execute(t, "sweep", data, "--data", dir,
		"--presets", "bnc", "--margin", "300", "--out", filepath.Join(dir, "sweep"))
	if !errors.Is(err, nemd.ErrDegenerateLayout) {
		t.Fatalf("expected the margin override to reach the preset, got %v", err)
	}

	cfgPath := filepath.Join(dir, "nemd.yaml")
	if err := os.WriteFile(cfgPath, []byte("layout:\n  interface_half_width: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "sweep", data, "--data", dir, "--config", cfgPath,
		"--presets", "bnc", "--out", filepath.Join(dir, "sweep"))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if fields := strings.Fields(strings.Split(out, "\n")[1]); fields[1] != "2" || fields[2] != "2" {
		t.Errorf("expected the config file half width to apply, got %v", fields)
	}
}

const velocityDump = `ITEM: TIMESTEP
0
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 430
0 10
ITEM: ATOMS id vx vy vz
2 0.5 0.25 0
1 1 0 0.5
ITEM: TIMESTEP
15
ITEM: NUMBER OF ATOMS
2
ITEM: BOX BOUNDS pp pp pp
0 10
0 430
0 10
ITEM: ATOMS id vx vy vz
1 -1 0.5 0
2 0 -0.5 1
`

func TestCompactCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "vels.dump")
	if err := os.WriteFile(in, []byte(velocityDump), 0644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "vels.compact.dat")
	if _, err := execute(t, "compact", in, "--data", dir, "-o", target); err != nil {
		t.Fatalf("compact: %v", err)
	}

	b, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	want := "NAtoms: 2\nSample_Steps: 15\nAtom ids:\n1 2\n------\n" +
		"1 0 0.5 0.5 0.25 0\n" +
		"-1 0.5 0 0 -0.5 1\n"
	if string(b) != want {
		t.Errorf("unexpected compact file:\n%s", b)
	}
}

func writeIDs(path string, f dump.IDFrame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dump.WriteIDs(file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writeSHCInputs lays out a two atom interface with eight velocity frames
// and a config whose analysis section matches them.
func writeSHCInputs(t *testing.T, dir string) string {
	t.Helper()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	box := [3][2]float64{{0, 10}, {0, 430}, {0, 10}}
	for name, ids := range map[string][]int{"dump.left": {1}, "dump.right": {2}, "dump.interface": {1, 2}} {
		if err := writeIDs(filepath.Join(dir, name), dump.IDFrame{Box: box, IDs: ids}); err != nil {
			t.Fatal(err)
		}
	}

	write("Fij.kij", "# left x right\n0 1 0\n1 0 0\n0 0 2\n")

	var b strings.Builder
	b.WriteString("NAtoms: 2\nSample_Steps: 1\nAtom ids:\n1 2\n------\n")
	for f := 0; f < 8; f++ {
		x := float64(f)
		fmt.Fprintf(&b, "%g %g %g %g %g %g\n", x, 1-x, x*x/10, 2-x, x/2, 1.0)
	}
	write("vels.compact.dat", b.String())

	return write("nemd.yaml", fmt.Sprintf(`analysis:
  velocities: %s
  force_constants: %s
  dt_md: 1.0e-15
  sample_every: 1
  steps: 8
  chunks: 2
  window_width: 0
  area: 10
  temperature_jump: 5
`, filepath.Join(dir, "vels.compact.dat"), filepath.Join(dir, "Fij.kij")))
}

func TestSHCCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeSHCInputs(t, dir)
	runs := filepath.Join(dir, "runs")

	out, err := execute(t, "shc", "--data", runs, "--config", cfgPath, "--dumps", dir, "--workers", "2")
	if err != nil {
		t.Fatalf("shc: %v", err)
	}
	if !strings.Contains(out, "chunks: 2 of 4 frames") {
		t.Errorf("unexpected chunking in:\n%s", out)
	}
	if !strings.Contains(out, "total thermal conductance:") {
		t.Errorf("missing total conductance in:\n%s", out)
	}

	stored, err := storage.New(runs).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].Kind != storage.KindSHC || stored[0].Chunks != 2 {
		t.Fatalf("unexpected stored runs: %+v", stored)
	}
	spectrum, err := storage.New(runs).LoadSpectrum(stored[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(spectrum.FreqTHz) != 3 {
		t.Errorf("expected 3 frequency bins for 4-frame chunks, got %d", len(spectrum.FreqTHz))
	}
}

func TestSHCCommandRejectsMismatchedDumps(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeSHCInputs(t, dir)
	box := [3][2]float64{{0, 10}, {0, 430}, {0, 10}}
	if err := writeIDs(filepath.Join(dir, "dump.right"), dump.IDFrame{Box: box, IDs: []int{3}}); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "shc", "--data", dir, "--config", cfgPath, "--dumps", dir, "--no-save"); err == nil {
		t.Fatal("expected an error for a right id outside the interface")
	}
}

func TestRegionsCommandRejectsBadWidth(t *testing.T) {
	dir := t.TempDir()
	data := writeData(t, dir)
	if _, err := execute(t, "regions", data, "--data", dir, "--width", "-1"); err == nil {
		t.Fatal("expected an error for a negative width")
	}
}
