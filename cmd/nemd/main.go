package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/nemd/internal/analysis"
	"github.com/san-kum/nemd/internal/checkpoint"
	"github.com/san-kum/nemd/internal/config"
	"github.com/san-kum/nemd/internal/dump"
	"github.com/san-kum/nemd/internal/export"
	"github.com/san-kum/nemd/internal/nemd"
	"github.com/san-kum/nemd/internal/script"
	"github.com/san-kum/nemd/internal/sim"
	"github.com/san-kum/nemd/internal/storage"
	"github.com/san-kum/nemd/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	axis            string
	margin          float64
	restart         string
	allowDegenerate bool

	format    string
	sampleOut string
	sweepOut  string
	outFile   string
	noSave    bool
	boxBounds string
	width     int
	presetSet []string

	velocities string
	kijFile    string
	dumpDir    string
	workers    int
	plotField  string
	svgFile    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "nemd",
		Short:        "interface sampling and spectral heat current for NEMD runs",
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".nemd", "data directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "start from a preset configuration")
	pf.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	pf.StringVar(&axis, "axis", "y", "partition axis")
	pf.Float64Var(&margin, "margin", nemd.DefaultMargin, "distance from the midpoint to each fixed boundary")
	pf.StringVar(&restart, "restart", config.DefaultRestart, "restart file read by the script")
	pf.BoolVar(&allowDegenerate, "allow-degenerate", false, "warn instead of failing on a box too small for the margin")

	scriptCmd := &cobra.Command{
		Use:   "script [checkpoint]",
		Short: "render the engine input script",
		Args:  cobra.MaximumNArgs(1),
		RunE:  renderScript,
	}
	scriptCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	scriptCmd.Flags().StringVar(&format, "format", "", "checkpoint format (default from extension)")

	regionsCmd := &cobra.Command{
		Use:   "regions [checkpoint]",
		Short: "show the derived region layout",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showRegions,
	}
	regionsCmd.Flags().StringVar(&boxBounds, "box", "", "box bounds along the axis as lo,hi")
	regionsCmd.Flags().StringVar(&format, "format", "", "checkpoint format (default from extension)")
	regionsCmd.Flags().IntVar(&width, "width", 80, "strip width")
	regionsCmd.Flags().StringVar(&svgFile, "svg", "", "also write the layout as an SVG figure")

	sampleCmd := &cobra.Command{
		Use:   "sample [checkpoint]",
		Short: "sample interface membership with a zero-step evaluation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSample,
	}
	sampleCmd.Flags().StringVar(&format, "format", "", "checkpoint format (default from extension)")
	sampleCmd.Flags().StringVar(&sampleOut, "out", ".", "directory for the membership dumps")
	sampleCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [checkpoint]",
		Short: "sample the same checkpoint under several presets",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&format, "format", "", "checkpoint format (default from extension)")
	sweepCmd.Flags().StringVar(&sweepOut, "out", "sweep", "parent directory, one subdirectory per preset")
	sweepCmd.Flags().StringSliceVar(&presetSet, "presets", nil, "presets to compare (default all)")

	compactCmd := &cobra.Command{
		Use:   "compact [velocity dump]",
		Short: "convert a velocity dump into the compact velocity file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompact,
	}
	compactCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default from config)")

	shcCmd := &cobra.Command{
		Use:   "shc",
		Short: "compute the spectral heat current and conductance",
		Args:  cobra.NoArgs,
		RunE:  runSHC,
	}
	shcCmd.Flags().StringVar(&velocities, "velocities", "", "compact velocity file (default from config)")
	shcCmd.Flags().StringVar(&kijFile, "kij", "", "force-constant matrix (default from config)")
	shcCmd.Flags().StringVar(&dumpDir, "dumps", ".", "directory holding the membership dumps")
	shcCmd.Flags().IntVar(&workers, "workers", 0, "transform workers (default GOMAXPROCS)")
	shcCmd.Flags().BoolVar(&noSave, "no-save", false, "do not record the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().StringVar(&plotField, "plot", "g", "spectrum column to plot: g, shc, transmission or cumulative")
	showCmd.Flags().StringVar(&svgFile, "svg", "", "also write the plotted column as an SVG figure")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(out, "  %-10s margin %g, half width %g, offset %g, T %g K\n", name,
					cfg.Layout.Margin, cfg.Layout.InterfaceHalfWidth, cfg.Layout.InterfaceOffset, cfg.Temperature)
			}
			return nil
		},
	}

	rootCmd.AddCommand(scriptCmd, regionsCmd, sampleCmd, sweepCmd, compactCmd, shcCmd, listCmd, showCmd, exportJSONCmd, presetsCmd)
	return rootCmd
}

// setup resolves configuration with precedence flag > env > file > preset >
// default, and builds the logger and store.
func setup(cmd *cobra.Command) (*config.Config, *Logger, *storage.Store, error) {
	env, err := config.ParseEnv()
	if err != nil {
		return nil, nil, nil, err
	}

	flags := cmd.Flags()
	level := logLevel
	if !flags.Changed("log-level") && env.LogLevel != "" {
		level = env.LogLevel
	}
	logger := NewLogger(level, log.New(cmd.ErrOrStderr(), "", log.LstdFlags))

	dir := dataDir
	if !flags.Changed("data") && env.DataDir != "" {
		dir = env.DataDir
	}

	base := config.DefaultConfig()
	if preset != "" {
		if base = config.GetPreset(preset); base == nil {
			return nil, nil, nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	cfg, err := resolve(cmd, base, env)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, storage.New(dir), nil
}

// resolve layers the config file, the environment and any changed flags
// over base, then validates the result. base is not modified.
func resolve(cmd *cobra.Command, base *config.Config, env *config.Env) (*config.Config, error) {
	cfg := base.Clone()
	if configFile != "" {
		var err error
		if cfg, err = config.LoadOver(configFile, base); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	env.Apply(cfg)

	flags := cmd.Flags()
	if flags.Changed("axis") {
		cfg.Layout.Axis = axis
	}
	if flags.Changed("margin") {
		cfg.Layout.Margin = margin
	}
	if flags.Changed("restart") {
		cfg.Restart = restart
	}
	if flags.Changed("allow-degenerate") {
		cfg.Layout.AllowDegenerate = allowDegenerate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSnapshot(ctx context.Context, path string, log nemd.Logger) (*checkpoint.Snapshot, error) {
	snap, err := checkpoint.NewRegistry().Load(ctx, path, format, log)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded %d atoms from %s (%s)", len(snap.Atoms), path, snap.Format)
	return snap, nil
}

func parseBox(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("box must be lo,hi, got %q", s)
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("box must be lo,hi, got %q", s)
	}
	return lo, hi, nil
}

func renderScript(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := setup(cmd)
	if err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	layout, err := nemd.Template(params)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		// The script is box independent; a checkpoint only validates the fit.
		snap, err := loadSnapshot(cmd.Context(), args[0], logger)
		if err != nil {
			return err
		}
		lo, hi := snap.Bounds(params.Axis)
		checked, err := nemd.Derive(params, lo, hi)
		if err != nil {
			return err
		}
		for _, w := range checked.Warnings {
			logger.Warnf("layout: %s", w)
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := script.Render(w, cfg, layout); err != nil {
		return err
	}
	if outFile != "" {
		logger.Infof("wrote %s", outFile)
	}
	return nil
}

func showRegions(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := setup(cmd)
	if err != nil {
		return err
	}
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	var (
		snap   *checkpoint.Snapshot
		lo, hi float64
	)
	switch {
	case len(args) == 1:
		if snap, err = loadSnapshot(cmd.Context(), args[0], logger); err != nil {
			return err
		}
		lo, hi = snap.Bounds(params.Axis)
	case boxBounds != "":
		if lo, hi, err = parseBox(boxBounds); err != nil {
			return err
		}
	default:
		return fmt.Errorf("need a checkpoint or --box")
	}
	if width < 1 {
		return fmt.Errorf("width must be at least 1, got %d", width)
	}

	layout, err := nemd.Derive(params, lo, hi)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, viz.RenderLayout(layout))
	fmt.Fprintln(out, viz.AxisStrip(layout, width))
	if snap != nil {
		profile := viz.Profile(snap.Atoms, params.Axis, lo, hi, width)
		fmt.Fprintln(out, viz.SparklineChart(profile, width))
	}
	if svgFile != "" {
		if err := os.WriteFile(svgFile, []byte(export.LayoutToSVG(layout, 800, 60)), 0644); err != nil {
			return err
		}
		logger.Infof("wrote %s", svgFile)
	}
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, logger, st, err := setup(cmd)
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context(), args[0], logger)
	if err != nil {
		return err
	}

	p, err := sim.New(snap, cfg, logger)
	if err != nil {
		return err
	}
	p.AddObserver(sim.ObserverFunc(func(from, to sim.Stage) {
		logger.Debugf("pipeline %s -> %s", from, to)
	}))
	if err := p.Configure(); err != nil {
		return err
	}
	report, err := p.Sample(cmd.Context(), sim.DirSink(sampleOut))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, line := range report.Lines() {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, viz.RenderReport(report))

	if noSave {
		return nil
	}
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.SaveSample(args[0], cfg, report)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s\n", runID)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	_, logger, _, err := setup(cmd)
	if err != nil {
		return err
	}
	env, err := config.ParseEnv()
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(cmd.Context(), args[0], logger)
	if err != nil {
		return err
	}

	names := presetSet
	if len(names) == 0 {
		names = config.ListPresets()
	}
	jobs := make([]sim.Job, 0, len(names))
	for _, name := range names {
		base := config.GetPreset(name)
		if base == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
		cfg, err := resolve(cmd, base, env)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		jobs = append(jobs, sim.Job{Name: name, Config: cfg, Sink: sim.DirSink(filepath.Join(sweepOut, name))})
	}

	start := time.Now()
	reports, err := sim.NewEnsemble(snap, logger).Run(cmd.Context(), jobs)
	if err != nil {
		return err
	}
	logger.Debugf("sampled %d presets in %v", len(jobs), time.Since(start))

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tNL\tNR\tHOT\tCOLD\tFROZEN\tMIDDLE")
	for i, r := range reports {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.3f\n",
			jobs[i].Name, r.NL, r.NR,
			r.Group("hot").Count(), r.Group("cold").Count(), r.Group("freeze").Count(),
			r.Layout.Middle)
	}
	return w.Flush()
}

func runCompact(cmd *cobra.Command, args []string) error {
	cfg, logger, _, err := setup(cmd)
	if err != nil {
		return err
	}
	target := outFile
	if target == "" {
		target = cfg.Analysis.Velocities
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	hdr, err := dump.Compactify(cmd.Context(), in, out)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Infof("wrote %s: %d atoms sampled every %d steps", target, hdr.NAtoms, hdr.SampleSteps)
	return nil
}

func runSHC(cmd *cobra.Command, args []string) error {
	cfg, logger, st, err := setup(cmd)
	if err != nil {
		return err
	}
	a := cfg.Analysis
	if velocities != "" {
		a.Velocities = velocities
	}
	if kijFile != "" {
		a.ForceConstants = kijFile
	}

	readIDs := func(name string) ([]int, error) {
		return dump.ReadIDsFile(filepath.Join(dumpDir, name))
	}
	iface, err := readIDs(cfg.Dumps.Interface)
	if err != nil {
		return err
	}
	left, err := readIDs(cfg.Dumps.Left)
	if err != nil {
		return err
	}
	right, err := readIDs(cfg.Dumps.Right)
	if err != nil {
		return err
	}

	kij, err := analysis.ReadKijFile(a.ForceConstants)
	if err != nil {
		return err
	}
	inputs, err := analysis.NewInputs(iface, left, right, kij)
	if err != nil {
		return err
	}

	f, err := os.Open(a.Velocities)
	if err != nil {
		return err
	}
	defer f.Close()
	cr, err := dump.NewCompactReader(f)
	if err != nil {
		return err
	}

	params := analysis.ParamsFromConfig(a)
	params.Workers = workers
	start := time.Now()
	res, err := analysis.Compute(cmd.Context(), cr, inputs, params, logger)
	if err != nil {
		return err
	}
	spec, err := analysis.Conductance(res, a.Area, a.TemperatureJump)
	if err != nil {
		return err
	}
	logger.Debugf("post-processing took %v", time.Since(start))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "chunks: %d of %d frames\n", res.Chunks, res.ChunkSize)
	fmt.Fprintf(out, "total thermal conductance: %.6g GW/m^2/K\n", spec.Total)
	fmt.Fprintln(out, plot(spec.FreqTHz, spec.G, "G(w) (GW/m^2/K/THz) vs w/2pi (THz)"))

	if noSave {
		return nil
	}
	if err := st.Init(); err != nil {
		return err
	}
	saved := cfg.Clone()
	saved.Analysis = a
	runID, err := st.SaveSpectrum(a.Velocities, saved, res, spec)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "run id: %s\n", runID)
	return nil
}

// plot downsamples to the plot width so long spectra stay readable.
func plot(x, y []float64, caption string) string {
	if len(y) == 0 {
		return ""
	}
	const plotWidth = 80
	data := y
	if len(y) > plotWidth {
		data = make([]float64, plotWidth)
		for i := range data {
			data[i] = y[i*len(y)/plotWidth]
		}
	}
	if len(x) > 0 {
		caption = fmt.Sprintf("%s [%.3g, %.3g]", caption, x[0], x[len(x)-1])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(15),
		asciigraph.Width(plotWidth),
		asciigraph.Caption(caption),
	)
}

func listRuns(cmd *cobra.Command, args []string) error {
	_, _, st, err := setup(cmd)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tSOURCE\tSUMMARY")
	for _, run := range runs {
		summary := fmt.Sprintf("NL=%d NR=%d N=%d", run.NL, run.NR, run.N)
		if run.Kind == storage.KindSHC {
			summary = fmt.Sprintf("G=%.4g GW/m^2/K, %d chunks", run.TotalG, run.Chunks)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Source,
			summary,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	_, _, st, err := setup(cmd)
	if err != nil {
		return err
	}
	runID := args[0]
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) from %s at %s\n", meta.ID, meta.Kind, meta.Source, meta.Timestamp.Format(time.RFC3339))

	switch meta.Kind {
	case storage.KindSample:
		fmt.Fprintf(out, "NL = %d\nNR = %d\natoms: %d\n", meta.NL, meta.NR, meta.N)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REGION\tLO\tHI")
		for _, r := range meta.Regions {
			fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, bound(r.Lo, "-INF"), bound(r.Hi, "INF"))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		for _, warn := range meta.Warnings {
			fmt.Fprintf(out, "warning: %s\n", warn)
		}
	case storage.KindSHC:
		data, err := st.LoadSpectrum(runID)
		if err != nil {
			return err
		}
		var (
			y       []float64
			caption string
		)
		switch plotField {
		case "g":
			y, caption = data.G, "G(w) (GW/m^2/K/THz)"
		case "shc":
			y, caption = data.SHC, "SHC (smoothed)"
		case "transmission":
			y, caption = data.Transmission, "transmission"
		case "cumulative":
			y, caption = data.Cumulative, "cumulative G (GW/m^2/K)"
		default:
			return fmt.Errorf("unknown plot column %q", plotField)
		}
		fmt.Fprintf(out, "chunks: %d of %d frames, total G %.6g GW/m^2/K\n", meta.Chunks, meta.ChunkSize, meta.TotalG)
		fmt.Fprintln(out, plot(data.FreqTHz, y, caption+" vs w/2pi (THz)"))
		if svgFile != "" {
			if err := os.WriteFile(svgFile, []byte(export.SpectrumToSVG(data.FreqTHz, y, 800, 400, "#00ff00")), 0644); err != nil {
				return err
			}
		}
	}
	return nil
}

func bound(v *float64, inf string) string {
	if v == nil {
		return inf
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	_, _, st, err := setup(cmd)
	if err != nil {
		return err
	}
	if outFile == "" {
		return st.ExportJSONTo(cmd.OutOrStdout(), args[0])
	}
	return st.ExportJSON(args[0], outFile)
}
