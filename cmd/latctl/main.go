package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/latctl/internal/analysis"
	"github.com/san-kum/latctl/internal/automation"
	"github.com/san-kum/latctl/internal/config"
	"github.com/san-kum/latctl/internal/experiment"
	"github.com/san-kum/latctl/internal/export"
	"github.com/san-kum/latctl/internal/lateral"
	"github.com/san-kum/latctl/internal/optim"
	"github.com/san-kum/latctl/internal/scenario"
	"github.com/san-kum/latctl/internal/sim"
	"github.com/san-kum/latctl/internal/storage"
	"github.com/san-kum/latctl/internal/telemetry"
	"github.com/san-kum/latctl/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	seed       int64
	integrator string
	outFile    string
	panel      string
	format     string

	// step
	speed       float64
	curvature   float64
	yawRate     float64
	steerDeg    float64
	roll        float64
	override    bool
	ticks       int
	measurement string

	// tune, sweep, montecarlo
	metric     string
	gridSpecs  []string
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	trials     int
	spreadDeg  float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "latctl",
		Short:         "lateral steering controller lab",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPicker()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".latctl", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot curvature tracking and controller terms",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of torque and tracking error",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [scenario] [preset] [preset] ...",
		Short: "compare tuning presets on one scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  comparePresets,
	}
	compareCmd.Flags().Int64Var(&seed, "seed", 1, "random seed")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and samples to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")

	exportPlotCmd := &cobra.Command{
		Use:   "export-plot [run_id]",
		Short: "render a run chart to svg, png or pdf",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPlot,
	}
	exportPlotCmd.Flags().StringVarP(&outFile, "output", "o", "", "output file (default stdout)")
	exportPlotCmd.Flags().StringVar(&panel, "panel", export.PanelCurvature, "curvature, torque, terms or offset")
	exportPlotCmd.Flags().StringVar(&format, "format", "svg", "svg, png or pdf")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list tuning presets and scenarios",
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a scenario with the live view",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "evaluate the controller on a fixed input",
		RunE:  runStep,
	}
	stepCmd.Flags().StringVar(&preset, "preset", "torque", "tuning preset")
	stepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	stepCmd.Flags().Float64Var(&speed, "speed", 20, "vehicle speed, m/s")
	stepCmd.Flags().Float64Var(&curvature, "curvature", 0.001, "desired curvature, 1/m")
	stepCmd.Flags().Float64Var(&yawRate, "yaw-rate", 0, "measured yaw rate, rad/s")
	stepCmd.Flags().Float64Var(&steerDeg, "steer-deg", 0, "measured steering angle, deg")
	stepCmd.Flags().Float64Var(&roll, "roll", 0, "road roll, rad")
	stepCmd.Flags().BoolVar(&override, "override", false, "driver is pressing the wheel")
	stepCmd.Flags().IntVar(&ticks, "ticks", 1, "number of ticks to hold the input")
	stepCmd.Flags().StringVar(&measurement, "measurement", "", "override measurement mode (yaw_rate, steering_angle)")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search controller gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	addConfigFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&metric, "metric", "tracking_error", "metric to minimise")
	tuneCmd.Flags().StringArrayVar(&gridSpecs, "grid", []string{"kp=0.2:0.6:5", "kf=0.2:0.6:5"}, "param=min:max:n, repeatable")

	sweepCmd := &cobra.Command{
		Use:   "sweep [scenario]",
		Short: "sweep one controller gain and report metrics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kp", "controller parameter")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1.0, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [scenario]",
		Short: "repeat a run over noise seeds and angle offsets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&spreadDeg, "offset-spread", 1.0, "steering-angle offset spread, deg")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run and store every step of a batch file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, compareCmd, exportCSVCmd, exportJSONCmd, exportPlotCmd, presetsCmd, liveCmd, stepCmd,
		tuneCmd, sweepCmd, monteCarloCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset tuning")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for sensor noise")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "plant integrator (euler, rk4, rk45)")
}

// resolveConfig applies, in order: defaults, preset, config file, flags,
// scenario argument.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	} else if cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Integrator = integrator
	}
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return telemetry.NewLogger(logLevel)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}
	runLog := log.With(zap.String("scenario", cfg.Scenario), zap.String("preset", cfg.Name))
	exp.Simulator().AddObserver(telemetry.NewSink(runLog))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s with %s...\n", cfg.Scenario, cfg.Name)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)
	for _, e := range result.Errors {
		runLog.Error("simulation error", zap.Error(e))
	}

	runID, err := st.Save(storage.RunMetadata{
		Scenario:   cfg.Scenario,
		Preset:     cfg.Name,
		Seed:       cfg.Seed,
		ControlHz:  cfg.ControlHz,
		PlannerHz:  cfg.PlannerHz,
		Duration:   exp.Scenario().Duration,
		Integrator: cfg.Integrator,
		Params:     exp.Controller().Params(),
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)

	if len(result.Errors) > 0 {
		return fmt.Errorf("run stopped early: %w", result.Errors[0])
	}
	return nil
}

func printMetrics(metrics map[string]float64) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range sortedNames(metrics) {
		fmt.Fprintf(w, "  %s\t%.6f\n", name, metrics[name])
	}
	w.Flush()
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tPRESET\tTIME\tDURATION\tINTEG\tTRACK_ERR\tSAT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fs\t%s\t%.2e\t%.1f%%\n",
			run.ID,
			run.Scenario,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Integrator,
			run.Metrics["tracking_error"],
			100*run.Metrics["saturation_ratio"],
		)
	}

	return w.Flush()
}

func column(samples []sim.Sample, f func(sim.Sample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	if len(samples) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s  preset: %s\n", meta.Scenario, meta.Preset)
	fmt.Printf("samples: %d\n\n", len(samples))

	desired := column(samples, func(s sim.Sample) float64 { return s.DesiredCurvature * 1000 })
	actual := column(samples, func(s sim.Sample) float64 { return s.ActualCurvature * 1000 })
	fmt.Println(asciigraph.PlotMany([][]float64{desired, actual},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Cyan, asciigraph.Magenta),
		asciigraph.Caption("curvature 1/km (desired cyan, actual magenta)"),
	))
	fmt.Println()

	plots := []struct {
		caption string
		f       func(sim.Sample) float64
	}{
		{"torque", func(s sim.Sample) float64 { return s.Torque }},
		{"integrator", func(s sim.Sample) float64 { return s.Diagnostics.I }},
		{"lateral offset (m)", func(s sim.Sample) float64 { return s.Offset }},
	}
	for _, p := range plots {
		graph := asciigraph.Plot(column(samples, p.f),
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(p.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}

	hz := meta.ControlHz
	if hz <= 0 {
		hz = config.DefaultControlHz
	}

	fmt.Printf("frequency analysis: %s\n\n", meta.ID)

	torque := column(samples, func(s sim.Sample) float64 { return s.Torque })
	freqs, ps, err := analysis.PowerSpectrum(torque, hz)
	if err != nil {
		return err
	}

	// Controller oscillation lives well below 10 Hz.
	n := len(ps)
	for n > 2 && freqs[n-1] > 10 {
		n--
	}
	fmt.Println(asciigraph.Plot(ps[1:n],
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("torque spectrum 0-%.1f Hz", freqs[n-1])),
	))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIGNAL\tDOMINANT_HZ\tPERIOD_S\tPOWER")
	signals := []struct {
		name string
		data []float64
	}{
		{"torque", torque},
		{"tracking_error", column(samples, func(s sim.Sample) float64 { return s.DesiredCurvature - s.ActualCurvature })},
		{"offset", column(samples, func(s sim.Sample) float64 { return s.Offset })},
	}
	for _, sig := range signals {
		f, p, err := analysis.DominantFrequency(sig.data, hz)
		if err != nil {
			return err
		}
		period := math.Inf(1)
		if f > 0 {
			period = 1 / f
		}
		fmt.Fprintf(w, "%s\t%.3f\t%.2f\t%.3g\n", sig.name, f, period, p)
	}
	return w.Flush()
}

func comparePresets(cmd *cobra.Command, args []string) error {
	scen := args[0]
	presets := args[1:]
	registry := experiment.NewRegistry()

	fmt.Printf("comparing presets on %s\n\n", scen)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tTRACK_ERR\tEFFORT\tSAT\tI_PEAK\tLANE\tTIME_MS")

	for _, name := range presets {
		cfg := config.GetPreset(name)
		if cfg == nil {
			fmt.Fprintf(w, "%s\terror: unknown preset\n", name)
			continue
		}
		cfg.Scenario = scen
		cfg.Seed = seed

		exp, err := experiment.New(cfg, registry)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		m := result.Metrics
		fmt.Fprintf(w, "%s\t%.3e\t%.4f\t%.1f%%\t%.4f\t%.1f%%\t%.2f\n",
			name,
			m["tracking_error"],
			m["control_effort"],
			100*m["saturation_ratio"],
			m["integrator_peak"],
			100*m["lane_keeping"],
			float64(elapsed.Microseconds())/1000,
		)
	}

	return w.Flush()
}

func output() (*os.File, func(), error) {
	if outFile == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	out, done, err := output()
	if err != nil {
		return err
	}
	defer done()

	if err := storage.New(dataDir).ExportCSV(args[0], out); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported %s to %s\n", args[0], outFile)
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	out, done, err := output()
	if err != nil {
		return err
	}
	defer done()

	if err := storage.New(dataDir).ExportJSON(args[0], out); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported %s to %s\n", args[0], outFile)
	}
	return nil
}

func exportPlot(cmd *cobra.Command, args []string) error {
	samples, err := storage.New(dataDir).LoadSamples(args[0])
	if err != nil {
		return err
	}
	out, done, err := output()
	if err != nil {
		return err
	}
	defer done()

	if err := export.WritePanel(out, samples, panel, format, 10*vg.Inch, 4*vg.Inch); err != nil {
		return err
	}
	if outFile != "" {
		fmt.Printf("exported %s %s to %s\n", args[0], panel, outFile)
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSCALE\tKP\tKI\tKD\tKF\tDERIVATIVE\tMEASUREMENT")
	for _, name := range config.ListPresets() {
		c := config.GetPreset(name).Controller
		fmt.Fprintf(w, "%s\t%.0f\t%s\t%s\t%.3g\t%.3g\t%s\t%s\n",
			name, c.CurvatureScale, gainString(c.Kp), gainString(c.Ki), c.Kd, c.Kf, c.Derivative, c.Measurement)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tDURATION\tDESCRIPTION")
	for _, name := range scenario.List() {
		s, err := scenario.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.0fs\t%s\n", name, s.Duration, s.Description)
	}
	return w.Flush()
}

func gainString(g config.Gain) string {
	if g.IsScalar() {
		return fmt.Sprintf("%.3g", g.V[0])
	}
	parts := make([]string, len(g.BP))
	for i := range g.BP {
		parts[i] = fmt.Sprintf("%g:%.3g", g.BP[i], g.V[i])
	}
	return strings.Join(parts, ",")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	m, err := buildLive(cfg)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

func buildLive(cfg *config.Config) (viz.Model, error) {
	exp, err := experiment.New(cfg, experiment.NewRegistry())
	if err != nil {
		return viz.Model{}, err
	}
	title := fmt.Sprintf("%s / %s", cfg.Scenario, cfg.Name)
	return viz.NewModel(title, exp.Simulator(), exp.SimConfig(), exp.Controller())
}

func runPicker() error {
	info := make(map[string]string)
	for _, name := range scenario.List() {
		if s, err := scenario.Get(name); err == nil {
			info[name] = s.Description
		}
	}

	build := func(scen, name string) (viz.Model, error) {
		cfg := config.GetPreset(name)
		if cfg == nil {
			return viz.Model{}, fmt.Errorf("unknown preset: %s", name)
		}
		cfg.Scenario = scen
		return buildLive(cfg)
	}

	p := tea.NewProgram(viz.NewPicker(scenario.List(), config.ListPresets(), info, build))
	_, err := p.Run()
	return err
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if measurement != "" {
		cfg.Controller.Measurement = measurement
	}

	lc, err := cfg.LateralConfig()
	if err != nil {
		return err
	}
	ctrl, err := lateral.New(lc, cfg.VehicleModel())
	if err != nil {
		return err
	}

	req := lateral.ControlRequest{Active: true, Curvature: curvature}
	vs := lateral.VehicleState{
		Speed:            speed,
		SteeringAngleDeg: steerDeg,
		SteeringPressed:  override,
		YawRate:          yawRate,
	}
	cal := lateral.Calibration{AngleOffsetDeg: cfg.Sensors.AngleOffsetDeg, Roll: roll}

	fmt.Printf("preset: %s  measurement: %s\n", cfg.Name, lc.Measurement)
	writeStepHeader(os.Stdout, ctrl, curvature, vs, cal)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TICK\tACTIVE\tERROR\tP\tI\tD\tF\tTORQUE\tSAT\tSUSTAINED")
	for i := 0; i < ticks; i++ {
		out := ctrl.Update(req, vs, cal)
		d := out.Diagnostics
		fmt.Fprintf(w, "%d\t%t\t%+.6f\t%+.6f\t%+.6f\t%+.6f\t%+.6f\t%+.6f\t%t\t%t\n",
			i, d.Active, d.Error, d.P, d.I, d.D, d.F, out.Torque, d.Saturated, d.SaturatedSustained)
	}
	return w.Flush()
}

// writeStepHeader prints the error-model terms, or why there are none.
func writeStepHeader(w io.Writer, ctrl *lateral.TorqueController, curvature float64, vs lateral.VehicleState, cal lateral.Calibration) {
	minSpeed := ctrl.Config().MinSteerSpeed
	if vs.Speed < minSpeed {
		fmt.Fprintf(w, "inactive: speed %.2f m/s below min steer speed %.2f m/s\n\n", vs.Speed, minSpeed)
		return
	}
	sp, meas, ff := ctrl.ErrorModel().Compute(curvature, vs, cal)
	fmt.Fprintf(w, "setpoint: %.6f  measurement: %.6f  feedforward: %.6f\n\n", sp, meas, ff)
}

// parseGrid reads "name=min:max:n".
func parseGrid(arg string) (string, []float64, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("bad grid %q: want param=min:max:n", arg)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("bad grid %q: want param=min:max:n", arg)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("bad grid %q: %w", arg, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("bad grid %q: %w", arg, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("bad grid %q: count must be a positive integer", arg)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridSpecs))
	ranges := make([][]float64, 0, len(gridSpecs))
	for _, arg := range gridSpecs {
		name, values, err := parseGrid(arg)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	g, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	build := func(params map[string]float64) (*experiment.Experiment, error) {
		exp, err := experiment.New(cfg, registry)
		if err != nil {
			return nil, err
		}
		for k, v := range params {
			if err := exp.Controller().SetParam(k, v); err != nil {
				return nil, err
			}
		}
		return exp, nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning %s on %s over %d grid points...\n", strings.Join(names, ","), cfg.Scenario, g.Size())
	start := time.Now()
	best, val, err := g.Search(ctx, build, metric)
	if err != nil {
		return err
	}
	evaluated, skipped := g.Stats()

	fmt.Printf("completed in %v (%d evaluated, %d skipped)\n\n", time.Since(start), evaluated, skipped)
	fmt.Printf("best %s: %.6g\n", metric, val)
	for _, name := range names {
		fmt.Printf("  %s: %.4g\n", name, best[name])
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	results, err := automation.RunSweep(context.Background(), &automation.ParameterSweep{
		Config:    cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}, experiment.NewRegistry(), log)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s on %s\n\n", sweepParam, cfg.Scenario)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTRACK_ERR\tEFFORT\tSAT\tI_PEAK\tLANE\n", strings.ToUpper(sweepParam))
	trackErr := make([]float64, 0, len(results))
	for _, r := range results {
		m := r.Metrics
		status := ""
		if r.Failed {
			status = "  (diverged)"
		}
		fmt.Fprintf(w, "%.4g\t%.3e\t%.4f\t%.1f%%\t%.4f\t%.1f%%%s\n",
			r.ParamValue, m["tracking_error"], m["control_effort"], 100*m["saturation_ratio"],
			m["integrator_peak"], 100*m["lane_keeping"], status)
		trackErr = append(trackErr, m["tracking_error"]*1000)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(asciigraph.Plot(trackErr,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption(fmt.Sprintf("tracking error 1/km vs %s", sweepParam)),
	))
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	results, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarloConfig{
		Config:          cfg,
		NumTrials:       trials,
		OffsetSpreadDeg: spreadDeg,
		Seed:            cfg.Seed,
		MinLaneKeeping:  0.95,
	}, experiment.NewRegistry(), log)
	if err != nil {
		return err
	}

	stable, unstable, summary := automation.MonteCarloStats(results)
	fmt.Printf("monte carlo on %s: %d trials, %d stable, %d unstable\n\n", cfg.Scenario, len(results), stable, unstable)

	names := make([]string, 0, len(summary))
	for name := range summary {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX")
	for _, name := range names {
		s := summary[name]
		fmt.Fprintf(w, "%s\t%.4g\t%.3g\t%.4g\t%.4g\n", name, s.Mean, s.Std, s.Min, s.Max)
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	batch, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running batch %s (%d steps)\n\n", batch.Name, len(batch.Steps))
	results, runErr := automation.RunBatch(context.Background(), batch, experiment.NewRegistry(), log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN_ID\tSCENARIO\tPRESET\tTRACK_ERR\tSAT")
	for i, r := range results {
		runID, err := st.Save(storage.RunMetadata{
			Scenario:   r.Config.Scenario,
			Preset:     r.Config.Name,
			Seed:       r.Config.Seed,
			ControlHz:  r.Config.ControlHz,
			PlannerHz:  r.Config.PlannerHz,
			Duration:   float64(len(r.Result.Samples)) / r.Config.ControlHz,
			Integrator: r.Config.Integrator,
			Params:     r.Params,
		}, r.Result)
		if err != nil {
			return err
		}
		label := runID
		if r.Step.SaveAs != "" {
			label = r.Step.SaveAs + " (" + runID + ")"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%.3e\t%.1f%%\n",
			i+1, label, r.Config.Scenario, r.Config.Name,
			r.Result.Metrics["tracking_error"], 100*r.Result.Metrics["saturation_ratio"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}
