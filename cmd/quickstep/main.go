package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/quickstep/internal/config"
	"github.com/san-kum/quickstep/internal/ensemble"
	"github.com/san-kum/quickstep/internal/metrics"
	"github.com/san-kum/quickstep/internal/optim"
	"github.com/san-kum/quickstep/internal/quickstep"
	"github.com/san-kum/quickstep/internal/scenario"
	"github.com/san-kum/quickstep/internal/storage"
	"github.com/san-kum/quickstep/internal/tui"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	verbose bool

	configFile  string
	preset      string
	dt          float64
	duration    float64
	seed        int64
	iterations  int
	precon      int
	relax       float64
	tolerance   float64
	chunks      int
	workers     int
	strategy    string
	penetration string
	noWarm      bool
	states      bool

	column string

	runs     int
	parallel int

	knobFlags []string
	metric    string
)

var registry = scenario.NewRegistry()

func main() {
	rootCmd := &cobra.Command{
		Use:   "quickstep",
		Short: "iterative rigid body constraint solver lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(config.DefaultConfig())
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".quickstep", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log solver progress to stderr")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a scenario and store its telemetry",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	solverFlags(runCmd)
	runCmd.Flags().BoolVar(&states, "states", false, "record body states in the telemetry")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "step a scenario interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	solverFlags(liveCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "compare solver strategies and chunk counts on a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	solverFlags(benchCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scenario]",
		Short: "run a scenario under consecutive reordering seeds and report metric spread",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	solverFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 8, "number of seeds")
	ensembleCmd.Flags().IntVar(&parallel, "parallel", 0, "concurrent runs, 0 for all")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search solver settings for the lowest metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneScenario,
	}
	solverFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&knobFlags, "knob", []string{"w=0.8,1.0,1.2,1.4", "iterations=10,20,40"},
		"knob and values as name=v1,v2 (repeatable)")
	tuneCmd.Flags().StringVar(&metric, "metric", "mean_rms", "metric to minimize")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run telemetry",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "rms", "rms, iterations or a state label such as s0.z")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	scenariosCmd := &cobra.Command{
		Use:   "scenarios",
		Short: "list available scenarios",
		Run: func(cmd *cobra.Command, args []string) {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			for _, name := range registry.List() {
				fmt.Fprintf(w, "%s\t%s\n", name, registry.Describe(name))
			}
			w.Flush()
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets for a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for scenario: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, ensembleCmd, tuneCmd, listCmd, plotCmd, exportCmd, scenariosCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func solverFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", def.Dt, "timestep")
	f.Float64Var(&duration, "time", def.Duration, "duration")
	f.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed for row reordering")
	f.IntVar(&iterations, "iterations", def.Solver.Iterations, "SOR iterations")
	f.IntVar(&precon, "precon", def.Solver.PreconIterations, "preconditioned iterations")
	f.Float64Var(&relax, "w", def.Solver.W, "over-relaxation factor")
	f.Float64Var(&tolerance, "tolerance", def.Solver.Tolerance, "RMS tolerance for early exit, 0 to disable")
	f.IntVar(&chunks, "chunks", def.Solver.Chunks, "row chunks solved in parallel")
	f.IntVar(&workers, "workers", def.Solver.Workers, "worker goroutines, 0 for GOMAXPROCS")
	f.StringVar(&strategy, "strategy", def.Solver.Strategy.String(), "sor, sor-error or cg")
	f.StringVar(&penetration, "penetration", def.Solver.Penetration.String(), "split or baumgarte")
	f.BoolVar(&noWarm, "no-warm", false, "disable warm starting")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the preset, then the config file, then any flag the
// user set explicitly.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Scenario))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 && loaded.Scenario != args[0] {
			return nil, fmt.Errorf("config %s is for scenario %s, not %s", configFile, loaded.Scenario, args[0])
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("time") {
		cfg.Duration = duration
	}
	if f.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if f.Changed("iterations") {
		cfg.Solver.Iterations = iterations
	}
	if f.Changed("precon") {
		cfg.Solver.PreconIterations = precon
	}
	if f.Changed("w") {
		cfg.Solver.W = relax
	}
	if f.Changed("tolerance") {
		cfg.Solver.Tolerance = tolerance
	}
	if f.Changed("chunks") {
		cfg.Solver.Chunks = chunks
	}
	if f.Changed("workers") {
		cfg.Solver.Workers = workers
	}
	if f.Changed("strategy") {
		s, err := quickstep.ParseStrategy(strategy)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Strategy = s
	}
	if f.Changed("penetration") {
		p, err := quickstep.ParsePenetration(penetration)
		if err != nil {
			return nil, err
		}
		cfg.Solver.Penetration = p
	}
	if noWarm {
		cfg.World.WarmStart = false
	}
	return cfg, cfg.Validate()
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger := newLogger()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	w, err := cfg.Build(registry, logger)
	if err != nil {
		return err
	}
	for _, m := range metrics.Standard() {
		w.AddMetric(m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runCfg := cfg.RunConfig()
	runCfg.RecordStates = states

	fmt.Printf("running %s (%s, %d iterations, %d chunks)...\n",
		cfg.Scenario, cfg.Solver.Strategy, cfg.Solver.Iterations, cfg.Solver.Chunks)
	start := time.Now()

	result, err := w.Run(ctx, runCfg)
	if err != nil && result == nil {
		return err
	}
	elapsed := time.Since(start)

	var labels []string
	if states {
		labels = w.StateLabels()
	}
	runID, saveErr := st.Save(storage.RunMetadata{
		Scenario:   cfg.Scenario,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Strategy:   cfg.Solver.Strategy.String(),
		Iterations: cfg.Solver.Iterations,
		Chunks:     cfg.Solver.Chunks,
	}, labels, result)
	if saveErr != nil {
		return saveErr
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (%d unconverged)\n", result.StepsTaken, result.Unconverged)
	fmt.Printf("energy drift: %.4f\n", result.EnergyDrift)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %v\n", e)
	}
	if err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return result.Errors[0]
	}
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	return runApp(cfg)
}

func runApp(cfg *config.Config) error {
	// the alt screen owns stdout, so logging is discarded unless asked for
	var logger *slog.Logger
	if verbose {
		logger = newLogger()
	}
	_, err := tea.NewProgram(tui.NewApp(registry, cfg, logger), tea.WithAltScreen()).Run()
	return err
}

func benchScenario(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger := newLogger()

	strategies := []quickstep.Strategy{quickstep.StrategySOR, quickstep.StrategySORByError, quickstep.StrategyCG}
	chunkCounts := []int{1, 2, 4}

	fmt.Printf("benchmarking %s over %.1fs at dt=%g\n\n", base.Scenario, base.Duration, base.Dt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tCHUNKS\tSTEPS\tTIME\tSTEPS/SEC\tMEAN ITERS\tMEAN RMS\tUNCONVERGED\tDRIFT")

	for _, s := range strategies {
		for _, n := range chunkCounts {
			if s == quickstep.StrategyCG && n > 1 {
				continue
			}
			cfg := base.Clone()
			cfg.Solver.Strategy = s
			cfg.Solver.Chunks = n
			world, err := cfg.Build(registry, logger)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := world.Run(context.Background(), cfg.RunConfig())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%s\t%d\t%d\t%v\t%.0f\t%.1f\t%.3e\t%d\t%.4f\n",
				s, n, result.StepsTaken, elapsed.Round(time.Millisecond),
				float64(result.StepsTaken)/elapsed.Seconds(),
				mean(result.Iterations), mean(result.RMS),
				result.Unconverged, result.EnergyDrift)
		}
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d seeds of %s starting at %d...\n", runs, cfg.Scenario, cfg.Seed)
	start := time.Now()
	results, err := ensemble.New(cfg, registry, runs, cfg.Seed, parallel, newLogger()).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTDDEV\tMIN\tMAX")
	for _, s := range ensemble.Summarize(results) {
		fmt.Fprintf(w, "%s\t%.6g\t%.3g\t%.6g\t%.6g\n", s.Name, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return w.Flush()
}

func tuneScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(knobFlags))
	ranges := make([][]float64, 0, len(knobFlags))
	for _, kf := range knobFlags {
		name, values, err := parseKnob(kf)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	g, err := optim.NewGridSearch(names, ranges, newLogger())
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(optim.Knobs(), ", "))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	out, err := g.Search(ctx, cfg, registry, metric)
	if err != nil {
		return err
	}
	fmt.Printf("searched %d points in %v (%d failed)\n", out.Trials, time.Since(start).Round(time.Millisecond), out.Failed)
	if out.Best == nil {
		return fmt.Errorf("no grid point produced a result")
	}
	fmt.Printf("best %s: %.6g\n", metric, out.Value)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, out.Best[name])
	}
	return nil
}

func parseKnob(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" || list == "" {
		return "", nil, fmt.Errorf("invalid knob %q, want name=v1,v2", s)
	}
	var values []float64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return "", nil, fmt.Errorf("invalid knob %q: %w", s, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func mean[T int | float64](xs []T) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	return sum / float64(len(xs))
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tSTRATEGY\tITERS\tCHUNKS\tUNCONV\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%d\t%d\t%d\t%.4f\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Strategy,
			run.Iterations,
			run.Chunks,
			run.Unconverged,
			run.EnergyDrift,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	tel, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}

	var data []float64
	switch column {
	case "rms":
		data = tel.RMS
	case "iterations":
		data = make([]float64, len(tel.Iterations))
		for i, n := range tel.Iterations {
			data[i] = float64(n)
		}
	default:
		idx := slices.Index(tel.Labels, column)
		if idx < 0 {
			if len(tel.Labels) == 0 {
				return fmt.Errorf("run %s has no recorded states (rerun with --states)", runID)
			}
			return fmt.Errorf("unknown column %q (available: rms, iterations, %s)", column, strings.Join(tel.Labels, ", "))
		}
		data = make([]float64, 0, len(tel.States))
		for _, s := range tel.States {
			if idx < len(s) {
				data = append(data, s[idx])
			}
		}
	}

	if len(data) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(data))

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(column+" vs step"),
	)
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
