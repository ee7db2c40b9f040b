package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/m-okahara/growthfit/internal/batch"
	"github.com/m-okahara/growthfit/internal/config"
	"github.com/m-okahara/growthfit/internal/dataset"
	"github.com/m-okahara/growthfit/internal/export"
	"github.com/m-okahara/growthfit/internal/fit"
	"github.com/m-okahara/growthfit/internal/growth"
	"github.com/m-okahara/growthfit/internal/logger"
	"github.com/m-okahara/growthfit/internal/storage"
	"github.com/m-okahara/growthfit/internal/tui"
	"github.com/m-okahara/growthfit/internal/viz"
)

var (
	dataDir string
	verbose bool

	// Analysis knobs
	tolerance  float64
	maxIter    int
	ftol       float64
	clampTol   float64
	workers    int
	configFile string
	preset     string

	// Synthetic data parameters
	organism   string
	experiment string
	replicates int
	rate       float64
	capacity   float64
	inoculum   float64
	startT     float64
	endT       float64
	points     int
	noise      float64
	deathAt    float64
	deathRate  float64
	seed       int64
	outFile    string

	// Curve sampling range
	fromT       float64
	toT         float64
	curvePoints int
	curvesOut   bool

	// Selection for plot/svg
	groupFilter string
	outDir      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "growthfit",
		Short: "growth curve fitting and death-phase screening",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to the run browser when no command given
			return tui.RunBrowser(storage.New(dataDir))
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".growthfit", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [file.csv]",
		Short: "detect death phases and fit logistic curves",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "relative decline tolerance")
	analyzeCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIter, "fit iteration limit")
	analyzeCmd.Flags().Float64Var(&ftol, "ftol", config.DefaultFTol, "fit convergence threshold")
	analyzeCmd.Flags().Float64Var(&clampTol, "clamp-tol", config.DefaultClampTol, "capacity clamp margin")
	analyzeCmd.Flags().IntVar(&workers, "workers", 0, "fit concurrency (0 = one per group)")
	analyzeCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	analyzeCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	detectCmd := &cobra.Command{
		Use:   "detect [file.csv]",
		Short: "death-phase screening without fitting",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetect,
	}
	detectCmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "relative decline tolerance")
	detectCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	detectCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "generate synthetic growth data",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&organism, "organism", "e-coli", "organism label")
	simulateCmd.Flags().StringVar(&experiment, "experiment", "sim", "experiment label")
	simulateCmd.Flags().IntVar(&replicates, "replicates", 3, "replicate count")
	simulateCmd.Flags().Float64Var(&rate, "rate", 0.9, "growth rate")
	simulateCmd.Flags().Float64Var(&capacity, "capacity", 1.0, "carrying capacity")
	simulateCmd.Flags().Float64Var(&inoculum, "n0", 0.02, "initial density")
	simulateCmd.Flags().Float64Var(&startT, "start", 0, "first timestamp")
	simulateCmd.Flags().Float64Var(&endT, "end", 24, "last timestamp")
	simulateCmd.Flags().IntVar(&points, "points", 49, "observations per replicate")
	simulateCmd.Flags().Float64Var(&noise, "noise", 0.01, "gaussian noise sd")
	simulateCmd.Flags().Float64Var(&deathAt, "death-start", 0, "death phase onset time (0 = none)")
	simulateCmd.Flags().Float64Var(&deathRate, "death-rate", 0.2, "death phase decay rate")
	simulateCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	simulateCmd.Flags().StringVar(&outFile, "out", "", "output file (default stdout)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run results",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot fitted curves against observations",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&groupFilter, "group", "", "plot a single group (organism/experiment/replicate)")

	curveCmd := &cobra.Command{
		Use:   "curve",
		Short: "plot a logistic curve from explicit parameters",
		RunE:  plotCurve,
	}
	curveCmd.Flags().Float64Var(&rate, "rate", 0.9, "growth rate")
	curveCmd.Flags().Float64Var(&capacity, "capacity", 1.0, "carrying capacity")
	curveCmd.Flags().Float64Var(&inoculum, "n0", 0.02, "initial density")
	curveCmd.Flags().Float64Var(&fromT, "from", 0, "sample range start")
	curveCmd.Flags().Float64Var(&toT, "to", 24, "sample range end")
	curveCmd.Flags().IntVar(&curvePoints, "points", config.DefaultCurvePoints, "sample count")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export fit results to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export fit results to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().BoolVar(&curvesOut, "curves", false, "emit sampled fitted curves instead of the fit table")
	exportCSVCmd.Flags().Float64Var(&fromT, "from", 0, "sample range start")
	exportCSVCmd.Flags().Float64Var(&toT, "to", 24, "sample range end")
	exportCSVCmd.Flags().IntVar(&curvePoints, "points", config.DefaultCurvePoints, "samples per curve")

	svgCmd := &cobra.Command{
		Use:   "svg [run_id]",
		Short: "render groups to SVG files",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	svgCmd.Flags().StringVar(&groupFilter, "group", "", "render a single group")
	svgCmd.Flags().StringVar(&outDir, "out", ".", "output directory")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "browse saved runs interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunBrowser(storage.New(dataDir))
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list analysis presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, name := range config.ListPresets() {
					fmt.Println(name)
				}
				return nil
			}
			cfg := config.GetPreset(args[0])
			if cfg == nil {
				return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}

	rootCmd.AddCommand(analyzeCmd, detectCmd, simulateCmd, listCmd, showCmd, plotCmd, curveCmd, exportCmd, exportCSVCmd, svgCmd, tuiCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers preset, config file, and explicit flags, in that
// order of increasing precedence.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cp := *p
		cfg = &cp
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg
	}

	if cmd.Flags().Changed("tolerance") {
		cfg.Detection.Tolerance = tolerance
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.Fit.MaxIter = maxIter
	}
	if cmd.Flags().Changed("ftol") {
		cfg.Fit.FTol = ftol
	}
	if cmd.Flags().Changed("clamp-tol") {
		cfg.Fit.ClampTol = clampTol
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = workers
	}
	return cfg, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	loaded, err := dataset.Load(source)
	if err != nil {
		return err
	}
	if len(loaded.Series) == 0 {
		return fmt.Errorf("no usable observations in %s", source)
	}

	an := batch.NewAnalyzer()
	an.Tolerance = cfg.Detection.Tolerance
	an.Workers = cfg.Workers
	an.Fitter = &fit.Fitter{
		MaxIter:  cfg.Fit.MaxIter,
		FTol:     cfg.Fit.FTol,
		ClampTol: cfg.Fit.ClampTol,
	}

	fmt.Printf("analyzing %d groups...\n", len(loaded.Series))
	start := time.Now()

	results, err := an.Run(context.Background(), loaded.Series)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(source, cfg.Detection.Tolerance, loaded.Skipped, results)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	if loaded.Skipped > 0 {
		fmt.Printf("skipped %d rows with missing density\n", loaded.Skipped)
	}
	fmt.Printf("run id: %s\n\n", runID)

	return printFitTable(batch.FitTable(results))
}

func runDetect(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	loaded, err := dataset.Load(source)
	if err != nil {
		return err
	}
	if len(loaded.Series) == 0 {
		return fmt.Errorf("no usable observations in %s", source)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tOBS\tDEATH\tFROM\tTRACE")

	for _, s := range loaded.Series {
		flags := growth.DeathPhase(s.Obs, cfg.Detection.Tolerance)

		count := 0
		from := "-"
		for i, dead := range flags {
			if !dead {
				continue
			}
			if count == 0 {
				from = strconv.FormatFloat(s.Obs[i].T, 'g', -1, 64)
			}
			count++
		}

		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n",
			s.Key, len(s.Obs), count, from, viz.Sparkline(s.Densities(), 24))
	}

	return w.Flush()
}

func runSimulate(cmd *cobra.Command, args []string) error {
	gen := dataset.Synth{
		R:          rate,
		K:          capacity,
		N0:         inoculum,
		Start:      startT,
		End:        endT,
		Points:     points,
		NoiseSD:    noise,
		DeathStart: deathAt,
		DeathRate:  deathRate,
	}
	series := gen.Batch(organism, experiment, replicates, seed)

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"organism", "experiment", "replicate", "time", "density"}); err != nil {
		return err
	}

	total := 0
	for _, s := range series {
		for _, o := range s.Obs {
			rec := []string{
				s.Key.Organism,
				s.Key.Experiment,
				s.Key.Replicate,
				strconv.FormatFloat(o.T, 'g', -1, 64),
				strconv.FormatFloat(o.Density, 'g', -1, 64),
			}
			if err := w.Write(rec); err != nil {
				return err
			}
			total++
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if outFile != "" {
		fmt.Printf("wrote %d observations for %d replicates to %s\n", total, len(series), outFile)
	}
	return nil
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
	fmt.Fprintln(w, "ID\tSOURCE\tTIME\tGROUPS\tOK\tFAILED\tSKIPPED\tTOL")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%g\n",
			run.ID,
			run.Source,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Groups,
			run.Converged,
			run.Failed,
			run.Skipped,
			run.Tolerance,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	fits, err := st.LoadFits(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("source: %s\n", meta.Source)
	fmt.Printf("analyzed: %s\n", meta.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("tolerance: %g\n", meta.Tolerance)
	if meta.Skipped > 0 {
		fmt.Printf("skipped rows: %d\n", meta.Skipped)
	}
	fmt.Printf("groups: %d (%d converged, %d failed)\n\n", meta.Groups, meta.Converged, meta.Failed)

	return printFitTable(fits)
}

func printFitTable(fits []growth.FitResult) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tSTATUS\tR\tK\tN0\tRMSE\tR2\tOBS\tDEATH")

	for _, f := range fits {
		if f.Converged() {
			fmt.Fprintf(w, "%s\tok\t%.4g\t%.4g\t%.4g\t%.3g\t%.4f\t%d\t%d\n",
				f.Key, f.R, f.K, f.N0, f.RMSE, f.RSquared, f.NObs, f.NDeath)
		} else {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\t-\t%d\t%d\n",
				f.Key, f.Reason, f.NObs, f.NDeath)
		}
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	results, err := st.LoadResults(runID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no data to plot")
	}

	matched := 0
	for _, gr := range results {
		if groupFilter != "" && gr.Series.Key.String() != groupFilter {
			continue
		}
		fmt.Println(viz.FitPlot(gr, viz.DefaultWidth, viz.DefaultHeight))
		fmt.Println()
		matched++
	}
	if matched == 0 {
		return fmt.Errorf("no group %q in run %s", groupFilter, runID)
	}
	return nil
}

func plotCurve(cmd *cobra.Command, args []string) error {
	if rate <= 0 || capacity <= 0 || inoculum <= 0 {
		return fmt.Errorf("curve parameters must be positive")
	}
	if toT <= fromT {
		return fmt.Errorf("--to must exceed --from")
	}

	c := growth.Curve{R: rate, K: capacity, N0: inoculum}
	fmt.Println(viz.CurvePlot(c, fromT, toT, curvePoints, viz.DefaultWidth, 15))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	fits, err := st.LoadFits(runID)
	if err != nil {
		return err
	}
	return export.FitsJSON(os.Stdout, fits)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	fits, err := st.LoadFits(runID)
	if err != nil {
		return err
	}

	if !curvesOut {
		return export.FitsCSV(os.Stdout, fits)
	}

	// Default the sample range to the observed time span.
	t0, t1 := fromT, toT
	if !cmd.Flags().Changed("from") || !cmd.Flags().Changed("to") {
		series, _, err := st.LoadSeries(runID)
		if err != nil {
			return err
		}
		if lo, hi, ok := timeSpan(series); ok {
			if !cmd.Flags().Changed("from") {
				t0 = lo
			}
			if !cmd.Flags().Changed("to") {
				t1 = hi
			}
		}
	}
	return export.CurveCSV(os.Stdout, fits, t0, t1, curvePoints)
}

func timeSpan(series []growth.Series) (lo, hi float64, ok bool) {
	for _, s := range series {
		for _, o := range s.Obs {
			if !ok {
				lo, hi, ok = o.T, o.T, true
				continue
			}
			if o.T < lo {
				lo = o.T
			}
			if o.T > hi {
				hi = o.T
			}
		}
	}
	return
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	results, err := st.LoadResults(runID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	written := 0
	for _, gr := range results {
		if groupFilter != "" && gr.Series.Key.String() != groupFilter {
			continue
		}
		svg := export.GrowthSVG(gr, 640, 360, 200)
		if svg == "" {
			continue
		}

		path := filepath.Join(outDir, fileStem(gr.Series.Key)+".svg")
		if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		written++
	}

	if written == 0 {
		return fmt.Errorf("nothing to render in run %s", runID)
	}
	return nil
}

func fileStem(key growth.Key) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, key.String())
}
