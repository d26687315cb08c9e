package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/golang/glog"

	"github.com/cjeanneret/PanSplit/internal/config"
	"github.com/cjeanneret/PanSplit/internal/debug"
	"github.com/cjeanneret/PanSplit/internal/imaging"
	"github.com/cjeanneret/PanSplit/internal/logic/export"
	"github.com/cjeanneret/PanSplit/internal/panorama"
	"github.com/cjeanneret/PanSplit/internal/web"
)

// cliOptions holds the command line flags. Only flags set explicitly
// override the configuration.
type cliOptions struct {
	configPath      *string
	inputPath       *string
	outputPath      *string
	outputFormat    *string
	fov             *float64
	verticalFOV     *float64
	width           *int
	height          *int
	pitch           *float64
	pitches         floatList
	yaws            floatList
	maxWorkers      *int
	maxImageWorkers *int
	interpolation   *string
	preset          *string
	jpegQuality     *int
	debugLevel      *int
	web             *webPortFlag
}

func registerFlags(fs *flag.FlagSet) *cliOptions {
	o := &cliOptions{web: &webPortFlag{defaultPort: 8080}}
	fs.Var(o.web, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	o.configPath = fs.String("config", "", "optional path to a YAML config file")
	o.inputPath = fs.String("input_path", "", "panorama image or directory of panoramas")
	o.outputPath = fs.String("output_path", "output_images", "directory for the perspective views")
	o.outputFormat = fs.String("output_format", "", "png, jpg, jpeg, bmp or tiff; empty = same as input")
	o.fov = fs.Float64("fov", 90, "horizontal field of view in degrees (0-180)")
	o.verticalFOV = fs.Float64("vertical_fov", 0, "vertical field of view in degrees, 0 = same as -fov")
	o.width = fs.Int("output_width", 1000, "view width in pixels")
	o.height = fs.Int("output_height", 1500, "view height in pixels")
	o.pitch = fs.Float64("pitch", 90, "pitch angle, 90 = level (1-179)")
	fs.Var(&o.pitches, "list-of-pitch", "comma separated pitch angles; takes precedence over -pitch")
	o.yaws = floatList{0, 60, 120, 180, 240, 300}
	fs.Var(&o.yaws, "list-of-yaw", "comma separated yaw angles (0-360)")
	o.maxWorkers = fs.Int("max-workers", 0, "views generated in parallel per image, 0 = auto")
	o.maxImageWorkers = fs.Int("max-image-workers", 0, "images processed in parallel, 0 = one at a time")
	o.interpolation = fs.String("interpolation", "bilinear", "bilinear or nearest")
	o.preset = fs.String("preset", "", "view preset: "+strings.Join(web.FormPresets(), ", "))
	o.jpegQuality = fs.Int("jpeg_quality", imaging.DefaultJPEGQuality, "JPEG quality (1-100)")
	o.debugLevel = fs.Int("debug", debug.LevelInfo, "debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)")
	return o
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func main() {
	// glog writes to files by default
	_ = flag.Set("logtostderr", "true")
	opts := registerFlags(flag.CommandLine)
	flag.Parse()
	defer glog.Flush()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*opts.configPath)
	if err != nil {
		glog.Exitf("load config failed: %v", err)
	}
	set := setFlags(flag.CommandLine)
	if err := applyFlags(cfg, opts, set); err != nil {
		glog.Exitf("invalid argument: %v", err)
	}

	debug.Init(cfg.Defaults.DebugLevel)
	if debug.IsEnabled(debug.LevelTrace) {
		panorama.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	debug.Section("Initialization")
	debug.Value("Config path", *opts.configPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Config", *cfg)

	if port := opts.web.port(); port > 0 {
		runWeb(ctx, cfg, port)
		return
	}

	if cfg.Input.Path == "" {
		fmt.Fprintln(os.Stderr, "-input_path is required (or start the web interface with -web)")
		flag.Usage()
		glog.Flush()
		os.Exit(2)
	}
	if ok := runOnce(ctx, cfg); !ok {
		glog.Flush()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		if err := config.ValidateConfigPath(path); err != nil {
			return nil, err
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	// -debug 0 silences output; an unset level keeps the info default.
	if cfg.Defaults.DebugLevel == 0 {
		cfg.Defaults.DebugLevel = debug.LevelInfo
	}
	return cfg, nil
}

// applyFlags copies the flags in set onto cfg and validates the result.
func applyFlags(cfg *config.Config, o *cliOptions, set map[string]bool) error {
	if set["input_path"] {
		cfg.Input.Path = *o.inputPath
	}
	if set["output_path"] || cfg.Output.Path == "" {
		cfg.Output.Path = *o.outputPath
	}
	if set["output_format"] {
		cfg.Output.Format = *o.outputFormat
	}
	if set["fov"] {
		cfg.Camera.FOVDeg = *o.fov
	}
	if set["vertical_fov"] {
		cfg.Camera.VerticalFOVDeg = *o.verticalFOV
	}
	if set["output_width"] {
		cfg.Output.Width = *o.width
	}
	if set["output_height"] {
		cfg.Output.Height = *o.height
	}
	switch {
	case set["list-of-pitch"]:
		cfg.Angles.Pitch = o.pitches
	case set["pitch"]:
		cfg.Angles.Pitch = []float64{*o.pitch}
	}
	if set["list-of-yaw"] {
		cfg.Angles.Yaw = o.yaws
	}
	if set["max-workers"] {
		cfg.Defaults.MaxWorkers = *o.maxWorkers
	}
	if set["max-image-workers"] {
		cfg.Defaults.MaxImageWorkers = *o.maxImageWorkers
	}
	if set["interpolation"] {
		cfg.Defaults.Interpolation = *o.interpolation
	}
	if set["preset"] {
		cfg.Angles.Preset = *o.preset
	}
	if set["jpeg_quality"] {
		cfg.Output.JPEGQuality = *o.jpegQuality
	}
	if set["debug"] {
		cfg.Defaults.DebugLevel = *o.debugLevel
	}

	if cfg.Output.Width <= 0 || cfg.Output.Height <= 0 {
		return fmt.Errorf("output size must be positive, got %dx%d", cfg.Output.Width, cfg.Output.Height)
	}
	if cfg.Output.JPEGQuality < 1 {
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", cfg.Output.JPEGQuality)
	}
	if cfg.Angles.Preset != "" && !validPreset(cfg.Angles.Preset) {
		return fmt.Errorf("unknown preset %q, expected one of %s", cfg.Angles.Preset, strings.Join(web.FormPresets(), ", "))
	}
	return cfg.Validate()
}

func validPreset(name string) bool {
	for _, p := range web.FormPresets() {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// newJob builds a split job from cfg.
func newJob(cfg *config.Config) (*export.Job, error) {
	req, err := export.RequestFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	var format imaging.Format
	if cfg.Output.Format != "" {
		if format, err = imaging.ParseFormat(cfg.Output.Format); err != nil {
			return nil, err
		}
	}
	return &export.Job{
		Writer: export.Writer{
			Dir:     cfg.Output.Path,
			Format:  format,
			Quality: cfg.Output.JPEGQuality,
		},
		Request:         req,
		MaxImageWorkers: cfg.Defaults.MaxImageWorkers,
	}, nil
}

// runOnce splits cfg.Input.Path and prints the summary. It reports
// whether at least one view was written.
func runOnce(ctx context.Context, cfg *config.Config) bool {
	debug.Step(1, "Building split job")
	job, err := newJob(cfg)
	if err != nil {
		glog.Errorf("invalid request: %v", err)
		return false
	}
	job.Progress = func(_, msg string) { fmt.Println(msg) }

	debug.Summary("Split Parameters")
	debug.Value("Input", cfg.Input.Path)
	debug.Value("Output directory", cfg.Output.Path)
	if cfg.Angles.Preset != "" {
		debug.Value("Preset", cfg.Angles.Preset)
	} else {
		debug.Value("FOV", cfg.Camera.FOVDeg)
		debug.Value("Pitch angles", cfg.Angles.Pitch)
		debug.Value("Yaw angles", cfg.Angles.Yaw)
		debug.Value("Output size", fmt.Sprintf("%dx%d", cfg.Output.Width, cfg.Output.Height))
	}
	debug.Value("Max workers per image", workersLabel(cfg.Defaults.MaxWorkers))
	debug.Value("Max image workers", workersLabel(cfg.Defaults.MaxImageWorkers))

	debug.Step(2, "Generating views")
	sum, err := job.Process(ctx, cfg.Input.Path)
	if err != nil {
		glog.Errorf("split failed: %v", err)
	}
	printSummary(os.Stdout, sum)
	if sum.Saved == 0 {
		printHelp(os.Stdout, err)
		return false
	}
	return true
}

func workersLabel(n int) string {
	if n <= 0 {
		return "auto"
	}
	return strconv.Itoa(n)
}

// runWeb serves the control page until ctx is done. Each POST /run
// splits cfg.Input.Path with the submitted overrides.
func runWeb(ctx context.Context, cfg *config.Config, port int) {
	events := web.NewEventHub()
	debug.SetMirror(events.Writer())
	defer debug.SetMirror(nil)

	runSplit := func(ctx context.Context, jobID string, o web.Overrides) (export.Summary, error) {
		c := applyOverridesToCopy(cfg, o)
		if c.Input.Path == "" {
			return export.Summary{}, errors.New("no input path configured, restart with -input_path")
		}
		job, err := newJob(c)
		if err != nil {
			return export.Summary{}, err
		}
		job.Progress = events.JobProgress(jobID)
		debug.Info("Job %s: splitting %s", jobID, c.Input.Path)
		return job.Process(ctx, c.Input.Path)
	}

	formDefaults := web.FormConfig{
		InputPath: cfg.Input.Path,
		FOV:       cfg.Camera.FOVDeg,
		Width:     cfg.Output.Width,
		Height:    cfg.Output.Height,
		Pitch:     cfg.Angles.Pitch,
		Yaw:       cfg.Angles.Yaw,
		Presets:   web.FormPresets(),
	}
	srv, err := web.NewServer(fmt.Sprintf(":%d", port), events, runSplit, formDefaults)
	if err != nil {
		glog.Exitf("web server: %v", err)
	}
	if err := srv.Run(ctx); err != nil {
		glog.Exitf("web server: %v", err)
	}
}

// applyOverridesToCopy returns a new config with overrides applied.
// Zero values in overrides mean "use base config".
func applyOverridesToCopy(baseCfg *config.Config, o web.Overrides) *config.Config {
	cfg := *baseCfg
	if o.Preset != "" {
		cfg.Angles.Preset = o.Preset
		return &cfg
	}
	cfg.Angles.Preset = ""
	if o.FOV > 0 {
		cfg.Camera.FOVDeg = o.FOV
	}
	if o.Width > 0 {
		cfg.Output.Width = o.Width
	}
	if o.Height > 0 {
		cfg.Output.Height = o.Height
	}
	if len(o.Pitch) > 0 {
		cfg.Angles.Pitch = append([]float64(nil), o.Pitch...)
	}
	if len(o.Yaw) > 0 {
		cfg.Angles.Yaw = append([]float64(nil), o.Yaw...)
	}
	return &cfg
}

// floatList implements flag.Value for comma separated numbers.
type floatList []float64

func (l *floatList) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, len(*l))
	for i, v := range *l {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

func (l *floatList) Set(s string) error {
	var out floatList
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("%q is not a number", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return errors.New("empty list")
	}
	*l = out
	return nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w == nil || w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
