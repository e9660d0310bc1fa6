package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/cargoexec/adapter"
	"github.com/pithecene-io/cargoexec/cargo"
	"github.com/pithecene-io/cargoexec/cli/config"
	"github.com/pithecene-io/cargoexec/cli/render"
	"github.com/pithecene-io/cargoexec/iox"
	"github.com/pithecene-io/cargoexec/log"
	"github.com/pithecene-io/cargoexec/metrics"
	"github.com/pithecene-io/cargoexec/types"
)

// cargoOptions holds the cargo settings resolved from flags and config.
type cargoOptions struct {
	program           string
	manifestPath      string
	targetDir         string
	target            string
	pkg               string
	release           bool
	features          []string
	allFeatures       bool
	noDefaultFeatures bool
	env               [][2]string
	strict            bool
}

// session is the per-command state shared by every cargo-invoking command.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc

	opts      cargoOptions
	inv       *types.Invocation
	logger    *log.Logger
	collector *metrics.Collector
	renderer  *render.Renderer
	observer  cargo.Observer
	stats     bool
	stderr    io.Writer

	adapter     adapter.Adapter
	adapterType string
	metricsFile string
	started     time.Time
	// failure is the cargo error the command failed with, if any.
	failure error
}

func newSession(c *cli.Context, subcommand string) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, usageError(err)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return nil, usageError(err)
	}

	level, err := log.ParseLevel(resolveString(c, "log-level", cfg.LogLevel))
	if err != nil {
		return nil, usageError(err)
	}

	opts, err := resolveOptions(c, cfg)
	if err != nil {
		return nil, usageError(err)
	}

	inv := types.NewInvocation(subcommand)
	inv.ManifestPath = opts.manifestPath
	inv.Target = opts.target
	if err := inv.Validate(); err != nil {
		return nil, usageError(err)
	}

	ac, err := parseAdapterConfigWithPrecedence(c, &cfg.Adapter, resolveString(c, "adapter", cfg.Adapter.Type))
	if err != nil {
		return nil, usageError(err)
	}
	var notifier adapter.Adapter
	adapterType := ""
	if ac != nil {
		if notifier, err = newAdapter(ac); err != nil {
			return nil, usageError(err)
		}
		adapterType = ac.adapterType
	}

	stderr := c.App.ErrWriter
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := log.NewLoggerWithWriter(inv, stderr, level)
	collector := metrics.NewCollector(subcommand, opts.target)

	observers := []cargo.Observer{collector}
	if resolveBool(c, "print", cfg.Print) {
		observers = append(observers, log.NewConsole(stderr, r.NoColor()))
	}

	parent := c.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	cancel := context.CancelFunc(stop)
	if d := resolveDuration(c, "timeout", cfg.Timeout.Duration); d > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, d)
		cancel = func() {
			cancelTimeout()
			stop()
		}
	}

	return &session{
		ctx:       ctx,
		cancel:    cancel,
		opts:      opts,
		inv:       inv,
		logger:    logger,
		collector: collector,
		renderer:  r,
		observer:  cargo.MultiObserver(observers...),
		stats:     c.Bool("stats"),
		stderr:    stderr,

		adapter:     notifier,
		adapterType: adapterType,
		metricsFile: resolveString(c, "metrics-file", cfg.MetricsFile),
		started:     time.Now(),
	}, nil
}

// loadConfig loads --config, or cargoexec.yaml from the working directory
// if it exists.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadDefault("")
}

func resolveOptions(c *cli.Context, cfg *config.Config) (cargoOptions, error) {
	opts := cargoOptions{
		program:           resolveString(c, "cargo", cfg.Cargo),
		manifestPath:      resolveString(c, "manifest-path", cfg.ManifestPath),
		targetDir:         resolveString(c, "target-dir", cfg.TargetDir),
		target:            resolveString(c, "target", cfg.Target),
		pkg:               resolveString(c, "package", cfg.Package),
		release:           resolveBool(c, "release", cfg.Release),
		features:          resolveStrings(c, "features", cfg.Features),
		allFeatures:       resolveBool(c, "all-features", cfg.AllFeatures),
		noDefaultFeatures: resolveBool(c, "no-default-features", cfg.NoDefaultFeatures),
		strict:            resolveBool(c, "strict", cfg.Strict),
		env:               cfg.EnvPairs(),
	}
	if opts.program == "" {
		opts.program = cargo.Bin()
	}
	if c.Bool("current-target") {
		if c.IsSet("target") {
			return opts, errors.New("--target and --current-target are mutually exclusive")
		}
		opts.target = cargo.CurrentTarget()
	}

	// Precedence, lowest first: env file, config env, --env.
	if path := resolveString(c, "env-file", cfg.EnvFile); path != "" {
		fileEnv, err := godotenv.Read(path)
		if err != nil {
			return opts, fmt.Errorf("read env file %s: %w", path, err)
		}
		opts.env = append(config.SortedPairs(fileEnv), opts.env...)
	}

	cliEnv, err := parseEnv(c.StringSlice("env"))
	if err != nil {
		return opts, err
	}
	opts.env = append(opts.env, cliEnv...)
	return opts, nil
}

// build returns a `cargo build` configured from the session options.
func (s *session) build() *cargo.Build {
	cmd := cargo.NewWithBin(s.opts.program).Logger(s.logger)
	for _, kv := range s.opts.env {
		cmd.Env(kv[0], kv[1])
	}

	b := cmd.Build().
		Strict(s.opts.strict).
		Observer(s.observer)
	if s.opts.pkg != "" {
		b.Package(s.opts.pkg)
	}
	if s.opts.manifestPath != "" {
		b.ManifestPath(s.opts.manifestPath)
	}
	if s.opts.target != "" {
		b.Target(s.opts.target)
	}
	if s.opts.targetDir != "" {
		b.TargetDir(s.opts.targetDir)
	}
	if s.opts.release {
		b.Release()
	}
	if s.opts.allFeatures {
		b.AllFeatures()
	}
	if s.opts.noDefaultFeatures {
		b.NoDefaultFeatures()
	}
	b.Features(s.opts.features...)
	return b
}

// fail records err and converts it to an exit error carrying its code.
func (s *session) fail(err error) error {
	s.failure = err
	if kind, ok := cargo.KindOf(err); ok && kind == cargo.InvalidCommand {
		s.collector.IncLaunchFailure()
	} else {
		s.collector.IncInvocationFailed()
	}
	s.logger.Error("cargo invocation failed", map[string]any{"error": err.Error()})
	if s.stats {
		snap := s.collector.Snapshot()
		s.logger.Info("stats", map[string]any{"stats": snap})
	}
	return cli.Exit(err.Error(), exitCodeFor(err))
}

// render writes resp, attaching the stats snapshot when --stats is set.
func (s *session) render(resp statsSetter) error {
	if s.stats {
		snap := s.collector.Snapshot()
		resp.setStats(&snap)
	}
	if err := s.renderer.Render(resp); err != nil {
		return fmt.Errorf("render output: %w", err)
	}
	return nil
}

// close publishes the completion notice and writes the metrics textfile,
// if either is configured, and releases the session. result is what the command returned.
func (s *session) close(result error) {
	if s.adapter != nil {
		s.publish(result)
		iox.DiscardErr(s.adapter.Close)
	}
	if s.metricsFile != "" {
		if err := metrics.WriteTextfile(s.metricsFile, s.collector); err != nil {
			s.logger.Warn("metrics textfile not written", map[string]any{"path": s.metricsFile, "error": err.Error()})
		}
	}
	s.cancel()
	iox.DiscardErr(s.logger.Sync)
}

// statsSetter is implemented by responses that can carry a stats snapshot.
type statsSetter interface {
	setStats(*metrics.Snapshot)
}
