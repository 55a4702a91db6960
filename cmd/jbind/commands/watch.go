package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/jbind/config"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/ingest"
	"github.com/teranos/jbind/logger"
	"github.com/teranos/jbind/pipeline"
)

var (
	watchDebounce    time.Duration
	watchMaxPerMin   int
	watchExec        string
	watchDiagLimit   int
	watchSkipInitial bool
)

// WatchCmd regenerates on change
var WatchCmd = &cobra.Command{
	Use:   "watch [inputs...]",
	Short: "Regenerate bindings when inputs or configuration change",
	Long: `Generate once, then watch the local inputs and the configuration file
and regenerate after changes settle. A changed configuration file is
reloaded; if it no longer loads, the previous configuration stays in use.

Examples:
  jbind watch                                  # Inputs from jbind.toml
  jbind watch --exec "go build ./gen/..."      # Build after each run
  jbind watch --max-per-minute 2               # Throttle busy inputs`,
	RunE: runWatch,
}

func init() {
	WatchCmd.Flags().DurationVar(&watchDebounce, "debounce", config.DefaultDebounce, "Quiet period before regenerating")
	WatchCmd.Flags().IntVar(&watchMaxPerMin, "max-per-minute", 12, "Upper bound on regenerations per minute")
	WatchCmd.Flags().StringVar(&watchExec, "exec", "", "Command to run after each successful generation")
	WatchCmd.Flags().IntVar(&watchDiagLimit, "limit", 20, "Diagnostics shown per run (0 = all)")
	WatchCmd.Flags().BoolVar(&watchSkipInitial, "skip-initial", false, "Do not generate before the first change")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newWatchSession(cfg, args, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	paths := s.watchPaths()
	if len(paths) == 0 {
		return errors.WithHint(
			errors.NewConfigurationError("nothing to watch"),
			"watch needs local inputs or a configuration file",
		)
	}
	w, err := config.NewWatcher(paths, watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()
	w.Ignore(s.ignored)

	ctx, cancel := signalContext(cmd)
	defer cancel()

	if !watchSkipInitial {
		s.regenerate(ctx, nil)
	}
	w.OnChange(func(changed []string) { s.regenerate(ctx, changed) })

	fmt.Fprintln(s.out, pterm.Info.Sprintf("Watching %d paths (Ctrl+C to stop)", len(paths)))
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchSession serializes regenerations for one watch command.
type watchSession struct {
	mu      sync.Mutex
	cfg     *config.Config
	inputs  []string
	out     io.Writer
	limiter *rate.Limiter
	command []string
	log     *zap.SugaredLogger

	// runs counts finished regenerations, successful or not.
	runs int
}

func newWatchSession(cfg *config.Config, inputs []string, out io.Writer) (*watchSession, error) {
	s := &watchSession{
		cfg:    cfg,
		inputs: inputs,
		out:    out,
		log:    logger.ComponentLogger("watch"),
	}
	if watchMaxPerMin > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(float64(watchMaxPerMin)/60.0), 1)
	}
	if watchExec != "" {
		argv, err := shellquote.Split(watchExec)
		if err != nil {
			return nil, errors.WrapConfiguration(err, "parse --exec")
		}
		s.command = argv
	}
	return s, nil
}

// watchPaths lists local inputs and the configuration file. Remote inputs
// are fetched once per run and not watched.
func (s *watchSession) watchPaths() []string {
	var paths []string
	inputs := s.inputs
	if len(inputs) == 0 {
		inputs = s.cfg.Input.Paths
	}
	for _, in := range inputs {
		if _, err := os.Stat(in); err == nil {
			paths = append(paths, in)
		} else if !ingest.IsRemote(in) {
			s.log.Warnw("Input does not exist, not watching", logger.FieldInput, in)
		}
	}
	if s.cfg.Path != "" {
		paths = append(paths, s.cfg.Path)
	}
	return paths
}

// ignored keeps generated output and the manifest from retriggering runs
// when they live below an input directory.
func (s *watchSession) ignored(path string) bool {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	if cfg.Output.Sink == "disk" && within(path, cfg.Output.Dir) {
		return true
	}
	if cfg.Manifest.Enabled && within(path, filepath.Dir(cfg.Manifest.DSN)) && !strings.HasPrefix(cfg.Manifest.DSN, "postgres") {
		return true
	}
	return false
}

func within(path, dir string) bool {
	if dir == "" {
		return false
	}
	absPath, err1 := filepath.Abs(path)
	absDir, err2 := filepath.Abs(dir)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *watchSession) regenerate(ctx context.Context, changed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.runs++ }()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}
	if s.cfg.Path != "" && contains(changed, s.cfg.Path) {
		cfg, err := config.Load(s.cfg.Path)
		if err != nil {
			fmt.Fprintln(s.out, pterm.Warning.Sprintf("Configuration not reloaded: %v", err))
		} else {
			s.cfg = cfg
			s.log.Infow("Configuration reloaded", logger.FieldPath, cfg.Path)
		}
	}
	if len(changed) > 0 {
		s.log.Infow("Regenerating", logger.FieldCount, len(changed))
	}

	d, err := pipeline.New(s.cfg)
	if err != nil {
		fmt.Fprintln(s.out, pterm.Error.Sprintf("%v", err))
		return
	}
	defer d.Close()

	report, err := d.Run(ctx, s.inputs)
	if perr := printReport(s.out, report, watchDiagLimit); perr != nil {
		s.log.Warnw("Failed to print report", logger.FieldError, perr)
	}
	if err != nil {
		fmt.Fprintln(s.out, pterm.Error.Sprintf("Generation failed: %v", err))
		return
	}
	fmt.Fprintln(s.out, pterm.Success.Sprintf("Generated %d files in %s",
		len(report.Units), report.Duration.Round(time.Millisecond)))

	if len(s.command) > 0 {
		c := exec.CommandContext(ctx, s.command[0], s.command[1:]...)
		c.Stdout, c.Stderr = s.out, s.out
		if err := c.Run(); err != nil {
			fmt.Fprintln(s.out, pterm.Error.Sprintf("%s: %v", watchExec, err))
		}
	}
}

func contains(paths []string, target string) bool {
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	for _, p := range paths {
		if p == target {
			return true
		}
		if pa, err := filepath.Abs(p); err == nil && pa == abs {
			return true
		}
	}
	return false
}
