package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gitlab.com/tinyland/lab/pulsebar/pkg/config"
	"gitlab.com/tinyland/lab/pulsebar/pkg/daemon"
	"gitlab.com/tinyland/lab/pulsebar/pkg/engine"
	"gitlab.com/tinyland/lab/pulsebar/pkg/i3"
	"gitlab.com/tinyland/lab/pulsebar/pkg/items"
	"gitlab.com/tinyland/lab/pulsebar/pkg/preview"
	"gitlab.com/tinyland/lab/pulsebar/pkg/theme"
	"gitlab.com/tinyland/lab/pulsebar/pkg/watch"
)

type runOptions struct {
	preview bool
	noIPC   bool
	noWatch bool
	width   int

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func defaultRunOptions() runOptions {
	return runOptions{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
}

var runOpts = defaultRunOptions()

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the status line (default command)",
	Long: "Run writes the i3bar protocol to stdout and reads click events from stdin. " +
		"When stdout is a terminal, or with --preview, it draws the bar in the terminal instead.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runBar(cmd, runOpts)
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.preview, "preview", false, "draw the bar in the terminal")
	runCmd.Flags().BoolVar(&runOpts.noIPC, "no-ipc", false, "do not listen on the control socket")
	runCmd.Flags().BoolVar(&runOpts.noWatch, "no-watch", false, "do not reload when config files change")
	runCmd.Flags().IntVar(&runOpts.width, "width", 0, "preview width (0 = terminal width)")
	rootCmd.AddCommand(runCmd)
}

// frameSink is where generations write frames.
type frameSink func(th *theme.Theme) engine.FrameWriter

func runBar(cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(opts.stderr, cfg.LogLevel, cfg.LogFile, flagVerbose)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink frameSink
	var clicks chan i3.ClickEvent
	if inline := isTerminal(opts.stdout); opts.preview || inline {
		sink = func(th *theme.Theme) engine.FrameWriter {
			return preview.New(opts.stdout, th, preview.Options{Width: opts.width, Inline: inline})
		}
	} else {
		pw := i3.NewWriter(opts.stdout)
		if err := pw.WriteHeader(i3.DefaultHeader()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		sink = func(*theme.Theme) engine.FrameWriter { return pw }

		// stdin reads cannot be cancelled, so the reader lives outside
		// the group and ends with the bar host.
		clicks = make(chan i3.ClickEvent, 16)
		go func() {
			if err := i3.ReadClicks(ctx, opts.stdin, clicks, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("click reader stopped", "error", err)
			}
		}()
	}

	reload := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ctl := daemon.NewController(requestReload)
	g, gctx := errgroup.WithContext(ctx)

	if !opts.noIPC {
		pidPath := daemon.PIDPath(cfg.Socket)
		if err := daemon.AcquirePID(pidPath); err != nil {
			return err
		}
		defer daemon.ReleasePID(pidPath)

		srv := daemon.NewIPCServer(cfg.Socket, ctl, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		g.Go(func() error {
			<-gctx.Done()
			srv.Stop()
			return nil
		})
		logger.Info("control socket listening", "path", cfg.Socket)
	}

	g.Go(func() error {
		for {
			select {
			case <-hup:
				logger.Info("received SIGHUP")
				requestReload()
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		return runGenerations(gctx, cfg, opts, sink, clicks, reload, ctl, logger)
	})

	err = g.Wait()
	var fatal *engine.FatalIOError
	if errors.As(err, &fatal) {
		logger.Info("bar host went away", "error", fatal.Err)
	}
	return err
}

// runGenerations runs one scheduler per configuration until ctx is done
// or output fails. A reload request stops the current generation and
// starts the next one from freshly loaded config; an invalid config keeps
// the previous one.
func runGenerations(ctx context.Context, cfg *config.Config, opts runOptions, sink frameSink,
	clicks <-chan i3.ClickEvent, reload chan struct{}, ctl *daemon.Controller, logger *slog.Logger) error {
	for gen := 1; ; gen++ {
		sched, err := buildScheduler(cfg, sink, logger)
		if err != nil {
			return err
		}
		ctl.Attach(sched)
		logger.Info("bar started", "generation", gen, "items", len(cfg.Items), "theme", sched.Theme().Name)

		genCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- sched.Run(genCtx, clicks) }()

		if !opts.noWatch {
			startWatcher(genCtx, cfg, reload, logger)
		}

		select {
		case err := <-done:
			ctl.Detach(sched)
			cancel()
			return err
		case <-reload:
			ctl.Detach(sched)
			cancel()
			if err := <-done; err != nil {
				return err
			}
		}

		next, err := config.Load(flagConfig)
		if err != nil {
			logger.Error("reload failed, keeping current config", "error", err)
			continue
		}
		if _, err := next.ResolveTheme(); err != nil {
			logger.Error("reload failed, keeping current config", "error", err)
			continue
		}
		cfg = next
	}
}

func buildScheduler(cfg *config.Config, sink frameSink, logger *slog.Logger) (*engine.Scheduler, error) {
	th, err := cfg.ResolveTheme()
	if err != nil {
		return nil, err
	}
	slots, err := items.Default().Build(cfg.Items)
	if err != nil {
		return nil, err
	}
	return engine.New(slots, th, sink(th), logger), nil
}

// startWatcher forwards file changes to reload until ctx is done.
func startWatcher(ctx context.Context, cfg *config.Config, reload chan<- struct{}, logger *slog.Logger) {
	paths := cfg.WatchPaths()
	if len(paths) == 0 {
		return
	}
	w, err := watch.New(paths, 0, logger)
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
		return
	}
	go w.Run(ctx, reload)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
