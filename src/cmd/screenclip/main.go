package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"screen-clip/src/config"
	"screen-clip/src/eventloop"
	"screen-clip/src/hotkey"
	"screen-clip/src/logutil"
	"screen-clip/src/runtimeinit"
	"screen-clip/src/session"
	"screen-clip/src/singleinstance"
)

type cliOptions struct {
	display    string
	output     string
	clipboard  string
	fullscreen bool
	verbose    bool
	standalone bool
}

// actions are the command bodies, replaceable in tests.
type actions struct {
	once  func(opts cliOptions, stdout io.Writer) error
	watch func(opts cliOptions) error
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), actions{once: runOnce, watch: runWatch})
}

func runWithArgs(args []string, acts actions) error {
	if len(args) == 0 {
		args = []string{"screenclip"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, acts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, acts actions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screenclip",
		Short:         "Select a screen region and copy it to the clipboard as PNG",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return acts.once(*opts, cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.display, "display", "", "X display to use (default $DISPLAY)")
	flags.StringVar(&opts.output, "output", "", "Stable output path (default /tmp/clip.png)")
	flags.StringVar(&opts.clipboard, "clipboard", "", "Clipboard backend: xclip or native")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().BoolVar(&opts.fullscreen, "fullscreen", false, "Capture the whole primary display without selecting")
	cmd.Flags().BoolVar(&opts.standalone, "standalone", false, "Never delegate to a running resident")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Stay resident, capture on the global hotkey and serve delegated captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return acts.watch(*opts)
		},
	}
	cmd.AddCommand(watch)

	return cmd
}

func bootstrap(opts cliOptions) (*runtimeinit.Runtime, error) {
	return runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			DisplayOverride:          opts.display,
			OutputPathOverride:       opts.output,
			ClipboardBackendOverride: opts.clipboard,
		},
		SetupLogging: func(enableFile bool) { logutil.Setup(enableFile, opts.verbose) },
	})
}

func runOnce(opts cliOptions, stdout io.Writer) error {
	rt, err := bootstrap(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.standalone {
		delegated, path, err := singleinstance.NewClient().TryCapture(ctx, opts.fullscreen)
		if delegated {
			log.Printf("capture delegated to resident")
			return reportDelegated(stdout, path, err)
		}
	}

	outcome, err := capture(ctx, rt, singleinstance.Request{Fullscreen: opts.fullscreen})
	if err != nil {
		return err
	}
	report(stdout, outcome)
	if outcome.Captured {
		rt.HoldClipboard(ctx)
	}
	return nil
}

func runWatch(opts cliOptions) error {
	rt, err := bootstrap(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(func(ctx context.Context, req singleinstance.Request) (session.Outcome, error) {
		return capture(ctx, rt, req)
	}, nil)
	if loop.StartHotkey(rt.Config.Hotkey) {
		defer hotkey.Stop()
	} else {
		fmt.Fprintf(os.Stderr, "Warning: hotkey %q not registered; serving delegated captures only\n", rt.Config.Hotkey)
	}

	err = loop.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func report(w io.Writer, o session.Outcome) {
	switch {
	case o.Captured:
		log.Printf("captured %s to %s", o.Rect, o.Path)
		fmt.Fprintln(w, o.Path)
	case o.Cancelled:
		log.Printf("selection cancelled")
	default:
		log.Printf("empty selection, nothing captured")
	}
}

// reportDelegated turns a resident's answer into the exit status a local
// session would have produced.
func reportDelegated(w io.Writer, path string, err error) error {
	if err != nil {
		if errors.Is(err, singleinstance.ErrCancelled) {
			log.Printf("selection cancelled")
			return nil
		}
		return fmt.Errorf("resident capture failed: %w", err)
	}
	if path != "" {
		fmt.Fprintln(w, path)
	}
	return nil
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"display", "output", "clipboard", "fullscreen", "verbose", "standalone"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		if arg == "--" {
			break
		}
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}
