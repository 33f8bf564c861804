package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-errors/errors"
	isatty "github.com/mattn/go-isatty"
	"github.com/micro-editor/tcell/v2"
	"github.com/spf13/cobra"
	lua "github.com/yuin/gopher-lua"

	"github.com/ellery/scribe/internal/config"
)

// Version is set at build time
var Version = "0.1.0-dev"

// NewRootCmd creates the scribe command
func NewRootCmd() *cobra.Command {
	var (
		configDir string
		debug     bool
	)
	cmd := &cobra.Command{
		Use:   "scribe [FILE[:LINE[:COL]]]... [+LINE[:COL] FILE...]",
		Short: "A terminal text editor with tabs and split panes",
		Long: `scribe opens each FILE in a tab. A file that does not exist yet is
created on the first save. With no FILE, piped standard input is read
into an untitled document.

+LINE[:COL] places the cursor in the files that follow it.`,
		Version:      Version,
		SilenceUsage: true,
		Args:         cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := parseArgs(args)
			if err != nil {
				return err
			}
			if err := config.InitConfigDir(configDir); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			closeLog := InitLog(debug, config.Path("log.txt"))
			defer closeLog()

			var stdin io.Reader
			if len(files) == 0 && !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				stdin = os.Stdin
			}
			return run(cmd.Context(), files, stdin)
		},
	}
	cmd.Flags().StringVar(&configDir, "config-dir", "", "use a custom configuration directory")
	cmd.Flags().BoolVar(&debug, "debug", false, "write a debug log to log.txt in the configuration directory")
	return cmd
}

func run(ctx context.Context, files []fileArg, stdin io.Reader) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("could not create a screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("could not initialize the screen: %w", err)
	}
	screen.EnableMouse()

	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			if e, ok := r.(*lua.ApiError); ok {
				fmt.Println("Lua API error:", e)
			} else {
				fmt.Println("scribe encountered an error:", errors.Wrap(r, 2).ErrorStack())
			}
			os.Exit(1)
		}
	}()

	a := newApp(screen)
	a.openInitial(files, stdin)
	log.Printf("SCRIBE: Started with %d tabs", a.panes.TabCount())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
	defer stop()
	err = a.run(ctx)
	a.shutdown()
	screen.Fini()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
