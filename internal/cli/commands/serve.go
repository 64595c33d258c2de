package commands

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/psplay/internal/cli/config"
	"github.com/leapstack-labs/psplay/internal/ui"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	NoBrowser bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lesson playground",
		Long: `Start a local web server with one page per lesson.

Every visible pane is an editor; submitting it evaluates the lesson and
patches the feedback regions of the pane and its properties in place.
Lesson files are watched and open pages reload when they change.`,
		Example: `  # Serve on the default port
  psplay serve

  # Serve on a custom port without opening a browser
  psplay serve --port 3000 --no-browser`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().Int("port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultPort))
	cmd.Flags().Bool("watch", true, "Reload lessons when their files change")
	cmd.Flags().Bool("dev", false, "Serve assets from disk and enable request logging")
	cmd.Flags().String("session-key", "", "Secret used to sign session cookies")
	cmd.Flags().Int("max-sessions", 0, "Feedback boards kept in memory")
	cmd.Flags().BoolVar(&opts.NoBrowser, "no-browser", false, "Don't auto-open browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cc := NewCommandContext(cmd)

	catalog, err := cc.LoadCatalog()
	if err != nil {
		return err
	}

	store, cleanup, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := cc.NewPipeline(store)
	if err != nil {
		return err
	}

	srv := cc.Cfg.Server
	secret := srv.SessionSecret
	if secret == "" {
		cc.Logger.Warn("no session secret configured, using the development secret")
		secret = config.DevSessionSecret
	}

	server := ui.NewServer(ui.Config{
		Catalog:       catalog,
		Pipeline:      p,
		Store:         store,
		Port:          srv.Port,
		Watch:         srv.Watch,
		Dev:           srv.Dev,
		SessionSecret: secret,
		MaxBoards:     srv.MaxBoards,
		Logger:        cc.Logger,
	})

	url := fmt.Sprintf("http://localhost:%d", srv.Port)
	if !opts.NoBrowser {
		go openBrowser(url)
	}

	cc.Renderer.Printf("Serving %d lessons on %s\n", len(catalog.List()), url)
	cc.Renderer.Println("Press Ctrl+C to stop")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	return server.Serve(ctx)
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url) //nolint:noctx
	case "linux":
		cmd = exec.Command("xdg-open", url) //nolint:noctx
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url) //nolint:noctx
	default:
		return
	}

	_ = cmd.Start()
}
