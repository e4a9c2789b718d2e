package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/cmd/shop/ui"
	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/logging"
	"storefront/internal/session"
	"storefront/internal/shop"
	"storefront/internal/store"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string
	timeout    time.Duration

	// Wired by PersistentPreRunE
	cfg    *config.Config
	tokens store.TokenStore
	sess   *session.Session
	svc    *shop.Service
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "shop",
	Short: "E-Shop - terminal storefront",
	Long: `shop browses the storefront catalog, keeps a cart for the
lifetime of the program, and manages your account and order history.

The session token is persisted between runs (sqlite by default), so a login
from one command is picked up by the next.

Run without arguments to start the interactive storefront.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		teardown()
	},
	RunE: runInteractive,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ~/.storefront/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (or set STOREFRONT_API_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout for non-interactive commands")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(profileCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// PersistentPostRun is skipped when RunE fails.
	teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config, starts logging and restores the persisted session.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if apiURL != "" {
		c.API.BaseURL = apiURL
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	cfg = c

	lc := logging.Config{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		Categories: c.Logging.Categories,
	}
	if verbose {
		lc.Level = "debug"
	}
	if err := logging.Initialize(lc); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logging.BootDebug("config loaded from %s", path)

	ctx := cmd.Context()
	st, err := store.Open(ctx, c.Session)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	s, err := session.New(ctx, st)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("failed to restore session: %w", err)
	}
	service, err := shop.Open(c, s)
	if err != nil {
		_ = st.Close()
		return err
	}
	tokens, sess, svc = st, s, service

	logging.Boot("storefront ready: api=%s backend=%s authenticated=%t",
		c.API.BaseURL, c.Session.Backend, s.Authenticated())
	return nil
}

func teardown() {
	if tokens != nil {
		if err := tokens.Close(); err != nil {
			logging.Get(logging.CategoryBoot).Warn("closing session store: %v", err)
		}
	}
	tokens, sess, svc = nil, nil, nil
	logging.Sync()
}

// commandContext bounds a non-interactive command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

// runInteractive launches the full-screen storefront.
func runInteractive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Session.Watch && tokens.Path() != "" {
		w, err := session.NewWatcher(sess, tokens.Path())
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("session watcher disabled: %v", err)
		} else if err := w.Start(ctx); err != nil {
			w.Stop()
			logging.Get(logging.CategoryBoot).Warn("session watcher disabled: %v", err)
		} else {
			defer w.Stop()
		}
	}

	env := &ui.Env{
		Config:  cfg,
		Service: svc,
		Cart:    cart.New(),
		Styles:  ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
	}
	return ui.Run(ctx, env, ui.RouteHome)
}
