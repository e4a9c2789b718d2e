package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"storefront/internal/api"
	"storefront/internal/types"

	"github.com/spf13/cobra"
)

var (
	authName     string
	authEmail    string
	authPassword string
)

// loginCmd signs in and persists the token for later runs
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	Long: `Exchanges email and password for a session token and stores it in the
configured session backend.

The password may come from STOREFRONT_PASSWORD instead of the flag.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

// registerCmd creates an account and signs in
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Args:  cobra.NoArgs,
	RunE:  runRegister,
}

// logoutCmd forgets the stored session
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

// whoamiCmd shows the signed-in user
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Account password (or set STOREFRONT_PASSWORD)")

	registerCmd.Flags().StringVar(&authName, "name", "", "Display name")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "Account password (or set STOREFRONT_PASSWORD)")
}

func password() string {
	if authPassword != "" {
		return authPassword
	}
	return os.Getenv("STOREFRONT_PASSWORD")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	err := svc.Login(ctx, types.Credentials{Email: authEmail, Password: password()})
	if api.IsUnauthenticated(err) {
		return errors.New("login failed: invalid email or password")
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", authEmail)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	reg := types.Registration{Name: authName, Email: authEmail, Password: password()}
	if err := svc.Register(ctx, reg); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Registration successful")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	if !sess.Authenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
		return nil
	}
	if err := svc.Logout(ctx); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	u, err := svc.CurrentUser(ctx)
	if err != nil {
		return sessionError(err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s <%s>\n", u.Name, u.Email)
	if exp, ok := sess.ExpiresAt(); ok {
		fmt.Fprintf(out, "Session expires %s\n", exp.Format(time.RFC3339))
	}
	return nil
}

var errNotLoggedIn = errors.New("not logged in (run `shop login`)")

func requireLogin() error {
	if !sess.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

// sessionError turns a 401 into the login hint; the client has already
// dropped the stored token by the time it surfaces here.
func sessionError(err error) error {
	if api.IsUnauthenticated(err) {
		return fmt.Errorf("session expired: %w", errNotLoggedIn)
	}
	return err
}
