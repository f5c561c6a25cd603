// ABOUTME: Root command for the collabfs CLI
// ABOUTME: Handles global flags, configuration and the shared command environment

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/collabfs/collabfs-cli/internal/client"
	"github.com/collabfs/collabfs-cli/internal/config"
	"github.com/collabfs/collabfs-cli/internal/flow"
	"github.com/collabfs/collabfs-cli/internal/logger"
	"github.com/collabfs/collabfs-cli/internal/session"
)

var (
	apiURL         string
	jsonOutput     bool
	configDir      string
	sessionBackend string
)

// Exit codes shared by every command
const (
	exitOK       = 0
	exitRejected = 1 // backend or local validation said no
	exitError    = 2 // connection, storage, or not logged in
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "collabfs",
	Short: "Command-line client for collabfs",
	Long: `collabfs signs you in to a collabfs backend and manages your groups.

Run "collabfs tui" for the interactive interface.

Environment Variables:
  COLLABFS_API_URL          Backend API URL (default: http://localhost:8000)
  COLLABFS_AUTH_API_KEY     API key for /auth endpoints
  COLLABFS_GROUP_API_KEY    API key for /group endpoints
  COLLABFS_CONFIG_DIR       Where the session and config.toml live
  COLLABFS_SESSION_BACKEND  file or sqlite (default: file)
  COLLABFS_ALL_PROXY        ssh+socks5:// proxy for backend traffic`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides COLLABFS_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config and session directory (overrides COLLABFS_CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVar(&sessionBackend, "session-backend", "", "Session store: file or sqlite")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig layers the global flags over config.Load
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadDir(configDir)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if sessionBackend != "" {
		cfg.SessionBackend = sessionBackend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env is what a command needs to talk to the backend and the session
type env struct {
	cfg    *config.Config
	client *client.Client
	store  session.Store
	sess   *session.Session
	flow   *flow.Flow
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger.Init(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	store, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	opts := []client.Option{
		client.WithTimeout(cfg.HTTPTimeout),
		client.WithAuthKey(cfg.AuthAPIKey),
		client.WithGroupKey(cfg.GroupAPIKey),
	}
	if cfg.AllProxy != "" {
		opts = append(opts, client.WithProxy(cfg.AllProxy))
	}
	c := client.New(cfg.APIURL, opts...)
	sess := session.New(store)

	return &env{
		cfg:    cfg,
		client: c,
		store:  store,
		sess:   sess,
		flow:   flow.New(c, sess),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing session store: %v\n", err)
	}
}

// errNotLoggedIn is returned by requireLogin
var errNotLoggedIn = errors.New("not logged in; run `collabfs login` first")

// errIdleExpired means the last command ran more than the idle timeout ago
var errIdleExpired = errors.New("session expired due to inactivity; run `collabfs login` again")

// requireLogin checks the token and the idle timer, and records activity.
func (e *env) requireLogin() (session.UserData, error) {
	if !e.sess.IsLoggedIn() {
		return session.UserData{}, errNotLoggedIn
	}
	if e.sess.Idle().Expired {
		if err := e.sess.Clear(); err != nil {
			return session.UserData{}, err
		}
		return session.UserData{}, errIdleExpired
	}
	u, err := e.sess.UserData()
	if err != nil {
		return session.UserData{}, err
	}
	if err := e.sess.Touch(); err != nil {
		return session.UserData{}, err
	}
	return u, nil
}

// exitCodeFor maps an error to the command exit code
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var verr *flow.ValidationError
	var cerr *flow.CooldownError
	switch {
	case client.IsAPIError(err), errors.As(err, &verr), errors.As(err, &cerr):
		return exitRejected
	case errors.Is(err, flow.ErrAlreadyLoggedIn),
		errors.Is(err, flow.ErrSignupDataMissing),
		errors.Is(err, flow.ErrResetNotStarted),
		errors.Is(err, flow.ErrResetNotAuthorized),
		errors.Is(err, flow.ErrResetExpired),
		errors.Is(err, flow.ErrResetSessionMissing):
		return exitRejected
	}
	return exitError
}

// fail prints err and returns its exit code
func fail(w io.Writer, err error) int {
	if IsJSONOutput() {
		printJSON(w, map[string]any{"error": err.Error(), "exit_code": exitCodeFor(err)})
		return exitCodeFor(err)
	}

	var verr *flow.ValidationError
	if errors.As(err, &verr) && len(verr.Problems) > 0 {
		fmt.Fprintf(w, "Error: %s\n", verr.Message)
		for _, p := range verr.Problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	} else {
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return exitCodeFor(err)
}

func printJSON(w io.Writer, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(w, string(data))
}

// runWithSignals wraps a runX function for cobra
func runWithSignals(run func(ctx context.Context, w io.Writer) int) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := run(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}
}
