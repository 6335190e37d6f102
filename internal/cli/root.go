// Package cli implements the igait command tree: authentication, video
// submissions, realtime job and queue views, the assistant chat, and the
// local status server.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"igait-client/internal/auth"
	"igait-client/internal/client"
	"igait-client/internal/config"
	"igait-client/internal/realtime"
	"igait-client/internal/store/firebasestore"
	"igait-client/internal/store/redisstore"
	"igait-client/pkg/result"
)

// app carries the shared collaborators every command needs.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	auth    *auth.Store
	client  *client.Client
	verbose bool
}

var verbose bool

func NewRootCommand() *cobra.Command {
	var a app

	root := &cobra.Command{
		Use:           "igait",
		Short:         "Client for the iGait gait-analysis service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output with full error chains and debug logs")

	root.AddCommand(
		newLoginCommand(&a),
		newLogoutCommand(&a),
		newWhoamiCommand(&a),
		newRegisterCommand(&a),
		newSubmitCommand(&a),
		newContributeCommand(&a),
		newJobsCommand(&a),
		newJobCommand(&a),
		newQueuesCommand(&a),
		newQueueConfigCommand(&a),
		newApproveCommand(&a),
		newRerunCommand(&a),
		newFilesCommand(&a),
		newChatCommand(&a),
		newServeCommand(&a),
	)

	return root
}

// Execute runs the command tree and maps failures onto the display
// convention: the short message by default, the full chain with --verbose.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func (a *app) init() error {
	// A .env in the working directory is a development convenience; its
	// absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.verbose = verbose
	a.auth = auth.New(cfg.FirebaseAPIKey, cfg.SessionPath, logger)
	a.client = client.New(cfg, a.auth, logger)
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// newStore builds the configured realtime backend. The returned closer is
// a no-op for backends without connection state.
func (a *app) newStore() (realtime.Store, func(), error) {
	switch a.cfg.StoreBackend {
	case "redis":
		store, err := redisstore.New(a.cfg.RedisAddr, a.cfg.RedisPassword, a.cfg.RedisDB, a.logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		var tokens firebasestore.TokenSource
		if a.cfg.DatabaseAuth != "" {
			tokens = staticToken(a.cfg.DatabaseAuth)
		} else if a.auth.CurrentUser().IsSome() {
			tokens = a.auth
		}
		return firebasestore.New(a.cfg.DatabaseURL, tokens, a.logger), func() {}, nil
	}
}

func (a *app) newSubscriber() (*realtime.Subscriber, func(), error) {
	store, closeStore, err := a.newStore()
	if err != nil {
		return nil, nil, err
	}
	return realtime.NewSubscriber(store, a.logger), closeStore, nil
}

// requireUser resolves the signed-in user or fails the command.
func (a *app) requireUser() (string, error) {
	user, ok := a.auth.CurrentUser().Unwrap()
	if !ok {
		return "", fmt.Errorf("No authenticated user - run `igait login` first")
	}
	return user.UID, nil
}

type staticToken string

func (t staticToken) IDToken(ctx context.Context) result.Result[string] {
	return result.Ok(string(t))
}

func printError(err error) {
	var appErr *result.AppError
	if errors.As(err, &appErr) {
		if verbose {
			color.Red("Error: %s", appErr.FullMessage())
		} else {
			color.Red("Error: %s", appErr.DisplayMessage())
		}
		return
	}
	color.Red("Error: %v", err)
}
