package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/go-timetrack-client/auth"
	"github.com/jrsteele09/go-timetrack-client/gateway"
	"github.com/jrsteele09/go-timetrack-client/internal/config"
	"github.com/jrsteele09/go-timetrack-client/internal/logging"
	"github.com/jrsteele09/go-timetrack-client/internal/paths"
	"github.com/jrsteele09/go-timetrack-client/sessions"
	"github.com/jrsteele09/go-timetrack-client/sessions/filerepo"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds what every command needs once the persistent pre-run is done.
type app struct {
	config  config.Config
	repo    *filerepo.Repo
	store   *sessions.Store
	gateway *gateway.Gateway
	auth    *auth.Service
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "timetrack",
		Short:         "Time tracking client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			return a.init(verbose)
		},
	}
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newTasksCmd(a),
		newRunCmd(a),
		newPathsCmd(),
	)
	return cmd
}

func (a *app) init(verbose bool) error {
	c, err := config.Load(".env", paths.EnvFile())
	if err != nil {
		return err
	}
	logging.New(c, os.Stderr)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create state directories: %w", err)
	}
	repo, err := filerepo.Open(paths.SessionFile(), paths.SessionKeyFile())
	if err != nil {
		return err
	}

	a.config = c
	a.repo = repo
	a.store = sessions.NewStore(repo)
	a.gateway = gateway.NewFromConfig(c, a.store)
	a.auth = auth.NewService(a.gateway, a.store, auth.WithLoginTimeout(c.GetLoginTimeout()))
	return nil
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show where configuration and session state are kept",
		Args:  cobra.NoArgs,
		// Skip the session setup done for the other commands.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config dir:   %s\n", paths.ConfigDir())
			fmt.Fprintf(out, "env file:     %s\n", paths.EnvFile())
			fmt.Fprintf(out, "state dir:    %s\n", paths.StateDir())
			fmt.Fprintf(out, "session file: %s\n", paths.SessionFile())
			fmt.Fprintf(out, "session key:  %s\n", paths.SessionKeyFile())
			return nil
		},
	}
}
