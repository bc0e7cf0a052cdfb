package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-timetrack-client/capture"
	"github.com/jrsteele09/go-timetrack-client/sessions"
	"github.com/jrsteele09/go-timetrack-client/sessions/filerepo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture and upload screenshots while logged in",
		Long: `Captures a screenshot every CAPTURE_INTERVAL and uploads it while a session
is active. CAPTURE_COMMAND must name a tool that writes an image to stdout,
for example "grim -" or "import -window root png:-". Logging in or out from
another terminal takes effect without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			grabber, err := capture.NewCommandSource(a.config.GetCaptureCommand())
			if err != nil {
				return fmt.Errorf("%w: set CAPTURE_COMMAND", err)
			}
			scheduler := capture.NewScheduler(a.store,
				capture.NewJPEGSource(grabber, a.config.GetJPEGQuality()),
				capture.NewUploader(a.gateway),
				capture.WithInterval(a.config.GetCaptureInterval()),
				capture.WithCaptureTimeout(a.config.GetCaptureTimeout()),
			)

			out := cmd.OutOrStdout()
			if ok, err := a.auth.Restore(ctx); err != nil {
				fmt.Fprintf(out, "Could not verify session (%s); will keep trying.\n", userMessage(err))
			} else if !ok {
				fmt.Fprintln(out, "Not logged in. Run 'timetrack login' in another terminal; capture starts once you do.")
			}

			if once {
				record, ok := scheduler.RunOnce(ctx)
				if !ok {
					return fmt.Errorf("not logged in")
				}
				if record.Err != nil {
					return fmt.Errorf("capture %s: %s", record.Outcome, userMessage(record.Err))
				}
				fmt.Fprintf(out, "Uploaded %d bytes: %s\n", record.Bytes, record.ImageURL)
				return nil
			}

			cancel := a.store.Subscribe(func(s sessions.Session) {
				if s.AccessToken == "" {
					fmt.Fprintln(out, "Session ended; capture paused.")
					return
				}
				fmt.Fprintf(out, "Capturing as %s.\n", s.Email)
			})
			defer cancel()

			watcher, err := filerepo.NewWatcher(a.repo.Path(), func() {
				if err := a.store.Reload(); err != nil {
					log.Warn().Err(err).Msg("Failed to reload session")
				}
			})
			if err != nil {
				return err
			}
			go watcher.Start(ctx)

			scheduler.Start(ctx)
			scheduler.Wait()
			stats := scheduler.Stats()
			fmt.Fprintf(out, "Stopped after %d tick(s): %d started, %d skipped, %d failed.\n",
				stats.Ticks, stats.Started, stats.Skipped, stats.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Capture and upload a single screenshot, then exit")
	return cmd
}
