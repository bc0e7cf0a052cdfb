package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-timetrack-client/internal/config"
	"github.com/jrsteele09/go-timetrack-client/internal/logging"
	"github.com/jrsteele09/go-timetrack-client/internal/paths"
	"github.com/jrsteele09/go-timetrack-client/server"
	"github.com/jrsteele09/go-timetrack-client/server/taskrepo"
	"github.com/jrsteele09/go-timetrack-client/server/uploadrepo"
	fakeuserrepo "github.com/jrsteele09/go-timetrack-client/users/repofake"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load(".env", paths.EnvFile())
	if err != nil {
		return err
	}
	logging.New(c, os.Stderr)
	displayAppname(c.GetAppName() + " dev")

	handler, err := server.New(c, server.Repos{
		Users:   fakeuserrepo.NewFakeUserRepo(),
		Tasks:   taskrepo.NewInMemoryTaskRepo(),
		Uploads: uploadrepo.NewInMemoryUploadRepo(),
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetDevPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
