package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"dashboard/internal/handler"
	"dashboard/internal/httpmiddleware"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP API on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHTTP()
		},
	}
	cmd.Flags().StringVar(&a.cfg.HTTPPort, "port", a.cfg.HTTPPort, "HTTP port (HTTP_PORT)")
	return cmd
}

func (a *app) newRouter() (*gin.Engine, error) {
	svc, err := a.open()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if a.cfg.LogRequests {
		r.Use(httpmiddleware.RequestLogger(a.log, "/healthz", "/metrics"))
	}
	r.Use(httpmiddleware.CORS(a.cfg.CORSOrigins))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.New(svc, a.db, a.log).Routes(r)

	if a.cfg.WebDir != "" {
		r.StaticFile("/", filepath.Join(a.cfg.WebDir, "index.html"))
		r.Static("/static", filepath.Join(a.cfg.WebDir, "static"))
	}
	return r, nil
}

func (a *app) runHTTP() error {
	r, err := a.newRouter()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + a.cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", "addr", srv.Addr, "db", a.cfg.DBPath, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	a.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error("server forced shutdown", "error", err)
		return err
	}
	a.log.Info("server exited")
	return nil
}
