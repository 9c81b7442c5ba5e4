package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"dashboard/internal/calendar"
	"dashboard/internal/config"
	"dashboard/internal/dashboard"
	"dashboard/internal/store"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand shares. The store is opened on first use.
type app struct {
	cfg config.App
	log *slog.Logger
	db  *store.Store
	svc *dashboard.Service
}

func newRootCmd(cfg config.App) *cobra.Command {
	return (&app{cfg: cfg}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "dashboard",
		Short:        "Teacher dashboard: student calendars and attendance",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = newLogger(a.cfg, cmd.ErrOrStderr())
			slog.SetDefault(a.log)
			if a.cfg.Production() {
				gin.SetMode(gin.ReleaseMode)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "SQLite database file (DB_PATH)")
	root.PersistentFlags().StringVar(&a.cfg.TimeZone, "tz", a.cfg.TimeZone, "time zone used to decide today (DASHBOARD_TZ)")

	root.AddCommand(
		newServeCmd(a),
		newCalendarCmd(a),
		newToggleCmd(a),
		newExportCmd(a),
		newMigrateCmd(a),
	)
	// cobra skips post-run hooks when RunE fails, so the store is closed here instead
	for _, sub := range root.Commands() {
		if sub.RunE != nil {
			sub.RunE = a.closing(sub.RunE)
		}
	}
	return root
}

// closing wraps run so the store is closed whether or not it fails.
func (a *app) closing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args)
	}
}

func (a *app) open() (*dashboard.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	db, err := store.Open(a.cfg.DBPath, store.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.DBPath, err)
	}
	a.db = db
	a.svc = dashboard.NewService(db,
		dashboard.WithLogger(a.log),
		dashboard.WithEditWindow(calendar.NewEditWindow(a.cfg.Location())),
		dashboard.WithPassingGrade(a.cfg.PassingGrade),
	)
	return a.svc, nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db, a.svc = nil, nil
	return err
}

func newLogger(cfg config.App, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") || cfg.Production() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
