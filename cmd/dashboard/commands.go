package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dashboard/internal/calendar"
	"dashboard/internal/model"
	"dashboard/internal/store"
)

func monthFlag(raw string) (calendar.Month, error) {
	if raw == "" {
		return calendar.Month{}, nil
	}
	m, err := calendar.ParseMonth(raw)
	if err != nil {
		return calendar.Month{}, fmt.Errorf("--month must be YYYY-MM: %w", err)
	}
	return m, nil
}

func printHeader(w io.Writer, st *model.Student) {
	fmt.Fprintf(w, "%s (%s)", st.Name, st.Registration)
	if st.Class != "" {
		fmt.Fprintf(w, " class %s", st.Class)
	}
	fmt.Fprintln(w)
}

func newCalendarCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "calendar <registration>",
		Short: "Print a student's month calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := monthFlag(month)
			if err != nil {
				return err
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			sc, err := svc.Calendar(cmd.Context(), args[0], m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printHeader(out, sc.Student)
			return sc.Grid.WriteText(out)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	return cmd
}

func newToggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <registration> <YYYY-MM-DD>",
		Short: "Cycle one date through unmarked, present and absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := calendar.ParseDate(args[1])
			if err != nil {
				return err
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			res, err := svc.Toggle(cmd.Context(), args[0], d)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Changed {
				fmt.Fprintf(out, "%s is locked, nothing changed\n", d)
			} else {
				fmt.Fprintf(out, "%s -> %s\n", d, res.Status)
			}
			return res.Grid.WriteText(out)
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var month, output string
	cmd := &cobra.Command{
		Use:   "export <registration>",
		Short: "Write a student's month calendar to an .xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := monthFlag(month)
			if err != nil {
				return err
			}
			svc, err := a.open()
			if err != nil {
				return err
			}
			if m.IsZero() {
				m = calendar.MonthOf(svc.Today())
			}
			if output == "" {
				output = fmt.Sprintf("attendance-%s-%s.xlsx", args[0], m)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := svc.Export(cmd.Context(), args[0], m, f); err != nil {
				f.Close()
				_ = os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current month)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default attendance-<registration>-<month>.xlsx)")
	return cmd
}

const migrateLong = "Imports the students held under the " + store.LegacyKeyDashboard + " and " +
	store.LegacyKeyStudents + " keys of a JSON dump of the browser's localStorage. " +
	"The import runs once; --force runs it again without overwriting existing registrations."

func newMigrateCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "migrate <localstorage-dump.json | ->",
		Short: "Import students from a browser localStorage dump",
		Long:  migrateLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			dump, err := store.ParseLegacyDump(in)
			if err != nil {
				return err
			}
			if _, err := a.open(); err != nil {
				return err
			}
			rep, err := a.db.MigrateLegacy(cmd.Context(), dump, force)
			if errors.Is(err, store.ErrAlreadyMigrated) {
				return fmt.Errorf("%w (use --force to run it again)", err)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "run the import again even if it already ran")
	return cmd
}

