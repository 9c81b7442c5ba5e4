package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"

	"dashboard/internal/attendance"
	"dashboard/internal/model"
)

// Keys the browser dashboard used in localStorage.
const (
	LegacyKeyDashboard = "alunosDashboard"
	LegacyKeyStudents  = "students"
)

const legacyMigrationName = "legacy-local-storage"

// ErrAlreadyMigrated is returned when the legacy import already ran.
var ErrAlreadyMigrated = errors.New("legacy storage already migrated")

// MigrationReport describes the outcome of MigrateLegacy.
type MigrationReport struct {
	Imported int      `json:"imported"`
	Merged   int      `json:"merged"`
	Skipped  int      `json:"skipped"`
	Invalid  int      `json:"invalid"`
	Keys     []string `json:"keys"`
}

type legacyStudent struct {
	Name         string          `json:"name"`
	Registration string          `json:"registration"`
	School       string          `json:"school"`
	Class        string          `json:"class"`
	TeachingDays json.RawMessage `json:"teachingDays"`
	Attendance   json.RawMessage `json:"attendance"`
	Grade        json.RawMessage `json:"grade"`
}

// ParseLegacyDump reads a JSON object of localStorage keys. Values may be the raw
// strings localStorage holds or already-decoded JSON.
func ParseLegacyDump(r io.Reader) (map[string]json.RawMessage, error) {
	var dump map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&dump); err != nil {
		return nil, errors.Wrap(err, "decode legacy dump")
	}
	return dump, nil
}

// MigrateLegacy imports the students held under the legacy keys into the students table.
// The dashboard key is read first since it carries teaching days and attendance; the
// older key only contributes grades and students missing from the first. Registrations
// that already exist in the store are never overwritten. Malformed records are counted
// as invalid and skipped. The import is recorded and refuses to run twice unless force
// is set; it stays unrecorded when a whole key could not be read.
func (s *Store) MigrateLegacy(ctx context.Context, dump map[string]json.RawMessage, force bool) (MigrationReport, error) {
	var rep MigrationReport
	if !force {
		done, err := s.migrationApplied(ctx, legacyMigrationName)
		if err != nil {
			return rep, err
		}
		if done {
			return rep, ErrAlreadyMigrated
		}
	}

	imported := map[string]*model.Student{}
	complete := true
	for _, key := range []string{LegacyKeyDashboard, LegacyKeyStudents} {
		raw, ok := dump[key]
		if !ok {
			continue
		}
		records, err := decodeLegacyList(raw)
		if err != nil {
			s.log.Warn("skipping malformed legacy key", "key", key, "error", err)
			complete = false
			continue
		}
		rep.Keys = append(rep.Keys, key)

		for i, item := range records {
			var rec legacyStudent
			if err := json.Unmarshal(item, &rec); err != nil {
				s.log.Warn("skipping malformed legacy record", "key", key, "index", i, "error", err)
				rep.Invalid++
				continue
			}
			reg := strings.TrimSpace(rec.Registration)
			if reg == "" || strings.TrimSpace(rec.Name) == "" {
				rep.Invalid++
				continue
			}
			if prev, ok := imported[reg]; ok {
				if prev.Grade == nil {
					if g, ok := parseLegacyGrade(rec.Grade); ok {
						prev.Grade = &g
						if err := s.Save(ctx, prev); err != nil {
							return rep, err
						}
					}
				}
				rep.Merged++
				continue
			}
			existing, err := s.FindByRegistration(ctx, reg)
			if err != nil {
				return rep, err
			}
			if existing != nil {
				rep.Skipped++
				continue
			}

			st := s.legacyToStudent(key, reg, rec)
			if err := s.Create(ctx, st); err != nil {
				return rep, err
			}
			imported[reg] = st
			rep.Imported++
		}
	}

	if !complete {
		s.log.Warn("legacy import left unrecorded, a key could not be read",
			"imported", rep.Imported, "merged", rep.Merged, "skipped", rep.Skipped, "invalid", rep.Invalid)
		return rep, nil
	}
	if err := s.recordMigration(ctx, legacyMigrationName); err != nil {
		return rep, err
	}
	s.log.Info("legacy storage migrated",
		"imported", rep.Imported, "merged", rep.Merged, "skipped", rep.Skipped, "invalid", rep.Invalid)
	return rep, nil
}

func (s *Store) legacyToStudent(key, reg string, rec legacyStudent) *model.Student {
	st := &model.Student{
		Name:         strings.TrimSpace(rec.Name),
		Registration: reg,
		School:       strings.TrimSpace(rec.School),
		Class:        strings.TrimSpace(rec.Class),
		Attendance:   attendance.Ledger{},
	}
	if days, err := decodeTeachingDays(rec.TeachingDays); err == nil {
		st.TeachingDays = days
	} else {
		s.log.Warn("legacy teaching days unreadable", "key", key, "registration", reg, "error", err)
	}
	// the older key stored a percentage here, which carries no dates
	if col, err := decodeAttendance(rec.Attendance); err == nil {
		st.Attendance, _ = col.Ledger()
	}
	if g, ok := parseLegacyGrade(rec.Grade); ok {
		st.Grade = &g
	}
	return st
}

// decodeLegacyList unwraps a localStorage string value when needed and splits the list
// into its records, which are decoded one by one.
func decodeLegacyList(raw json.RawMessage) ([]json.RawMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		raw = []byte(inner)
	}
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func parseLegacyGrade(raw json.RawMessage) (float64, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return 0, false
	}
	var g *float64
	if err := json.Unmarshal(raw, &g); err != nil || g == nil {
		return 0, false
	}
	if *g < 0 || *g > 10 {
		return 0, false
	}
	return *g, true
}

func (s *Store) migrationApplied(ctx context.Context, name string) (bool, error) {
	var applied string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM schema_migrations WHERE name = ?`, name).Scan(&applied)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read migrations")
	}
	return true, nil
}

func (s *Store) recordMigration(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET applied_at = excluded.applied_at
	`, name, s.now().UTC())
	return errors.Wrap(err, "record migration")
}
