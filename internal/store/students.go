package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"dashboard/internal/attendance"
	"dashboard/internal/model"
)

var (
	// ErrDuplicateRegistration is returned when a registration code is already taken.
	ErrDuplicateRegistration = errors.New("registration already exists")
	// ErrNotFound is returned by Save when the student does not exist.
	ErrNotFound = errors.New("student not found")
)

const studentColumns = `id, name, registration, school, class, teaching_days, attendance, grade, created_at, updated_at`

// Create inserts a new student. ID and timestamps are assigned here.
func (s *Store) Create(ctx context.Context, st *model.Student) error {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	now := s.now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now
	if st.Attendance == nil {
		st.Attendance = attendance.Ledger{}
	}

	days, err := encodeTeachingDays(st.TeachingDays)
	if err != nil {
		return errors.Wrap(err, "encode teaching days")
	}
	att, err := encodeAttendance(st.Attendance)
	if err != nil {
		return errors.Wrap(err, "encode attendance")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, st.ID, st.Name, st.Registration, st.School, st.Class, string(days), string(att), nullGrade(st.Grade), st.CreatedAt, st.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateRegistration
	}
	return errors.Wrap(err, "insert student")
}

// Save persists every mutable field of an existing student.
func (s *Store) Save(ctx context.Context, st *model.Student) error {
	days, err := encodeTeachingDays(st.TeachingDays)
	if err != nil {
		return errors.Wrap(err, "encode teaching days")
	}
	att, err := encodeAttendance(st.Attendance)
	if err != nil {
		return errors.Wrap(err, "encode attendance")
	}
	st.UpdatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE students
		SET name = ?, registration = ?, school = ?, class = ?, teaching_days = ?,
		    attendance = ?, grade = ?, updated_at = ?
		WHERE id = ?
	`, st.Name, st.Registration, st.School, st.Class, string(days), string(att), nullGrade(st.Grade), st.UpdatedAt, st.ID)
	if isUniqueViolation(err) {
		return ErrDuplicateRegistration
	}
	if err != nil {
		return errors.Wrap(err, "update student")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update student")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByRegistration returns the student with the given registration, or nil when none.
func (s *Store) FindByRegistration(ctx context.Context, registration string) (*model.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE registration = ?`, strings.TrimSpace(registration))
	return s.scanOne(row)
}

// FindByID returns the student with the given id, or nil when none.
func (s *Store) FindByID(ctx context.Context, id string) (*model.Student, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	return s.scanOne(row)
}

// List returns all students in registration order.
func (s *Store) List(ctx context.Context) ([]model.Student, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at, registration`)
	if err != nil {
		return nil, errors.Wrap(err, "list students")
	}
	defer rows.Close()

	var out []model.Student
	for rows.Next() {
		st, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, errors.Wrap(rows.Err(), "list students")
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row *sql.Row) (*model.Student, error) {
	st, err := s.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return st, err
}

func (s *Store) scan(sc scanner) (*model.Student, error) {
	var (
		st        model.Student
		days, att string
		grade     sql.NullFloat64
	)
	if err := sc.Scan(&st.ID, &st.Name, &st.Registration, &st.School, &st.Class, &days, &att, &grade, &st.CreatedAt, &st.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "scan student")
	}
	if grade.Valid {
		g := grade.Float64
		st.Grade = &g
	}

	teaching, err := decodeTeachingDays([]byte(days))
	if err != nil {
		s.log.Warn("malformed teaching days, treating as empty", "registration", st.Registration, "error", err)
	}
	st.TeachingDays = teaching

	st.Attendance = attendance.Ledger{}
	col, err := decodeAttendance([]byte(att))
	if err != nil {
		s.log.Warn("malformed attendance, treating as empty", "registration", st.Registration, "error", err)
		return &st, nil
	}
	ledger, skipped := col.Ledger()
	if skipped > 0 {
		s.log.Warn("ignored unreadable attendance entries", "registration", st.Registration, "skipped", skipped, "format", col.Kind.String())
	}
	st.Attendance = ledger
	return &st, nil
}

func nullGrade(g *float64) sql.NullFloat64 {
	if g == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *g, Valid: true}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
