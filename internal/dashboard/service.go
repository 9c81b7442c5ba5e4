// Package dashboard implements the teacher dashboard operations on top of a student
// directory: registration, lookup, the calendar grid and its toggle intent, bulk
// attendance saves, grades and class overviews.
package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"dashboard/internal/attendance"
	"dashboard/internal/calendar"
	"dashboard/internal/export"
	"dashboard/internal/metrics"
	"dashboard/internal/model"
	"dashboard/internal/store"
)

// Directory is the student storage the service reads and writes.
// FindByRegistration returns nil, nil when no student matches.
type Directory interface {
	Create(ctx context.Context, st *model.Student) error
	FindByRegistration(ctx context.Context, registration string) (*model.Student, error)
	Save(ctx context.Context, st *model.Student) error
	List(ctx context.Context) ([]model.Student, error)
}

// DefaultPassingGrade is the minimum grade considered passing.
const DefaultPassingGrade = 5.0

// Service is the single writer of student records. Every read-modify-write runs under mu.
type Service struct {
	mu       sync.Mutex
	dir      Directory
	window   calendar.EditWindow
	passing  float64
	log      *slog.Logger
	validate *validator.Validate
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithEditWindow sets the clock used to lock future dates.
func WithEditWindow(w calendar.EditWindow) Option {
	return func(s *Service) { s.window = w }
}

// WithPassingGrade sets the passing threshold for LaunchGrade.
func WithPassingGrade(g float64) Option {
	return func(s *Service) { s.passing = g }
}

// NewService returns a service backed by dir.
func NewService(dir Directory, opts ...Option) *Service {
	s := &Service{
		dir:      dir,
		window:   calendar.NewEditWindow(nil),
		passing:  DefaultPassingGrade,
		log:      slog.Default(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Today returns the current date of the service clock.
func (s *Service) Today() calendar.Date { return s.window.Today() }

// Registration is the input of Register. Attendance holds marks made on the calendar
// before the first save; they follow the same rules as SaveAttendance.
type Registration struct {
	Name         string             `json:"name" validate:"required"`
	Registration string             `json:"registration" validate:"required"`
	School       string             `json:"school"`
	Class        string             `json:"class"`
	TeachingDays []int              `json:"teaching_days" validate:"required,min=1,dive,min=1,max=5"`
	Attendance   []attendance.Entry `json:"attendance"`
}

func (r *Registration) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Registration = strings.TrimSpace(r.Registration)
	r.School = strings.TrimSpace(r.School)
	r.Class = strings.TrimSpace(r.Class)
}

// Register creates a student. A taken registration code yields a
// *DuplicateRegistrationError carrying the existing record; nothing is overwritten.
func (s *Service) Register(ctx context.Context, r Registration) (*model.Student, error) {
	r.normalize()
	if err := s.validate.Struct(r); err != nil {
		metrics.Registrations.WithLabelValues(metrics.RegistrationInvalid).Inc()
		return nil, fromValidator(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.dir.FindByRegistration(ctx, r.Registration)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.Registrations.WithLabelValues(metrics.RegistrationDuplicate).Inc()
		return nil, &DuplicateRegistrationError{Existing: existing}
	}

	ints := make([]int, len(r.TeachingDays))
	copy(ints, r.TeachingDays)
	st := &model.Student{
		Name:         r.Name,
		Registration: r.Registration,
		School:       r.School,
		Class:        r.Class,
		TeachingDays: store.NormalizeTeachingDays(ints),
	}
	ledger, _, ignored := s.apply(attendance.Ledger{}, st.TeachingDays, r.Attendance)
	st.Attendance = ledger
	if ignored > 0 {
		s.log.Warn("ignored initial attendance entries", "registration", st.Registration, "ignored", ignored)
	}

	if err := s.dir.Create(ctx, st); err != nil {
		if errors.Is(err, store.ErrDuplicateRegistration) {
			metrics.Registrations.WithLabelValues(metrics.RegistrationDuplicate).Inc()
			if existing, ferr := s.dir.FindByRegistration(ctx, r.Registration); ferr == nil && existing != nil {
				return nil, &DuplicateRegistrationError{Existing: existing}
			}
		}
		return nil, err
	}
	metrics.Registrations.WithLabelValues(metrics.RegistrationCreated).Inc()
	s.log.Info("student registered", "registration", st.Registration, "teaching_days", st.TeachingDayNames())
	return st, nil
}

// Find returns the student with the given registration or ErrStudentNotFound.
func (s *Service) Find(ctx context.Context, registration string) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(ctx, registration)
}

func (s *Service) find(ctx context.Context, registration string) (*model.Student, error) {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return nil, ErrStudentNotFound
	}
	st, err := s.dir.FindByRegistration(ctx, registration)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStudentNotFound
	}
	return st, nil
}

// List returns every registered student.
func (s *Service) List(ctx context.Context) ([]model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir.List(ctx)
}

// Query selects a student by name fragment, registration or class.
type Query struct {
	Name         string `form:"name" json:"name"`
	Registration string `form:"registration" json:"registration"`
	Class        string `form:"class" json:"class"`
}

func (q Query) empty() bool {
	return strings.TrimSpace(q.Name) == "" && strings.TrimSpace(q.Registration) == "" && strings.TrimSpace(q.Class) == ""
}

func (q Query) matches(st *model.Student) bool {
	if n := strings.TrimSpace(q.Name); n != "" && strings.Contains(strings.ToLower(st.Name), strings.ToLower(n)) {
		return true
	}
	if r := strings.TrimSpace(q.Registration); r != "" && st.Registration == r {
		return true
	}
	if c := strings.TrimSpace(q.Class); c != "" && st.Class == c {
		return true
	}
	return false
}

// Search returns the first student, in listing order, matching any term of q.
func (s *Service) Search(ctx context.Context, q Query) (*model.Student, error) {
	if q.empty() {
		return nil, invalid("query", "provide name, registration or class")
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if q.matches(&all[i]) {
			return &all[i], nil
		}
	}
	return nil, ErrStudentNotFound
}

// GradeResult is the outcome of LaunchGrade.
type GradeResult struct {
	Student  *model.Student `json:"student"`
	Grade    float64        `json:"grade"`
	Standing string         `json:"standing"`
}

// Standings.
const (
	StandingPassing = "passing"
	StandingFailing = "failing"
)

// LaunchGrade records a grade in [0, 10] for the student.
func (s *Service) LaunchGrade(ctx context.Context, registration string, grade float64) (GradeResult, error) {
	if err := s.validate.Var(grade, "gte=0,lte=10"); err != nil {
		return GradeResult{}, invalid("grade", "must be between 0 and 10")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.find(ctx, registration)
	if err != nil {
		return GradeResult{}, err
	}
	st.Grade = &grade
	if err := s.dir.Save(ctx, st); err != nil {
		return GradeResult{}, err
	}

	standing := StandingFailing
	if grade >= s.passing {
		standing = StandingPassing
	}
	s.log.Info("grade launched", "registration", st.Registration, "grade", grade, "standing", standing)
	return GradeResult{Student: st, Grade: grade, Standing: standing}, nil
}

// UnassignedClass labels students registered without a class.
const UnassignedClass = "Unassigned"

// ClassOverview groups students by class label, sorted by class name.
func (s *Service) ClassOverview(ctx context.Context) ([]model.ClassStats, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	byClass := map[string]*model.ClassStats{}
	for _, st := range all {
		name := st.Class
		if name == "" {
			name = UnassignedClass
		}
		cs, ok := byClass[name]
		if !ok {
			cs = &model.ClassStats{ClassName: name}
			byClass[name] = cs
		}
		cs.TotalStudents++
		cs.Registrations = append(cs.Registrations, st.Registration)
	}

	out := make([]model.ClassStats, 0, len(byClass))
	for _, cs := range byClass {
		out = append(out, *cs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassName < out[j].ClassName })
	return out, nil
}

// Export writes the student's month calendar as a spreadsheet to w.
func (s *Service) Export(ctx context.Context, registration string, m calendar.Month, w io.Writer) error {
	sc, err := s.Calendar(ctx, registration, m)
	if err != nil {
		return err
	}
	if err := export.Calendar(w, sc.Student, sc.Grid); err != nil {
		return err
	}
	metrics.Exports.Inc()
	s.log.Info("calendar exported", "registration", sc.Student.Registration, "month", m.String())
	return nil
}
