package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/gradewise/internal/gradebook"
	"github.com/mind-engage/gradewise/internal/rbac"
	syncx "github.com/mind-engage/gradewise/internal/sync"
)

var (
	ErrWrongPhase      = errors.New("operation not allowed in current phase")
	ErrStudentNotFound = errors.New("student not found")
	ErrUnknownSubject  = errors.New("subject not configured")
	ErrPendingError    = errors.New("resolve the reported error before continuing")
)

const msgSubmitDuplicates = "Cannot proceed: Duplicate enrollment numbers detected."

// EventLog records committed actions. *syncx.EventRepo satisfies it.
type EventLog interface {
	Append(ctx context.Context, e syncx.Event) error
}

type Option func(*Service)

func WithEventLog(l EventLog) Option         { return func(s *Service) { s.events = l } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

// Service drives the configure → enter → review flow over a Store.
// Read-modify-write cycles are serialized so concurrent edits to the same
// class are applied one at a time.
type Service struct {
	mu     sync.Mutex
	store  Store
	events EventLog
	now    func() time.Time
	newID  func() string
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context) (Class, error) {
	c := Class{
		ID:           s.newID(),
		Phase:        PhaseSetup,
		Subjects:     append([]string(nil), DefaultSubjects...),
		MaxMarks:     DefaultMaxMarks,
		StudentCount: DefaultStudentCount,
		Students:     []gradebook.Student{},
		UpdatedAt:    s.now().Unix(),
	}
	if err := s.store.Put(ctx, c); err != nil {
		return Class{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (Class, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Class, error) {
	return s.store.List(ctx)
}

// Setup applies the configuration and moves the class to data entry. An empty
// roster is filled with studentCount default rows.
func (s *Service) Setup(ctx context.Context, id string, subjects []string, studentCount int, maxMarks float64) (Class, error) {
	subjects = gradebook.NormalizeSubjects(subjects)
	if len(subjects) == 0 || studentCount <= 0 {
		return Class{}, &gradebook.ValidationError{Kind: gradebook.ErrInvalidConfig, Row: -1,
			Detail: "at least one subject and a positive class size are required"}
	}
	if err := gradebook.ValidateConfig(gradebook.Config{Subjects: subjects, MaxMarks: maxMarks}); err != nil {
		return Class{}, err
	}
	return s.update(ctx, id, func(c *Class) error {
		if c.Phase != PhaseSetup {
			return ErrWrongPhase
		}
		c.Subjects, c.StudentCount, c.MaxMarks = subjects, studentCount, maxMarks
		if len(c.Students) == 0 {
			c.Students = s.defaultRoster(subjects, studentCount)
		}
		c.Phase, _ = c.Phase.Next()
		c.clearError()
		return nil
	})
}

func (s *Service) defaultRoster(subjects []string, n int) []gradebook.Student {
	out := make([]gradebook.Student, n)
	for i := range out {
		out[i] = s.newStudent(subjects, i+1)
	}
	return out
}

// newStudent builds row seq (1-based) with enrollment "YYYY-NNN".
func (s *Service) newStudent(subjects []string, seq int) gradebook.Student {
	marks := make(map[string]float64, len(subjects))
	for _, sub := range subjects {
		marks[sub] = 0
	}
	return gradebook.Student{
		ID:           s.newID(),
		EnrollmentNo: fmt.Sprintf("%d-%03d", s.now().Year(), seq),
		Name:         fmt.Sprintf("Student %d", seq),
		Marks:        marks,
	}
}

func (s *Service) AddStudent(ctx context.Context, id string) (Class, error) {
	return s.update(ctx, id, func(c *Class) error {
		if c.Phase != PhaseEntry {
			return ErrWrongPhase
		}
		c.Students = append(c.Students, s.newStudent(c.Subjects, len(c.Students)+1))
		refreshEnrollmentError(c)
		return nil
	})
}

func (s *Service) RemoveStudent(ctx context.Context, id, studentID string) (Class, error) {
	return s.update(ctx, id, func(c *Class) error {
		if c.Phase != PhaseEntry {
			return ErrWrongPhase
		}
		i := c.studentIndex(studentID)
		if i < 0 {
			return ErrStudentNotFound
		}
		c.Students = append(c.Students[:i], c.Students[i+1:]...)
		refreshEnrollmentError(c)
		return nil
	})
}

// RenameStudent, SetEnrollment and SetMark only accept edits during data entry.
func (s *Service) RenameStudent(ctx context.Context, id, studentID, name string) (Class, error) {
	return s.update(ctx, id, func(c *Class) error {
		i, err := c.editableRow(studentID)
		if err != nil {
			return err
		}
		c.Students[i].Name = name
		return nil
	})
}

// SetEnrollment always applies the edit. A duplicate is reported through the
// returned *gradebook.ValidationError and Class.Error but does not block
// editing.
func (s *Service) SetEnrollment(ctx context.Context, id, studentID, enrollment string) (Class, error) {
	var live error
	c, err := s.update(ctx, id, func(c *Class) error {
		i, err := c.editableRow(studentID)
		if err != nil {
			return err
		}
		if _, dup := gradebook.EnrollmentConflict(c.Students, studentID, enrollment); dup {
			live = &gradebook.ValidationError{Kind: gradebook.ErrDuplicateEnrollment, Value: enrollment, Row: i}
			c.setError(errKindEnrollment, live.Error())
		}
		c.Students[i].EnrollmentNo = enrollment
		if live == nil {
			refreshEnrollmentError(c)
		}
		return nil
	})
	if err != nil {
		return Class{}, err
	}
	return c, live
}

// SetMark parses raw and stores it. Entries above max marks are flagged and
// not stored; the returned class still carries the error message.
func (s *Service) SetMark(ctx context.Context, id, studentID, subject, raw string) (Class, error) {
	var live error
	c, err := s.update(ctx, id, func(c *Class) error {
		i, err := c.editableRow(studentID)
		if err != nil {
			return err
		}
		if err := c.checkSubject(subject); err != nil {
			return err
		}
		v, err := gradebook.ParseMark(raw, c.MaxMarks)
		if err != nil {
			live = err
			c.setError(errKindMark, err.Error())
			return nil
		}
		if c.Students[i].Marks == nil {
			c.Students[i].Marks = map[string]float64{}
		}
		c.Students[i].Marks[subject] = v
		if c.ErrorKind == errKindMark {
			c.clearError()
		}
		refreshEnrollmentError(c)
		return nil
	})
	if err != nil {
		return Class{}, err
	}
	return c, live
}

// ReplaceRoster swaps in an imported roster. Students without an ID get one.
func (s *Service) ReplaceRoster(ctx context.Context, id string, students []gradebook.Student) (Class, error) {
	return s.update(ctx, id, func(c *Class) error {
		if c.Phase != PhaseEntry {
			return ErrWrongPhase
		}
		students := append([]gradebook.Student(nil), students...)
		for i := range students {
			if strings.TrimSpace(students[i].ID) == "" {
				students[i].ID = s.newID()
			}
			if students[i].Marks == nil {
				students[i].Marks = map[string]float64{}
			}
		}
		c.Students = students
		c.clearError()
		if err := gradebook.CheckMarks(c.Students, c.Config()); err != nil {
			c.setError(errKindMark, err.Error())
		}
		refreshEnrollmentError(c)
		return nil
	})
}

// Submit re-validates the roster and moves the class to the review phase.
func (s *Service) Submit(ctx context.Context, id string) (Class, error) {
	var verr error
	c, err := s.update(ctx, id, func(c *Class) error {
		if c.Phase != PhaseEntry {
			return ErrWrongPhase
		}
		if res := gradebook.ValidateRoster(c.Students); !res.OK {
			c.setError(errKindEnrollment, msgSubmitDuplicates)
			verr = res.Err()
			return nil
		}
		if err := gradebook.CheckMarks(c.Students, c.Config()); err != nil {
			c.setError(errKindMark, err.Error())
			verr = err
			return nil
		}
		if c.Error != "" {
			verr = fmt.Errorf("%w: %s", ErrPendingError, c.Error)
			return nil
		}
		c.Phase, _ = c.Phase.Next()
		return nil
	})
	if err != nil {
		return Class{}, err
	}
	if verr != nil {
		return c, verr
	}
	s.record(ctx, syncx.TypeClassSubmitted, c)
	return c, nil
}

func (s *Service) Back(ctx context.Context, id string) (Class, error) {
	return s.update(ctx, id, func(c *Class) error {
		prev, ok := c.Phase.Prev()
		if !ok {
			return ErrWrongPhase
		}
		c.Phase = prev
		return nil
	})
}

// Reset discards the class snapshot.
func (s *Service) Reset(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, syncx.TypeClassReset, c)
	return nil
}

// Analysis computes the analysis for the stored roster. The duplicate and
// mark checks are repeated here since the class may not have been submitted.
func (s *Service) Analysis(ctx context.Context, id string) (gradebook.AnalysisData, Class, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return gradebook.AnalysisData{}, Class{}, err
	}
	if err := gradebook.ValidateRoster(c.Students).Err(); err != nil {
		return gradebook.AnalysisData{}, c, err
	}
	if err := gradebook.CheckMarks(c.Students, c.Config()); err != nil {
		return gradebook.AnalysisData{}, c, err
	}
	data, err := gradebook.AnalyzeChecked(c.Students, c.Config())
	return data, c, err
}

func (s *Service) update(ctx context.Context, id string, fn func(c *Class) error) (Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if err := fn(&c); err != nil {
		return Class{}, err
	}
	c.UpdatedAt = s.now().Unix()
	if err := s.store.Put(ctx, c); err != nil {
		return Class{}, err
	}
	return c, nil
}

// record appends to the event log; failures are logged, never returned.
func (s *Service) record(ctx context.Context, typ string, c Class) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"phase":    c.Phase,
		"subjects": c.Subjects,
		"students": len(c.Students),
	}
	if actor := rbac.SubjectFromContext(ctx); actor != "" {
		payload["actor"] = actor
	}
	if typ == syncx.TypeClassSubmitted {
		data := gradebook.Analyze(c.Students, c.Config())
		payload["class_average"] = data.ClassAverage
		payload["pass_percentage"] = data.PassPercentage
	}
	buf, _ := json.Marshal(payload)
	if err := s.events.Append(ctx, syncx.Event{Type: typ, Key: c.ID, DataJSON: string(buf)}); err != nil {
		log.Printf("event log append %s %s: %v", typ, c.ID, err)
	}
}

// refreshEnrollmentError keeps an enrollment error only while a duplicate
// is still present.
func refreshEnrollmentError(c *Class) {
	res := gradebook.ValidateRoster(c.Students)
	switch {
	case !res.OK:
		c.setError(errKindEnrollment, res.Err().Error())
	case c.ErrorKind == errKindEnrollment:
		c.clearError()
	}
}

// CheckSubjects reports the first of subjects that class id does not
// configure, so a multi-field edit can be rejected before any part of it is
// applied.
func (s *Service) CheckSubjects(ctx context.Context, id string, subjects []string) error {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	for _, sub := range subjects {
		if err := c.checkSubject(sub); err != nil {
			return err
		}
	}
	return nil
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
