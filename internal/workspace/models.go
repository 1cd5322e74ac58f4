package workspace

import (
	"fmt"
	"maps"

	"github.com/mind-engage/gradewise/internal/gradebook"
)

type Phase string

const (
	PhaseSetup   Phase = "SETUP"
	PhaseEntry   Phase = "ENTRY"
	PhaseResults Phase = "RESULTS"
)

// Next returns the following phase; RESULTS is terminal.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseSetup:
		return PhaseEntry, true
	case PhaseEntry:
		return PhaseResults, true
	}
	return p, false
}

// Prev returns the preceding phase; SETUP is the first.
func (p Phase) Prev() (Phase, bool) {
	switch p {
	case PhaseResults:
		return PhaseEntry, true
	case PhaseEntry:
		return PhaseSetup, true
	}
	return p, false
}

func (p Phase) Label() string {
	switch p {
	case PhaseSetup:
		return "Step 1: Configuration"
	case PhaseEntry:
		return "Step 2: Data Entry"
	case PhaseResults:
		return "Step 3: Analysis"
	}
	return ""
}

func (p Phase) Valid() bool { return p.Label() != "" }

// Defaults used for a freshly created class.
var (
	DefaultSubjects     = []string{"Mathematics", "Science"}
	DefaultStudentCount = 5
	DefaultMaxMarks     = 100.0
)

// error kinds tracked alongside Class.Error
const (
	errKindEnrollment = "enrollment"
	errKindMark       = "mark"
)

// Class is the persisted working snapshot of one class: the wizard phase,
// the configuration and the roster being edited.
type Class struct {
	ID           string              `json:"id"`
	Phase        Phase               `json:"phase"`
	Subjects     []string            `json:"subjects"`
	MaxMarks     float64             `json:"max_marks"`
	StudentCount int                 `json:"student_count"`
	Students     []gradebook.Student `json:"students"`
	Error        string              `json:"error,omitempty"`
	ErrorKind    string              `json:"error_kind,omitempty"`
	UpdatedAt    int64               `json:"updated_at"`
}

func (c Class) Config() gradebook.Config {
	return gradebook.Config{Subjects: c.Subjects, MaxMarks: c.MaxMarks}
}

// Clone returns a deep copy so stores never share slices or maps with callers.
func (c Class) Clone() Class {
	out := c
	out.Subjects = append([]string(nil), c.Subjects...)
	if c.Students != nil {
		out.Students = make([]gradebook.Student, len(c.Students))
		for i, s := range c.Students {
			s.Marks = maps.Clone(s.Marks)
			out.Students[i] = s
		}
	}
	return out
}

func (c *Class) studentIndex(id string) int {
	for i := range c.Students {
		if c.Students[i].ID == id {
			return i
		}
	}
	return -1
}

// editableRow returns the row index of studentID if rows may be edited.
func (c *Class) editableRow(studentID string) (int, error) {
	if c.Phase != PhaseEntry {
		return -1, ErrWrongPhase
	}
	i := c.studentIndex(studentID)
	if i < 0 {
		return -1, ErrStudentNotFound
	}
	return i, nil
}

func (c *Class) checkSubject(subject string) error {
	if !containsString(c.Subjects, subject) {
		return fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}
	return nil
}

// decoded checks a snapshot read back from a store.
func (c Class) decoded() (Class, error) {
	if !c.Phase.Valid() {
		return Class{}, fmt.Errorf("class %s: unknown phase %q", c.ID, c.Phase)
	}
	return c, nil
}

func (c *Class) setError(kind, msg string) {
	c.ErrorKind, c.Error = kind, msg
}

func (c *Class) clearError() {
	c.ErrorKind, c.Error = "", ""
}
