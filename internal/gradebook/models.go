package gradebook

// PassPercentage is the fixed cutoff separating Pass from Fail.
const PassPercentage = 40.0

// TopPerformerCount bounds AnalysisData.TopPerformers.
const TopPerformerCount = 3

type Status string

const (
	StatusPass Status = "Pass"
	StatusFail Status = "Fail"
)

type Student struct {
	ID           string             `json:"id"`
	EnrollmentNo string             `json:"enrollment_no"`
	Name         string             `json:"name"`
	Marks        map[string]float64 `json:"marks"` // subject -> raw score
}

// Config is the subject list and uniform max marks for one analysis run.
type Config struct {
	Subjects []string `json:"subjects"`
	MaxMarks float64  `json:"max_marks"`
}

type StudentResult struct {
	Student    Student `json:"student"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
	Status     Status  `json:"status"`
}

type SubjectStats struct {
	Subject string  `json:"subject"`
	Average float64 `json:"average"` // percent of MaxMarks
	Highest float64 `json:"highest"` // raw
	Lowest  float64 `json:"lowest"`  // raw
}

type AnalysisData struct {
	Results        []StudentResult `json:"results"` // roster order
	SubjectStats   []SubjectStats  `json:"subject_stats"`
	TopPerformers  []StudentResult `json:"top_performers"`
	ClassAverage   float64         `json:"class_average"`
	PassPercentage float64         `json:"pass_percentage"`
	MaxMarks       float64         `json:"max_marks"`
}

// Mark returns the raw mark for subject, 0 when none was recorded.
func (s Student) Mark(subject string) float64 {
	return s.Marks[subject]
}
