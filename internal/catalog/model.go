package catalog

// Table names on the backend.
const (
	TableDegrees          = "degrees"
	TableUniversities     = "universities"
	TableGroups           = "groups"
	TableCourses          = "courses"
	TableExchangePrograms = "exchange_programs"
)

type Degree struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code,omitempty"`
	InstitutionID int    `json:"institution_id,omitempty"`
}

type University struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Country       string `json:"country,omitempty"`
	City          string `json:"city,omitempty"`
	Website       string `json:"website,omitempty"`
	InstitutionID int    `json:"institution_id,omitempty"`
}

type Group struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	DegreeID      int    `json:"degree_id"`
	Year          int    `json:"year,omitempty"`
	InstitutionID int    `json:"institution_id,omitempty"`
}

type Course struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"` // HTML
	Instructor  string  `json:"instructor,omitempty"`
	Credits     float64 `json:"credits,omitempty"`
	MaxStudents int     `json:"max_students,omitempty"`
	GroupID     int     `json:"group_id"`
}

type ExchangeProgram struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	GroupID       int    `json:"group_id"`
	UniversityIDs []int  `json:"university_ids,omitempty"`
	Deadline      string `json:"deadline,omitempty"`
	MaxSelections int    `json:"max_selections,omitempty"`
}
