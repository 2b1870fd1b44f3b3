package models

// Person is a staff member who can receive equipment.
type Person struct {
	ID         string `json:"id" yaml:"id"`
	FullName   string `json:"full_name" yaml:"full_name"`
	JobTitle   string `json:"job_title" yaml:"job_title"`
	Department string `json:"department" yaml:"department"`
	Phone      string `json:"phone" yaml:"phone"`
	IsActive   bool   `json:"is_active" yaml:"is_active"`
	Notes      string `json:"notes,omitempty" yaml:"notes"`
}
