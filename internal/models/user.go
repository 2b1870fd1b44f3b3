package models

type Role string

const (
	RoleDirector      Role = "director"
	RoleHeadArchivist Role = "head_archivist"
	RoleArchivist     Role = "archivist"
)

func (r Role) Label() string {
	switch r {
	case RoleDirector:
		return "مدير إدارة الإنتاج"
	case RoleHeadArchivist:
		return "رئيس قسم الأرشيف"
	case RoleArchivist:
		return "موظف أرشيف"
	}
	return string(r)
}

// User is the operator logged into the current session.
type User struct {
	ID       string `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	FullName string `json:"full_name" yaml:"full_name"`
	Role     Role   `json:"role" yaml:"role"`
}
