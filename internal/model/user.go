package model

import (
	"time"
)

type UserRole string

const (
	Student     UserRole = "student"
	Supervisor  UserRole = "supervisor"
	Coordinator UserRole = "coordinator"
	Admin       UserRole = "admin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Supervisor, Coordinator, Admin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"type:enum('student','supervisor','coordinator','admin');not null;index" json:"role"`

	// Role identifiers. Students also carry the SupervisorID of the supervisor they reference.
	StudentRegNumber string `gorm:"size:32;index" json:"studentRegNumber,omitempty"`
	SupervisorID     string `gorm:"size:16;index" json:"supervisorId,omitempty"`
	CoordinatorID    string `gorm:"size:16;index" json:"coordinatorId,omitempty"`
	Department       string `gorm:"size:150" json:"department,omitempty"`

	TeachingPracticeSchool string   `gorm:"size:255" json:"teachingPracticeSchool,omitempty"`
	Score                  *float64 `json:"score,omitempty"`

	Suspended   bool       `gorm:"default:false" json:"suspended"`
	SuspendedAt *time.Time `json:"suspendedAt,omitempty"`
	PhotoURL    string     `gorm:"size:255" json:"photoURL,omitempty"`

	WelcomeShown  bool       `gorm:"default:false" json:"welcomeShown"`
	LastWelcomeAt *time.Time `json:"lastWelcomeAt,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`

	// score the congratulation dialog was last acknowledged for
	CongratulatedScore *float64 `json:"-"`
}

func (User) TableName() string {
	return "users"
}

// RoleIdentifier returns the identifier the role signs in with.
func (u *User) RoleIdentifier() string {
	switch u.Role {
	case Student:
		return u.StudentRegNumber
	case Supervisor:
		return u.SupervisorID
	case Coordinator:
		return u.CoordinatorID
	}
	return u.Email
}

func (u *User) HasScore() bool {
	return u.Score != nil
}
