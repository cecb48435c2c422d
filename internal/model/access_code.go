package model

import "time"

type CodeType string

const (
	CodeSupervisor  CodeType = "supervisor"
	CodeCoordinator CodeType = "coordinator"
)

// Length is the fixed digit count of the code type, 0 when unknown.
func (t CodeType) Length() int {
	switch t {
	case CodeSupervisor:
		return 6
	case CodeCoordinator:
		return 10
	}
	return 0
}

// CodeTypeForRole maps a code-gated role to its code type.
func CodeTypeForRole(role UserRole) (CodeType, bool) {
	switch role {
	case Supervisor:
		return CodeSupervisor, true
	case Coordinator:
		return CodeCoordinator, true
	}
	return "", false
}

// AccessCode is an admin-issued, single-use supervisor or coordinator ID.
// swagger:model AccessCode
type AccessCode struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Code      string     `gorm:"size:16;uniqueIndex;not null" json:"code"`
	Type      CodeType   `gorm:"type:enum('supervisor','coordinator');not null;index" json:"type"`
	Used      bool       `gorm:"default:false;index" json:"used"`
	UsedBy    *string    `gorm:"size:100" json:"usedBy,omitempty"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (AccessCode) TableName() string {
	return "access_codes"
}
