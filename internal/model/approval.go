package model

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// SchoolChangeApproval is kept after a decision as an audit trail.
// swagger:model SchoolChangeApproval
type SchoolChangeApproval struct {
	ID               uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID        uint           `gorm:"not null;index" json:"studentId"`
	StudentName      string         `gorm:"size:100" json:"studentName"`
	StudentRegNumber string         `gorm:"size:32" json:"studentRegNumber"`
	OldSchool        string         `gorm:"size:255" json:"oldSchool"`
	NewSchool        string         `gorm:"size:255;not null" json:"newSchool"`
	SupervisorID     string         `gorm:"size:16;index:idx_approval_supervisor_status" json:"supervisorId"`
	Status           ApprovalStatus `gorm:"type:enum('pending','approved','rejected');default:'pending';index:idx_approval_supervisor_status" json:"status"`
	ReviewedAt       *time.Time     `json:"reviewedAt,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
}

func (SchoolChangeApproval) TableName() string {
	return "school_change_approvals"
}
