package model

import "time"

// Review is a student's rating of their supervisor.
// swagger:model Review
type Review struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	StudentID        uint      `gorm:"not null;uniqueIndex" json:"studentId"`
	StudentName      string    `gorm:"size:100" json:"studentName"`
	StudentRegNumber string    `gorm:"size:32" json:"studentRegNumber"`
	SupervisorID     string    `gorm:"size:16;index" json:"supervisorId"`
	SupervisorName   string    `gorm:"size:100" json:"supervisorName"`
	Rating           int       `gorm:"not null" json:"rating"`
	Text             string    `gorm:"column:review;type:text" json:"review"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (Review) TableName() string {
	return "reviews"
}
