package model

import "time"

// RegistrationNumber is an allow-listed student registration number.
// swagger:model RegistrationNumber
type RegistrationNumber struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Number    string    `gorm:"size:32;uniqueIndex;not null" json:"registrationNumber"`
	CreatedAt time.Time `json:"createdAt"`
}

func (RegistrationNumber) TableName() string {
	return "registration_numbers"
}
