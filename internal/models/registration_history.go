package models

// RegistrationHistory is an append-only log of status changes.
type RegistrationHistory struct {
	Base
	RegistrationID string             `gorm:"type:varchar(36);not null;index" json:"registrationId"`
	UserID         string             `gorm:"type:varchar(36);not null;index" json:"userId"`
	EventID        string             `gorm:"type:varchar(36);not null" json:"eventId"`
	Status         RegistrationStatus `gorm:"type:varchar(20);not null" json:"status"`
	Reason         string             `json:"reason"`
}
