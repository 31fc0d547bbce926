package models

type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "PENDING"
	RegistrationConfirmed  RegistrationStatus = "CONFIRMED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
	RegistrationWaitlisted RegistrationStatus = "WAITLISTED"
)

var registrationStatusLabels = map[RegistrationStatus]string{
	RegistrationPending:    "Pending",
	RegistrationConfirmed:  "Confirmed",
	RegistrationCancelled:  "Cancelled",
	RegistrationWaitlisted: "Waitlisted",
}

func (s RegistrationStatus) Label() string {
	if l, ok := registrationStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Active is true for every status that still holds (or waits for) a seat.
func (s RegistrationStatus) Active() bool {
	return s != RegistrationCancelled && s != ""
}

type Registration struct {
	Base
	UserID  string             `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_event" json:"userId"`
	EventID string             `gorm:"type:varchar(36);not null;uniqueIndex:idx_user_event;index" json:"eventId"`
	Status  RegistrationStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	User    *User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Event   *Event             `gorm:"foreignKey:EventID" json:"event,omitempty"`
}
