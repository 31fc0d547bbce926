package models

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventPublished EventStatus = "PUBLISHED"
	EventCancelled EventStatus = "CANCELLED"
	EventCompleted EventStatus = "COMPLETED"
)

var eventStatusLabels = map[EventStatus]string{
	EventDraft:     "Draft",
	EventPublished: "Published",
	EventCancelled: "Cancelled",
	EventCompleted: "Completed",
}

func (s EventStatus) Valid() bool {
	_, ok := eventStatusLabels[s]
	return ok
}

func (s EventStatus) Label() string {
	if l, ok := eventStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

type Event struct {
	Base
	Title        string      `gorm:"not null" json:"title"`
	Slug         string      `gorm:"uniqueIndex;not null" json:"slug"`
	Description  *string     `json:"description,omitempty"`
	Location     string      `gorm:"not null;index" json:"location"`
	StartDate    time.Time   `gorm:"not null;index" json:"startDate"`
	EndDate      *time.Time  `json:"endDate,omitempty"`
	IsPublic     bool        `gorm:"index" json:"isPublic"`
	MaxAttendees *int        `json:"maxAttendees,omitempty"`
	Price        *float64    `json:"price,omitempty"`
	Currency     string      `gorm:"type:varchar(3);not null" json:"currency"`
	ImageURL     *string     `json:"imageUrl,omitempty"`
	Status       EventStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	OrganizerID  string      `gorm:"type:varchar(36);not null;index" json:"organizerId"`
	Organizer    *User       `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
	CategoryID   *string     `gorm:"type:varchar(36);index" json:"categoryId,omitempty"`
	Category     *Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// IsFree treats a missing price the same as zero.
func (e Event) IsFree() bool {
	return e.Price == nil || *e.Price == 0
}
