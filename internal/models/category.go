package models

type Category struct {
	Base
	Name  string `gorm:"uniqueIndex;not null" json:"name"`
	Slug  string `gorm:"uniqueIndex;not null" json:"slug"`
	Color string `json:"color"`
}

// DefaultCategories are inserted on first start.
var DefaultCategories = []Category{
	{Name: "Conference", Slug: "conference", Color: "#3b82f6"},
	{Name: "Workshop", Slug: "workshop", Color: "#14b8a6"},
	{Name: "Networking", Slug: "networking", Color: "#f97316"},
	{Name: "Social", Slug: "social", Color: "#22c55e"},
	{Name: "Sports", Slug: "sports", Color: "#f59e0b"},
	{Name: "Arts & Culture", Slug: "arts-culture", Color: "#ef4444"},
}
