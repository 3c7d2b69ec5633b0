package models

import "time"

// Notice is a school-wide or audience-scoped announcement.
type Notice struct {
	ID        string     `db:"id" json:"id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Audience  string     `db:"audience" json:"audience"`
	PublishAt time.Time  `db:"publish_at" json:"publish_at"`
	CreatedBy *string    `db:"created_by" json:"created_by,omitempty"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// NoticeFilter narrows notice listings.
type NoticeFilter struct {
	Audience string
	Page     int
	PageSize int
}
