package model

import "time"

// Category groups tasks under a user-chosen label. Color, when set, is a
// hex color code of the form #RRGGBB.
type Category struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color,omitempty" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
