package model

import "time"

// Course is a label owned by a user that journal entries can be filed
// under.  Code is optional; when present it is unique per owner.
type Course struct {
	ID        uint64    `db:"id" json:"id"`
	OwnerID   uint64    `db:"owner_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
