package model

import "time"

// JournalEntry is a dated learning record owned by a user.  Date is kept as
// the literal YYYY-MM-DD string the user entered, so exact-date filtering and
// lexical ordering agree.  CourseName is filled from a join on reads.
type JournalEntry struct {
	ID         uint64    `db:"id" json:"id"`
	OwnerID    uint64    `db:"owner_id" json:"-"`
	CourseID   *uint64   `db:"course_id" json:"course_id"`
	CourseName string    `db:"course_name" json:"course_name,omitempty"`
	Date       string    `db:"entry_date" json:"date"`
	Subject    string    `db:"subject" json:"subject"`
	Learnt     string    `db:"learnt" json:"learnt"`
	Challenges string    `db:"challenges" json:"challenges"`
	Schedule   string    `db:"schedule" json:"schedule"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// EntryFilter narrows a journal listing.  Empty fields do not filter; set
// fields are combined with AND.
type EntryFilter struct {
	Date    string // exact YYYY-MM-DD match
	Subject string // case-insensitive substring of the subject
}
