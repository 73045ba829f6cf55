package models

// RegistrationSequence is the per-year monotonic counter backing registration
// numbers. One row per calendar year, created lazily on first use; mutated
// only through an atomic increment-and-fetch.
type RegistrationSequence struct {
	Year       int `db:"year" json:"year"`
	LastIssued int `db:"last_issued" json:"last_issued"`
}
