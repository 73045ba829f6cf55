package models

import "time"

// StatusChanged is emitted after a committed lifecycle transition. Delivery
// is best-effort and never blocks or rolls back the transition.
type StatusChanged struct {
	StudentID          string             `json:"student_id"`
	RegistrationNumber string             `json:"registration_number"`
	OldStatus          RegistrationStatus `json:"old_status"`
	NewStatus          RegistrationStatus `json:"new_status"`
	OccurredAt         time.Time          `json:"occurred_at"`
}
