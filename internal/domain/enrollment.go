package domain

import "time"

// Enrollment is the server-side record of a learner's course progress.
type Enrollment struct {
	ID        string
	CourseID  string
	Title     string
	Progress  float64
	Completed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgressInput is the only payload ever sent to the remote progress
// endpoint: the aggregate percentage.
type ProgressInput struct {
	Progress float64 `json:"progress"`
}
