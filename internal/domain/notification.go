package domain

import (
	"fmt"
	"time"
)

// NotificationKind enumerates the user-facing events raised by progress
// tracking.
type NotificationKind string

const (
	NotifyLessonCompleted NotificationKind = "lesson_completed"
	NotifyProgressUpdated NotificationKind = "progress_updated"
	NotifyCourseCompleted NotificationKind = "course_completed"
	NotifySyncFailed      NotificationKind = "sync_failed"
)

type Notification struct {
	Kind       NotificationKind `json:"kind"`
	CourseID   string           `json:"courseId"`
	LessonID   string           `json:"lessonId,omitempty"`
	LessonName string           `json:"lessonName,omitempty"`
	Progress   float64          `json:"progress"`
	Error      string           `json:"error,omitempty"`
	At         time.Time        `json:"at"`
}

// Message renders the notification as the one-line text shown to learners.
func (n Notification) Message() string {
	switch n.Kind {
	case NotifyLessonCompleted:
		if n.LessonName != "" {
			return fmt.Sprintf("Lesson completed: %s", n.LessonName)
		}
		return fmt.Sprintf("Lesson completed: %s", n.LessonID)
	case NotifyProgressUpdated:
		return fmt.Sprintf("Progress updated: %.1f%%", n.Progress)
	case NotifyCourseCompleted:
		return "🎉 Congratulations! You have completed the course!"
	case NotifySyncFailed:
		return "Failed to update progress. Please try again."
	default:
		return string(n.Kind)
	}
}
