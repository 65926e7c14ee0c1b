package testutil

import (
	"fmt"
	"time"

	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/google/uuid"
)

// Catalog options
type CatalogOption func(*domain.Catalog)

func WithTitle(title string) CatalogOption {
	return func(c *domain.Catalog) {
		c.Title = title
	}
}

// WithModule appends a module holding the given lesson IDs, indexed in order.
func WithModule(moduleID string, lessonIDs ...string) CatalogOption {
	return func(c *domain.Catalog) {
		m := &domain.Module{ID: moduleID, Name: "Module " + moduleID}
		for i, id := range lessonIDs {
			m.Lessons = append(m.Lessons, &domain.Lesson{
				ID:              id,
				Name:            "Lesson " + id,
				Index:           i,
				VideoURL:        fmt.Sprintf("https://cdn.example.com/%s.mp4", id),
				DurationSeconds: 600,
			})
		}
		c.Modules = append(c.Modules, m)
	}
}

// NewTestCatalog builds a catalog from options. Without module options it is
// the 2x2 course: module A with L1, L2 and module B with L3, L4.
func NewTestCatalog(courseID string, opts ...CatalogOption) *domain.Catalog {
	c := &domain.Catalog{CourseID: courseID, Title: "Course " + courseID}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.Modules) == 0 {
		WithModule("A", "L1", "L2")(c)
		WithModule("B", "L3", "L4")(c)
	}
	return c
}

// Session options
type SessionOption func(*domain.Session)

func WithOrganization(orgID string) SessionOption {
	return func(s *domain.Session) {
		s.OrganizationID = orgID
	}
}

func WithRole(role string) SessionOption {
	return func(s *domain.Session) {
		s.Role = role
	}
}

func WithExpiry(t time.Time) SessionOption {
	return func(s *domain.Session) {
		s.ExpiresAt = &t
	}
}

func WithoutExpiry() SessionOption {
	return func(s *domain.Session) {
		s.ExpiresAt = nil
	}
}

// NewTestSession returns a session valid for one hour.
func NewTestSession(userID string, opts ...SessionOption) *domain.Session {
	now := time.Now().UTC()
	exp := now.Add(time.Hour)
	s := &domain.Session{
		ID:          uuid.New().String(),
		UserID:      userID,
		Email:       userID + "@example.com",
		AccessToken: "token-" + userID,
		ExpiresAt:   &exp,
		CreatedAt:   now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
