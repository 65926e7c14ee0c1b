package graphql

import (
	"time"

	"github.com/alexanderramin/coursetrack/internal/domain"
)

const (
	opUpdateProgress = "UpdateCourseEnrollment"
	opCourseModules  = "GetCourseModules"
	opEnrollment     = "GetOrganizationCourseById"
	opLogin          = "Login"
)

const updateCourseEnrollmentMutation = `
mutation UpdateCourseEnrollment($courseId: String!, $updateCourseEnrollmentInput: UpdateCourseEnrollmentInput!) {
  updateCourseEnrollment(courseId: $courseId, updateCourseEnrollmentInput: $updateCourseEnrollmentInput) {
    _id
    progress
    completed
  }
}`

const getModulesForCourseQuery = `
query GetCourseModules($courseId: String!) {
  getModulesForCourse(courseId: $courseId) {
    _id
    name
    summary
    lessons {
      _id
      name
      index
      videoUrl
      contentUrl
      imageUrl
      extraResourcesUrl
    }
  }
}`

const getCourseByIDQuery = `
query GetOrganizationCourseById($courseId: String!) {
  getCourseById(courseId: $courseId) {
    _id
    progress
    completed
    createdAt
    updatedAt
    course {
      _id
      title
    }
  }
}`

const loginMutation = `
mutation Login($input: LogintInput!) {
  login(loginInput: $input) {
    accessToken
  }
}`

type wireLesson struct {
	ID                string `json:"_id"`
	Name              string `json:"name"`
	Index             int    `json:"index"`
	VideoURL          string `json:"videoUrl"`
	ContentURL        string `json:"contentUrl"`
	ImageURL          string `json:"imageUrl"`
	ExtraResourcesURL string `json:"extraResourcesUrl"`
}

type wireModule struct {
	ID      string        `json:"_id"`
	Name    string        `json:"name"`
	Summary string        `json:"summary"`
	Lessons []*wireLesson `json:"lessons"`
}

type wireEnrollment struct {
	ID        string    `json:"_id"`
	Progress  float64   `json:"progress"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Course    struct {
		ID    string `json:"_id"`
		Title string `json:"title"`
	} `json:"course"`
}

func (m *wireModule) toDomain() *domain.Module {
	out := &domain.Module{ID: m.ID, Name: m.Name, Summary: m.Summary}
	for _, l := range m.Lessons {
		if l == nil {
			continue
		}
		out.Lessons = append(out.Lessons, &domain.Lesson{
			ID:                l.ID,
			Name:              l.Name,
			Index:             l.Index,
			VideoURL:          l.VideoURL,
			ContentURL:        l.ContentURL,
			ImageURL:          l.ImageURL,
			ExtraResourcesURL: l.ExtraResourcesURL,
		})
	}
	return out
}
