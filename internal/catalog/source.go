// Package catalog loads the module/lesson structure of a course, either from
// local files or from the LMS API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/coursetrack/internal/domain"
)

// ErrNotFound is returned when no catalog exists for a course.
var ErrNotFound = errors.New("catalog not found")

// Source loads a course catalog.
type Source interface {
	Load(ctx context.Context, courseID string) (*domain.Catalog, error)
}

// FileSource reads <Dir>/<courseID>.yaml, .yml or .json.
type FileSource struct {
	Dir string
}

var fileExtensions = []string{".yaml", ".yml", ".json"}

func (s FileSource) Load(_ context.Context, courseID string) (*domain.Catalog, error) {
	if courseID == "" || strings.ContainsAny(courseID, `/\`) || courseID == "." || courseID == ".." {
		return nil, fmt.Errorf("invalid course id %q", courseID)
	}
	for _, ext := range fileExtensions {
		path := filepath.Join(s.Dir, courseID+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog %s: %w", path, err)
		}
		cat, err := Parse(data, ext)
		if err != nil {
			return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
		}
		if cat.CourseID == "" {
			cat.CourseID = courseID
		}
		if cat.CourseID != courseID {
			return nil, fmt.Errorf("catalog %s declares course %q, expected %q", path, cat.CourseID, courseID)
		}
		return cat, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, courseID, s.Dir)
}

// Parse decodes a catalog document. ext selects JSON for ".json" and YAML
// otherwise. The result is normalized.
func Parse(data []byte, ext string) (*domain.Catalog, error) {
	var cat domain.Catalog
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &cat)
	} else {
		err = yaml.Unmarshal(data, &cat)
	}
	if err != nil {
		return nil, err
	}
	if err := validate(&cat); err != nil {
		return nil, err
	}
	cat.Normalize()
	return &cat, nil
}

func validate(c *domain.Catalog) error {
	for mi, m := range c.Modules {
		if m == nil {
			continue
		}
		if m.ID == "" {
			return fmt.Errorf("module %d: id is required", mi)
		}
		for li, l := range m.Lessons {
			if l != nil && l.ID == "" {
				return fmt.Errorf("module %s lesson %d: id is required", m.ID, li)
			}
		}
	}
	return nil
}

// ModuleFetcher is the part of the GraphQL client RemoteSource needs.
type ModuleFetcher interface {
	GetCourseModules(ctx context.Context, courseID string) (*domain.Catalog, error)
}

// RemoteSource loads catalogs from the LMS API.
type RemoteSource struct {
	Client ModuleFetcher
}

func (s RemoteSource) Load(ctx context.Context, courseID string) (*domain.Catalog, error) {
	cat, err := s.Client.GetCourseModules(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog for %s: %w", courseID, err)
	}
	return cat, nil
}
