package domain

import "sort"

// Lesson is a single watchable unit of a course module.
type Lesson struct {
	ID                string `json:"id" yaml:"id"`
	Name              string `json:"name" yaml:"name"`
	Index             int    `json:"index" yaml:"index"`
	VideoURL          string `json:"videoUrl,omitempty" yaml:"videoUrl,omitempty"`
	ContentURL        string `json:"contentUrl,omitempty" yaml:"contentUrl,omitempty"`
	ImageURL          string `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	ExtraResourcesURL string `json:"extraResourcesUrl,omitempty" yaml:"extraResourcesUrl,omitempty"`
	DurationSeconds   int    `json:"durationSeconds,omitempty" yaml:"durationSeconds,omitempty"`
}

type Module struct {
	ID      string    `json:"id" yaml:"id"`
	Name    string    `json:"name" yaml:"name"`
	Summary string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	Lessons []*Lesson `json:"lessons" yaml:"lessons"`
}

// Catalog is the read-only module/lesson structure of one course.
type Catalog struct {
	CourseID string    `json:"courseId" yaml:"courseId"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Modules  []*Module `json:"modules" yaml:"modules"`
}

// LessonKey identifies a lesson by its owning module, which stays unique even
// when a lesson ID is repeated across modules.
type LessonKey struct {
	ModuleID string
	LessonID string
}

// LessonRef is the result of a catalog lookup.
type LessonRef struct {
	Lesson      *Lesson
	ModuleID    string
	ModuleIndex int
	LessonIndex int
}

// Key returns the composite identity of the referenced lesson.
func (r LessonRef) Key() LessonKey {
	return LessonKey{ModuleID: r.ModuleID, LessonID: r.Lesson.ID}
}

// TotalLessons sums lesson counts across modules. Nil catalogs, nil modules
// and nil lesson slices count as zero.
func TotalLessons(c *Catalog) int {
	if c == nil {
		return 0
	}
	total := 0
	for _, m := range c.Modules {
		if m == nil {
			continue
		}
		total += len(m.Lessons)
	}
	return total
}

// FindLesson scans modules then lessons in catalog order and returns the
// first lesson whose ID matches.
func FindLesson(c *Catalog, lessonID string) (LessonRef, bool) {
	if c == nil {
		return LessonRef{}, false
	}
	for mi, m := range c.Modules {
		if m == nil {
			continue
		}
		for li, l := range m.Lessons {
			if l != nil && l.ID == lessonID {
				return LessonRef{Lesson: l, ModuleID: m.ID, ModuleIndex: mi, LessonIndex: li}, true
			}
		}
	}
	return LessonRef{}, false
}

// LessonIndex maps every lesson in the catalog by its composite key.
func LessonIndex(c *Catalog) map[LessonKey]LessonRef {
	idx := make(map[LessonKey]LessonRef)
	if c == nil {
		return idx
	}
	for mi, m := range c.Modules {
		if m == nil {
			continue
		}
		for li, l := range m.Lessons {
			if l == nil {
				continue
			}
			ref := LessonRef{Lesson: l, ModuleID: m.ID, ModuleIndex: mi, LessonIndex: li}
			idx[ref.Key()] = ref
		}
	}
	return idx
}

// DuplicateLessonIDs returns lesson IDs that appear in more than one place,
// sorted.
func DuplicateLessonIDs(c *Catalog) []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]int)
	for _, m := range c.Modules {
		if m == nil {
			continue
		}
		for _, l := range m.Lessons {
			if l != nil {
				seen[l.ID]++
			}
		}
	}
	var dups []string
	for id, n := range seen {
		if n > 1 {
			dups = append(dups, id)
		}
	}
	sort.Strings(dups)
	return dups
}

// Lessons flattens the catalog in module order.
func (c *Catalog) Lessons() []*Lesson {
	if c == nil {
		return nil
	}
	var out []*Lesson
	for _, m := range c.Modules {
		if m == nil {
			continue
		}
		for _, l := range m.Lessons {
			if l != nil {
				out = append(out, l)
			}
		}
	}
	return out
}

// Normalize drops nil modules and lessons and orders each module's lessons by
// Index. Modules keep their given order.
func (c *Catalog) Normalize() {
	if c == nil {
		return
	}
	modules := c.Modules[:0]
	for _, m := range c.Modules {
		if m == nil {
			continue
		}
		lessons := m.Lessons[:0]
		for _, l := range m.Lessons {
			if l != nil {
				lessons = append(lessons, l)
			}
		}
		m.Lessons = lessons
		sort.SliceStable(m.Lessons, func(i, j int) bool {
			return m.Lessons[i].Index < m.Lessons[j].Index
		})
		modules = append(modules, m)
	}
	c.Modules = modules
}
