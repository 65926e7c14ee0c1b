package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoByTwo() *Catalog {
	return &Catalog{
		CourseID: "c1",
		Modules: []*Module{
			{ID: "A", Lessons: []*Lesson{{ID: "L1", Index: 0}, {ID: "L2", Index: 1}}},
			{ID: "B", Lessons: []*Lesson{{ID: "L3", Index: 0}, {ID: "L4", Index: 1}}},
		},
	}
}

func TestTotalLessons(t *testing.T) {
	assert.Equal(t, 4, TotalLessons(twoByTwo()))
	assert.Equal(t, 0, TotalLessons(nil))
	assert.Equal(t, 0, TotalLessons(&Catalog{}))
}

func TestTotalLessons_MissingLessonArraysCountAsZero(t *testing.T) {
	c := &Catalog{Modules: []*Module{
		{ID: "A"},
		nil,
		{ID: "B", Lessons: []*Lesson{{ID: "x"}}},
	}}
	assert.Equal(t, 1, TotalLessons(c))
}

func TestFindLesson_ReturnsPosition(t *testing.T) {
	ref, ok := FindLesson(twoByTwo(), "L4")
	require.True(t, ok)
	assert.Equal(t, "L4", ref.Lesson.ID)
	assert.Equal(t, "B", ref.ModuleID)
	assert.Equal(t, 1, ref.ModuleIndex)
	assert.Equal(t, 1, ref.LessonIndex)
}

func TestFindLesson_NotFound(t *testing.T) {
	_, ok := FindLesson(twoByTwo(), "nope")
	assert.False(t, ok)

	_, ok = FindLesson(nil, "L1")
	assert.False(t, ok)
}

func TestFindLesson_DuplicateIDFirstMatchWins(t *testing.T) {
	c := &Catalog{Modules: []*Module{
		{ID: "A", Lessons: []*Lesson{{ID: "x", Name: "from A"}}},
		{ID: "B", Lessons: []*Lesson{{ID: "x", Name: "from B"}}},
	}}

	ref, ok := FindLesson(c, "x")
	require.True(t, ok)
	assert.Equal(t, "A", ref.ModuleID)
	assert.Equal(t, "from A", ref.Lesson.Name)

	assert.Equal(t, []string{"x"}, DuplicateLessonIDs(c))

	idx := LessonIndex(c)
	assert.Len(t, idx, 2)
	assert.Equal(t, "from B", idx[LessonKey{ModuleID: "B", LessonID: "x"}].Lesson.Name)
}

func TestDuplicateLessonIDs_None(t *testing.T) {
	assert.Empty(t, DuplicateLessonIDs(twoByTwo()))
}

func TestNormalize_SortsLessonsByIndexAndDropsNils(t *testing.T) {
	c := &Catalog{Modules: []*Module{
		nil,
		{ID: "A", Lessons: []*Lesson{{ID: "c", Index: 2}, nil, {ID: "a", Index: 0}, {ID: "b", Index: 1}}},
	}}

	c.Normalize()

	require.Len(t, c.Modules, 1)
	ids := []string{}
	for _, l := range c.Lessons() {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}
