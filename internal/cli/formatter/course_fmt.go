package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/coursetrack/internal/domain"
	"github.com/alexanderramin/coursetrack/internal/service"
)

const barWidth = 24

// FormatStatus renders the progress overview of one course.
func FormatStatus(st *service.CourseStatus) string {
	var b strings.Builder

	title := st.Title
	if title == "" {
		title = st.CourseID
	}
	fmt.Fprintf(&b, "%s\n\n", Bold(title))
	fmt.Fprintf(&b, "%s %s\n", RenderProgress(st.Progress, barWidth),
		Dim(fmt.Sprintf("%d/%d lessons", len(st.CompletedLessons), st.TotalLessons)))
	fmt.Fprintf(&b, "%s\n", Dim(fmt.Sprintf("Module-weighted: %.1f%%", st.ModuleWeighted)))

	if len(st.Modules) > 0 {
		rows := make([][]string, 0, len(st.Modules))
		for _, m := range st.Modules {
			name := m.Name
			if name == "" {
				name = m.ID
			}
			rows = append(rows, []string{
				name,
				fmt.Sprintf("%d/%d", m.Completed, m.Total),
				RenderProgress(m.Progress, 12),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"MODULE", "DONE", "PROGRESS"}, rows))
	}

	switch {
	case st.LastError != "":
		fmt.Fprintf(&b, "\n%s %s\n", StyleRed.Render("✖ Last sync failed:"), st.LastError)
	case st.SyncPending:
		fmt.Fprintf(&b, "\n%s\n", StyleYellow.Render("○ Sync pending"))
	}
	if n := len(st.Validation.Invalid); n > 0 {
		fmt.Fprintf(&b, "%s\n", StyleYellow.Render(fmt.Sprintf("! %d stored lesson(s) not in the catalog", n)))
	}

	return RenderBox("Course Progress", strings.TrimRight(b.String(), "\n"))
}

// FormatCatalog lists modules and lessons with a completion mark.
func FormatCatalog(cat *domain.Catalog, completed map[string]struct{}) string {
	var b strings.Builder
	title := cat.Title
	if title == "" {
		title = cat.CourseID
	}
	b.WriteString(Header(title))
	b.WriteString("\n")

	if len(cat.Modules) == 0 {
		b.WriteString(Dim("No modules."))
		b.WriteString("\n")
		return b.String()
	}
	var items []TreeItem
	for mi, m := range cat.Modules {
		name := m.Name
		if name == "" {
			name = m.ID
		}
		items = append(items, TreeItem{Title: StyleBlue.Render(fmt.Sprintf("%d.", mi+1)) + " " + Bold(name)})
		for li, l := range m.Lessons {
			_, done := completed[l.ID]
			label := l.Name
			if label == "" {
				label = l.ID
			}
			item := TreeItem{
				Title:  label + " " + Dim("("+l.ID+")"),
				Level:  1,
				IsLast: li == len(m.Lessons)-1,
				Done:   done,
				Mark:   true,
			}
			if l.DurationSeconds > 0 {
				item.Detail = Clock(float64(l.DurationSeconds))
			}
			items = append(items, item)
		}
	}
	b.WriteString("\n")
	b.WriteString(RenderTree(items))
	return b.String()
}

// FormatValidation reports stored completions the catalog does not know and
// lesson IDs the catalog repeats.
func FormatValidation(report domain.CompletionReport, duplicateLessons []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d valid completion(s)\n", StyleGreen.Render("✔"), len(report.Valid))
	if len(report.Invalid) > 0 {
		fmt.Fprintf(&b, "%s unknown lesson(s): %s\n", StyleRed.Render("✖"), strings.Join(report.Invalid, ", "))
	}
	if len(report.Duplicates) > 0 {
		fmt.Fprintf(&b, "%s repeated completion(s): %s\n", StyleYellow.Render("!"), strings.Join(report.Duplicates, ", "))
	}
	if len(duplicateLessons) > 0 {
		fmt.Fprintf(&b, "%s lesson id(s) used in more than one module: %s\n",
			StyleYellow.Render("!"), strings.Join(duplicateLessons, ", "))
		b.WriteString(Dim("  Completing one of these marks the first occurrence only.\n"))
	}
	if len(report.Invalid) == 0 && len(report.Duplicates) == 0 && len(duplicateLessons) == 0 {
		b.WriteString(Dim("Catalog and stored progress agree.\n"))
	}
	return b.String()
}

// FormatSession describes the signed-in learner.
func FormatSession(s *domain.Session, now time.Time) string {
	rows := [][]string{
		{"User", s.UserID},
		{"Email", s.Email},
	}
	if s.OrganizationID != "" {
		rows = append(rows, []string{"Organization", s.OrganizationID})
	}
	if s.Role != "" {
		rows = append(rows, []string{"Role", s.Role})
	}
	expires := Dim("never")
	if s.ExpiresAt != nil {
		expires = fmt.Sprintf("%s %s", s.ExpiresAt.Local().Format("Jan 2 15:04"),
			Dim("(in "+HumanDuration(s.ExpiresAt.Sub(now))+")"))
	}
	rows = append(rows, []string{"Expires", expires}, []string{"Session", TruncID(s.ID)})

	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s\n", StyleDim.Render(fmt.Sprintf("%-13s", r[0])), r[1])
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatNotification renders a notification as one styled line.
func FormatNotification(n domain.Notification) string {
	icon := "•"
	switch n.Kind {
	case domain.NotifyLessonCompleted:
		icon = "✔"
	case domain.NotifyCourseCompleted:
		icon = "★"
	case domain.NotifySyncFailed:
		icon = "✖"
	}
	return NotificationStyle(n.Kind).Render(icon + " " + n.Message())
}
