package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/catalog"
	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/config"
	"github.com/alexanderramin/coursetrack/internal/notify"
	"github.com/alexanderramin/coursetrack/internal/progress"
	"github.com/alexanderramin/coursetrack/internal/repository"
	"github.com/alexanderramin/coursetrack/internal/service"
	"github.com/alexanderramin/coursetrack/internal/session"
	"github.com/alexanderramin/coursetrack/internal/testutil"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const testCatalogYAML = `courseId: c1
title: Intro to Go
modules:
  - id: A
    name: Basics
    lessons:
      - {id: L1, name: Variables, index: 0, durationSeconds: 600}
      - {id: L2, name: Functions, index: 1, durationSeconds: 600}
  - id: B
    name: Concurrency
    lessons:
      - {id: L3, name: Goroutines, index: 0, durationSeconds: 600}
      - {id: L4, name: Channels, index: 1}
`

type stubAuth struct{ token string }

func (a stubAuth) Login(context.Context, string, string) (string, error) { return a.token, nil }

type testEnv struct {
	app    *App
	kv     repository.KVStore
	remote *testutil.FakeRemote
	clock  *clock.Fake
	hub    *notify.Hub
	token  string
}

// testApp wires an App with deps already booted: in-memory SQLite storage, a
// catalog directory holding course c1 and a recording remote.
func testApp(t *testing.T) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c1.yaml"), []byte(testCatalogYAML), 0o644))

	fc := clock.NewFake(testNow)
	kv := repository.NewSQLiteKVStore(database)
	remote := &testutil.FakeRemote{}
	hub := notify.NewHub(0)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-42",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(2 * time.Hour)),
		},
		Email: "grace@example.com",
		Role:  "student",
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	sessions := session.NewManager(testutil.NewTestUoW(database), repository.NewSQLiteSessionRepo(database),
		stubAuth{token: token}, fc, zap.NewNop())
	catalogs := catalog.FileSource{Dir: dir}
	svc := service.NewProgressService(service.ProgressDeps{
		Catalogs: catalogs,
		Store:    progress.NewCompletedStore(kv, zap.NewNop(), nil),
		Remote:   remote,
		Notifier: hub,
		Clock:    fc,
	})

	cfg := &config.Config{}
	app := &App{
		Config: cfg,
		deps: &Deps{
			Log:      zap.NewNop(),
			Sessions: sessions,
			Progress: svc,
			Catalogs: catalogs,
			Hub:      hub,
			Store:    kv,
			Clock:    fc,
			Close: func() error {
				svc.Close()
				hub.Close()
				return nil
			},
		},
	}
	t.Cleanup(func() { _ = app.Close() })
	return &testEnv{app: app, kv: kv, remote: remote, clock: fc, hub: hub, token: token}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return stripANSI(buf.String()), err
}

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string { return ansiRE.ReplaceAllString(s, "") }

// --- Session commands ---

func TestWhoami_NotLoggedIn(t *testing.T) {
	env := testApp(t)
	out, err := executeCmd(t, env.app, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestLogin_WithCredentialsThenWhoami(t *testing.T) {
	env := testApp(t)

	out, err := executeCmd(t, env.app, "login", "--email", "grace@example.com", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")
	assert.Contains(t, out, "u-42")

	out, err = executeCmd(t, env.app, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "grace@example.com")
	assert.Contains(t, out, "student")
	assert.Contains(t, out, "2h")
}

func TestLogin_WithToken(t *testing.T) {
	env := testApp(t)
	out, err := executeCmd(t, env.app, "login", "--token", env.token)
	require.NoError(t, err)
	assert.Contains(t, out, "u-42")
}

func TestLogin_NonInteractiveNeedsCredentials(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "login", "--email", "grace@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")
}

func TestLogout(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "login", "--token", env.token)
	require.NoError(t, err)

	out, err := executeCmd(t, env.app, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	out, err = executeCmd(t, env.app, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

// --- Lesson commands ---

func TestLessonComplete_IsIdempotent(t *testing.T) {
	env := testApp(t)

	out, err := executeCmd(t, env.app, "lesson", "complete", "c1", "L1")
	require.NoError(t, err)
	assert.Contains(t, out, "L1 completed")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "1/4 lessons")

	out, err = executeCmd(t, env.app, "lesson", "complete", "c1", "L1")
	require.NoError(t, err)
	assert.Contains(t, out, "L1 unchanged")
	assert.Contains(t, out, "1/4 lessons")
}

func TestLessonEvent_Threshold(t *testing.T) {
	env := testApp(t)

	out, err := executeCmd(t, env.app, "lesson", "event", "c1", "L2", "--at", "79", "--duration", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "L2 unchanged")

	out, err = executeCmd(t, env.app, "lesson", "event", "c1", "L2", "--at", "80", "--duration", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "L2 completed")
}

func TestLessonEvent_RequiresFlags(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "lesson", "event", "c1", "L2", "--at", "80")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duration")
}

func TestLessonComplete_UnknownCourse(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "lesson", "complete", "nope", "L1")
	require.Error(t, err)
}

// --- Catalog commands ---

func TestCatalogShow_MarksCompleted(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "lesson", "complete", "c1", "L3")
	require.NoError(t, err)

	out, err := executeCmd(t, env.app, "catalog", "show", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "Intro to Go")
	assert.Contains(t, out, "1. Basics")
	assert.Contains(t, out, "2. Concurrency")
	assert.Contains(t, out, "✔ Goroutines (L3)")
	assert.Contains(t, out, "├─ ○ Variables (L1)")
	assert.Contains(t, out, "[ 10:00 ]")
	assert.Contains(t, out, "○ Channels (L4)")
}

func TestCatalogValidate_ReportsUnknownLessons(t *testing.T) {
	env := testApp(t)
	require.NoError(t, env.kv.Set(context.Background(), progress.StorageKey("c1"), `["L1","ghost"]`))

	out, err := executeCmd(t, env.app, "catalog", "validate", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 valid completion(s)")
	assert.Contains(t, out, "unknown lesson(s): ghost")
}

func TestCatalogValidate_Clean(t *testing.T) {
	env := testApp(t)
	out, err := executeCmd(t, env.app, "catalog", "validate", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog and stored progress agree.")
}

// --- Progress commands ---

func TestProgressShow_JSON(t *testing.T) {
	env := testApp(t)
	for _, id := range []string{"L1", "L2"} {
		_, err := executeCmd(t, env.app, "lesson", "complete", "c1", id)
		require.NoError(t, err)
	}

	out, err := executeCmd(t, env.app, "progress", "show", "c1", "--json")
	require.NoError(t, err)

	var st struct {
		CourseID         string   `json:"courseId"`
		Progress         float64  `json:"progress"`
		CompletedLessons []string `json:"completedLessons"`
		TotalLessons     int      `json:"totalLessons"`
		SyncPending      bool     `json:"syncPending"`
		Modules          []struct {
			ID       string  `json:"id"`
			Progress float64 `json:"progress"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "c1", st.CourseID)
	assert.Equal(t, 50.0, st.Progress)
	assert.ElementsMatch(t, []string{"L1", "L2"}, st.CompletedLessons)
	assert.Equal(t, 4, st.TotalLessons)
	assert.True(t, st.SyncPending)
	require.Len(t, st.Modules, 2)
	assert.Equal(t, 100.0, st.Modules[0].Progress)
	assert.Equal(t, 0.0, st.Modules[1].Progress)
}

func TestProgressShow_Human(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "lesson", "complete", "c1", "L1")
	require.NoError(t, err)

	out, err := executeCmd(t, env.app, "progress", "show", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "Intro to Go")
	assert.Contains(t, out, "1/4 lessons")
	assert.Contains(t, out, "Sync pending")
}

func TestProgressSync_SendsNow(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "lesson", "complete", "c1", "L1")
	require.NoError(t, err)
	assert.Empty(t, env.remote.Calls())

	out, err := executeCmd(t, env.app, "progress", "sync", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "progress sent for c1")
	assert.Equal(t, []testutil.ProgressCall{{CourseID: "c1", Progress: 25}}, env.remote.Calls())
}

func TestProgressSync_DebouncedCallAfterQuietWindow(t *testing.T) {
	env := testApp(t)
	for _, id := range []string{"L1", "L2", "L3"} {
		_, err := executeCmd(t, env.app, "lesson", "complete", "c1", id)
		require.NoError(t, err)
	}
	env.clock.Advance(progress.DefaultDebounceWindow)
	assert.Equal(t, []testutil.ProgressCall{{CourseID: "c1", Progress: 75}}, env.remote.Calls())
}

func TestProgressReset_RequiresConfirmation(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "progress", "reset", "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestProgressReset_ClearsLocalCompletions(t *testing.T) {
	env := testApp(t)
	_, err := executeCmd(t, env.app, "lesson", "complete", "c1", "L1")
	require.NoError(t, err)

	out, err := executeCmd(t, env.app, "progress", "reset", "c1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "local progress cleared for c1")

	// the pending sync went out before the clear
	assert.Equal(t, []testutil.ProgressCall{{CourseID: "c1", Progress: 25}}, env.remote.Calls())

	out, err = executeCmd(t, env.app, "lesson", "complete", "c1", "L1")
	require.NoError(t, err)
	assert.Contains(t, out, "L1 completed")
}

// --- Boot ---

func TestRoot_BootErrorIsWrapped(t *testing.T) {
	app := &App{
		Config: &config.Config{},
		Boot: func(context.Context, *config.Config, io.Writer) (*Deps, error) {
			return nil, assert.AnError
		},
	}
	_, err := executeCmd(t, app, "whoami")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "starting up")
}

func TestRoot_BootRunsOnce(t *testing.T) {
	env := testApp(t)
	boots := 0
	deps := env.app.deps
	app := &App{
		Config: &config.Config{},
		Boot: func(context.Context, *config.Config, io.Writer) (*Deps, error) {
			boots++
			return deps, nil
		},
	}
	_, err := executeCmd(t, app, "whoami")
	require.NoError(t, err)
	_, err = executeCmd(t, app, "whoami")
	require.NoError(t, err)
	assert.Equal(t, 1, boots)
}

func TestProgressSync_RemoteFailure(t *testing.T) {
	env := testApp(t)
	env.remote.SetErr(assert.AnError)

	_, err := executeCmd(t, env.app, "progress", "sync", "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syncing progress")

	out, err := executeCmd(t, env.app, "progress", "show", "c1")
	require.NoError(t, err)
	assert.Contains(t, out, "Last sync failed:")
}
