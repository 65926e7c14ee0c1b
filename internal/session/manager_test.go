package session

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alexanderramin/coursetrack/internal/clock"
	"github.com/alexanderramin/coursetrack/internal/repository"
	"github.com/alexanderramin/coursetrack/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeAuth struct {
	token string
	err   error
	calls int
}

func (f *fakeAuth) Login(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.token, f.err
}

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("lms-secret"))
	require.NoError(t, err)
	return token
}

func learnerClaims(exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:          "ada@example.com",
		OrganizationID: "org-9",
		Role:           "student",
	}
}

type managerHarness struct {
	db    *sql.DB
	mgr   *Manager
	repo  *repository.SQLiteSessionRepo
	clock *clock.Fake
	auth  *fakeAuth
}

func newHarness(t *testing.T) *managerHarness {
	t.Helper()
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteSessionRepo(database)
	fc := clock.NewFake(epoch)
	auth := &fakeAuth{}
	mgr := NewManager(testutil.NewTestUoW(database), repo, auth, fc, zap.NewNop())
	return &managerHarness{db: database, mgr: mgr, repo: repo, clock: fc, auth: auth}
}

func TestManager_Login_PersistsClaims(t *testing.T) {
	h := newHarness(t)
	h.auth.token = signToken(t, learnerClaims(epoch.Add(time.Hour)))
	ctx := context.Background()

	s, err := h.mgr.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u-1", s.UserID)
	assert.Equal(t, "org-9", s.OrganizationID)
	assert.Equal(t, "student", s.Role)
	require.NotNil(t, s.ExpiresAt)
	assert.True(t, s.ExpiresAt.Equal(epoch.Add(time.Hour)))

	cur, err := h.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.ID, cur.ID)
	assert.Equal(t, h.auth.token, cur.AccessToken)
}

func TestManager_Login_ReplacesPreviousSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.auth.token = signToken(t, learnerClaims(epoch.Add(time.Hour)))
	_, err := h.mgr.Login(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	second := learnerClaims(epoch.Add(2 * time.Hour))
	second.Subject = "u-2"
	h.auth.token = signToken(t, second)
	h.clock.Advance(time.Minute)
	_, err = h.mgr.Login(ctx, "grace@example.com", "pw")
	require.NoError(t, err)

	cur, err := h.mgr.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-2", cur.UserID)

	var rows int
	require.NoError(t, h.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestManager_Login_FallsBackToGivenEmail(t *testing.T) {
	h := newHarness(t)
	claims := learnerClaims(epoch.Add(time.Hour))
	claims.Email = ""
	h.auth.token = signToken(t, claims)

	s, err := h.mgr.Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", s.Email)
}

func TestManager_Login_AuthError(t *testing.T) {
	h := newHarness(t)
	h.auth.err = errors.New("bad credentials")

	_, err := h.mgr.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")

	_, err = h.mgr.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_Login_RejectsMalformedToken(t *testing.T) {
	h := newHarness(t)
	h.auth.token = "not-a-jwt"

	_, err := h.mgr.Login(context.Background(), "ada@example.com", "pw")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_LoginWithToken_RejectsExpired(t *testing.T) {
	h := newHarness(t)
	token := signToken(t, learnerClaims(epoch.Add(-time.Minute)))

	_, err := h.mgr.LoginWithToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestManager_Current_NoSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.mgr.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_Current_ExpiresOnRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.mgr.LoginWithToken(ctx, signToken(t, learnerClaims(epoch.Add(time.Hour))))
	require.NoError(t, err)

	h.clock.Advance(time.Hour)

	_, err = h.mgr.Current(ctx)
	assert.ErrorIs(t, err, ErrExpired)

	// The expired row is gone, so the next read reports no session at all.
	_, err = h.mgr.Current(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_TokenWithoutExpiryNeverExpires(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	claims := learnerClaims(epoch)
	claims.ExpiresAt = nil
	_, err := h.mgr.LoginWithToken(ctx, signToken(t, claims))
	require.NoError(t, err)

	h.clock.Advance(365 * 24 * time.Hour)
	token, err := h.mgr.Token(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestManager_Logout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.mgr.LoginWithToken(ctx, signToken(t, learnerClaims(epoch.Add(time.Hour))))
	require.NoError(t, err)

	require.NoError(t, h.mgr.Logout(ctx))
	_, err = h.mgr.Token(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_Remaining(t *testing.T) {
	h := newHarness(t)
	s, err := h.mgr.FromToken(signToken(t, learnerClaims(epoch.Add(90*time.Minute))))
	require.NoError(t, err)

	left, ok := h.mgr.Remaining(s)
	assert.True(t, ok)
	assert.Equal(t, 90*time.Minute, left)

	s.ExpiresAt = nil
	_, ok = h.mgr.Remaining(s)
	assert.False(t, ok)
}

func TestManager_Login_RollsBackOnSaveFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := repository.NewSQLiteSessionRepo(database)
	fc := clock.NewFake(epoch)
	ctx := context.Background()

	good := NewManager(testutil.NewTestUoW(database), repo, nil, fc, nil)
	existing, err := good.LoginWithToken(ctx, signToken(t, learnerClaims(epoch.Add(time.Hour))))
	require.NoError(t, err)

	// the delete of the old row runs, the insert of the new one fails
	failing := &testutil.FailingExecUoW{DB: database, Match: "INTO sessions", Err: errors.New("disk full")}
	bad := NewManager(failing, repo, nil, fc, nil)
	other := learnerClaims(epoch.Add(time.Hour))
	other.Subject = "u-2"
	_, err = bad.LoginWithToken(ctx, signToken(t, other))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	cur, err := good.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, cur.ID)
	assert.Equal(t, 1, testutil.CountRows(t, database, "sessions"))
}
