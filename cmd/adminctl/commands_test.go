package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"housingadmin/console/config"
	"housingadmin/console/internal/database"
)

type recorded struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

func fakeBackend(t *testing.T, replies map[string]string) (*httptest.Server, func() []recorded) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		mu.Lock()
		calls = append(calls, recorded{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization"), Body: body})
		mu.Unlock()

		reply, ok := replies[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"no such route"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

// setupEnv points the configuration at a temp dir and the given backend.
func setupEnv(t *testing.T, backendURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BACKEND_URL", backendURL)
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "console.db"))
	t.Setenv("STATUS_TRANSITIONS_FILE", filepath.Join(dir, "transitions.json"))
	t.Setenv("ADMIN_TOKEN", "")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLogin(t *testing.T) {
	srv, calls := fakeBackend(t, map[string]string{
		"POST /admins/login": `{"token":"tok-1","admin":{"_id":"a1","firstName":"Root"}}`,
	})
	setupEnv(t, srv.URL)

	out, err := execute(t, "login", "--email", "root@example.com", "--password", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1\n", out)

	got := calls()
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"email": "root@example.com", "password": "secret1"}, got[0].Body)
}

func TestUsersList_RequiresToken(t *testing.T) {
	srv, calls := fakeBackend(t, nil)
	setupEnv(t, srv.URL)

	_, err := execute(t, "users", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no token")
	assert.Empty(t, calls())
}

func TestUsersList(t *testing.T) {
	srv, calls := fakeBackend(t, map[string]string{
		"GET /users/getall": `[
			{"_id":"u1","firstName":"Ana","lastName":"Silva","email":"ana@example.com"},
			{"_id":"u2","firstName":"Ben","lastName":"Perera","email":"ben@example.com"}
		]`,
	})
	setupEnv(t, srv.URL)

	out, err := execute(t, "users", "list", "--token", "tok-1", "--search", "perera")
	require.NoError(t, err)
	assert.Contains(t, out, "ben@example.com")
	assert.NotContains(t, out, "ana@example.com")
	assert.Equal(t, "Bearer tok-1", calls()[0].Auth)
}

func TestPropertiesStatus(t *testing.T) {
	srv, calls := fakeBackend(t, map[string]string{
		"GET /properties/getall":    `[{"_id":"p1","status":"Pending"}]`,
		"PUT /properties/update/p1": `{"_id":"p1","status":"Approved"}`,
	})
	setupEnv(t, srv.URL)
	t.Setenv("ADMIN_TOKEN", "tok-1")

	out, err := execute(t, "properties", "status", "p1", "Approved")
	require.NoError(t, err)
	assert.Equal(t, "p1 is now Approved\n", out)

	got := calls()
	require.Len(t, got, 2)
	assert.Equal(t, http.MethodPut, got[1].Method)
	assert.Equal(t, map[string]any{"status": "Approved"}, got[1].Body)
}

func TestPropertiesStatus_RespectsTransitions(t *testing.T) {
	srv, calls := fakeBackend(t, map[string]string{
		"GET /properties/getall": `[{"_id":"p1","status":"Rejected"}]`,
	})
	dir := setupEnv(t, srv.URL)
	require.NoError(t, config.SaveTransitions(filepath.Join(dir, "transitions.json"), config.Transitions{
		"Rejected": {"Pending"},
	}))

	_, err := execute(t, "properties", "status", "p1", "Approved", "--token", "tok-1")
	require.Error(t, err)
	assert.Len(t, calls(), 1)

	_, err = execute(t, "properties", "status", "p1", "Archived", "--token", "tok-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestPropertiesStatus_RejectsInvalidTransitionFile(t *testing.T) {
	srv, calls := fakeBackend(t, nil)
	dir := setupEnv(t, srv.URL)
	require.NoError(t, config.SaveTransitions(filepath.Join(dir, "transitions.json"), config.Transitions{
		"Rejected": {"Archived"},
	}))

	_, err := execute(t, "properties", "list", "--token", "tok-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transitions")
	assert.Empty(t, calls())
}

func TestTransitions(t *testing.T) {
	setupEnv(t, "http://unused")

	out, err := execute(t, "transitions", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No restrictions")

	_, err = execute(t, "transitions", "set", "Rejected", "Pending", "Needs Documents")
	require.NoError(t, err)

	out, err = execute(t, "transitions", "show")
	require.NoError(t, err)
	assert.Equal(t, "Rejected -> Pending, Needs Documents\n", out)

	_, err = execute(t, "transitions", "set", "Rejected", "Archived")
	require.Error(t, err)

	_, err = execute(t, "transitions", "set", "Rejected")
	require.NoError(t, err)
	out, err = execute(t, "transitions", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "No restrictions")
}

func TestUploadFailuresAndTokenPurge(t *testing.T) {
	dir := setupEnv(t, "http://unused")

	db, err := database.NewDatabase(filepath.Join(dir, "console.db"), nil)
	require.NoError(t, err)
	require.NoError(t, db.RecordUploadFailure(context.Background(), "properties", "notes.pdf", "file type is not allowed"))
	require.NoError(t, db.SaveToken("s1", "adminToken", "tok-1"))
	require.NoError(t, db.Close())

	out, err := execute(t, "uploads", "failures", "--section", "properties")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.pdf")

	out, err = execute(t, "tokens", "purge", "--older-than", time.Hour.String())
	require.NoError(t, err)
	assert.Equal(t, "Purged 0 tokens\n", out)

	out, err = execute(t, "tokens", "purge", "--older-than=-1h")
	require.NoError(t, err)
	assert.Equal(t, "Purged 1 tokens\n", out)
}
