package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/auth"
	"taskflow/internal/config"
	"taskflow/internal/models"
	"taskflow/internal/workflow"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestStepsCommand(t *testing.T) {
	out, err := run(t, "steps")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETE")
	assert.Contains(t, out, "Change control")
	assert.Contains(t, out, "dept_head")
}

func TestRenderSteps(t *testing.T) {
	tbl, err := workflow.DefaultTable()
	require.NoError(t, err)
	out := renderSteps(tbl.Definitions(), workflow.DefaultCutoffStep)
	for _, d := range tbl.Definitions() {
		assert.Contains(t, out, d.StepName)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("TASKFLOW_AUTH_SECRET", "cli-secret")

	out, err := run(t, "token", "--user", "u-42", "--role", "tl")
	require.NoError(t, err)

	tm, err := auth.NewTokenManager("cli-secret", "", time.Hour)
	require.NoError(t, err)
	id, err := tm.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, models.Identity{UserID: "u-42", Role: models.RoleTL}, id)

	out, err = run(t, "token", "--user", "u-42", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"expires_at"`)

	_, err = run(t, "token", "--user", "u-42", "--role", "wizard")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = run(t, "token")
	assert.Error(t, err, "user flag is required")
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("TASKFLOW_AUTH_SECRET", "")
	_, err := run(t, "token", "--user", "u-42")
	assert.ErrorContains(t, err, "secret")
}

func TestBuild(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "taskflow.db")
	cfg.Server.StaticDir = ""
	cfg.Log.Level = "error"

	_, err := build(cfg)
	assert.ErrorContains(t, err, "auth")

	cfg.Auth.Secret = "s3cret"
	cfg.Workflow.CutoffStep = 25
	_, err = build(cfg)
	assert.ErrorContains(t, err, "cutoff step 25")

	cfg.Workflow.CutoffStep = workflow.DefaultCutoffStep
	app, err := build(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	rec := httptest.NewRecorder()
	app.server.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.server.Engine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workflow/steps", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
