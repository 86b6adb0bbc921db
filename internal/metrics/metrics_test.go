package metrics

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/models"
)

func TestRecorder_WorkflowEvents(t *testing.T) {
	r := New()
	ctx := context.Background()
	actor := models.Identity{UserID: "u", Role: models.RoleDev}
	task := models.Task{ID: "t", Status: models.StatusInProgress}

	require.NoError(t, r.TaskCreated(ctx, task, actor))
	require.NoError(t, r.StepUpdated(ctx, task, models.TaskStep{StepNo: 0, IsDone: true}, actor))
	require.NoError(t, r.StepUpdated(ctx, task, models.TaskStep{StepNo: 0, IsDone: true}, actor))
	require.NoError(t, r.StepRejected(ctx, task, models.TaskStep{StepNo: 12}, actor, fmt.Errorf("%w: late", models.ErrForbidden)))
	require.NoError(t, r.StatusChanged(ctx, task, models.StatusTodo, actor))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.tasksCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.stepUpdates.WithLabelValues("0", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.stepRejections.WithLabelValues("12", "forbidden")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.statusTransitions.WithLabelValues("todo", "in_progress")))
}

func TestReasonLabel(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", models.ErrForbidden), "forbidden"},
		{models.ErrNotFound, "not_found"},
		{models.ErrValidation, "validation"},
		{fmt.Errorf("boom"), "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reasonLabel(tt.err))
	}
}

func TestRecorder_HTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := New()

	router := gin.New()
	router.Use(r.Middleware())
	router.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", r.Handler())

	for _, path := range []string{"/ping/1", "/ping/2", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/ping/:id", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("unmatched", "GET", "404")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "taskflow_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
