package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taskflow/internal/models"
)

const namespace = "taskflow"

// Recorder exposes workflow and HTTP metrics. It implements workflow.EventSink.
type Recorder struct {
	registry *prometheus.Registry

	tasksCreated      prometheus.Counter
	stepUpdates       *prometheus.CounterVec
	stepRejections    *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// New registers the collectors on a private registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		tasksCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "tasks_created_total",
			Help:      "Tasks created with their full step set",
		}),
		stepUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "step_updates_total",
			Help:      "Accepted step updates by step number and resulting done flag",
		}, []string{"step_no", "done"}),
		stepRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "step_rejections_total",
			Help:      "Refused step updates by step number and reason",
		}, []string{"step_no", "reason"}),
		statusTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "status_transitions_total",
			Help:      "Derived task status changes",
		}, []string{"from", "to"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry returns the registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware measures every request against its route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		r.httpLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

func (r *Recorder) TaskCreated(context.Context, models.Task, models.Identity) error {
	r.tasksCreated.Inc()
	return nil
}

func (r *Recorder) StepUpdated(_ context.Context, _ models.Task, step models.TaskStep, _ models.Identity) error {
	r.stepUpdates.WithLabelValues(strconv.Itoa(step.StepNo), strconv.FormatBool(step.IsDone)).Inc()
	return nil
}

func (r *Recorder) StepRejected(_ context.Context, _ models.Task, step models.TaskStep, _ models.Identity, reason error) error {
	r.stepRejections.WithLabelValues(strconv.Itoa(step.StepNo), reasonLabel(reason)).Inc()
	return nil
}

func (r *Recorder) StatusChanged(_ context.Context, task models.Task, from models.TaskStatus, _ models.Identity) error {
	r.statusTransitions.WithLabelValues(string(from), string(task.Status)).Inc()
	return nil
}

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	default:
		return "other"
	}
}
