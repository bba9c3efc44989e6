package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/skillsenselab/taskflow/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// SchedulerMetrics holds metric instruments for workflow execution.
type SchedulerMetrics struct {
	taskTotal        metric.Int64Counter
	taskDuration     metric.Float64Histogram
	tasksActive      metric.Int64UpDownCounter
	taskSkipped      metric.Int64Counter
	workflowTotal    metric.Int64Counter
	workflowDuration metric.Float64Histogram
}

// NewSchedulerMetrics creates the scheduler instruments on the given meter.
func NewSchedulerMetrics(meter metric.Meter) (*SchedulerMetrics, error) {
	taskTotal, err := meter.Int64Counter("task.total",
		metric.WithDescription("Total number of executed tasks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.total counter: %w", err)
	}

	taskDuration, err := meter.Float64Histogram("task.duration",
		metric.WithDescription("Duration of task executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.duration histogram: %w", err)
	}

	tasksActive, err := meter.Int64UpDownCounter("task.active",
		metric.WithDescription("Number of currently running tasks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.active gauge: %w", err)
	}

	taskSkipped, err := meter.Int64Counter("task.skipped",
		metric.WithDescription("Tasks skipped because a branch condition could not be met"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating task.skipped counter: %w", err)
	}

	workflowTotal, err := meter.Int64Counter("workflow.total",
		metric.WithDescription("Total number of executed workflows"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow.total counter: %w", err)
	}

	workflowDuration, err := meter.Float64Histogram("workflow.duration",
		metric.WithDescription("Duration of workflow runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow.duration histogram: %w", err)
	}

	return &SchedulerMetrics{
		taskTotal:        taskTotal,
		taskDuration:     taskDuration,
		tasksActive:      tasksActive,
		taskSkipped:      taskSkipped,
		workflowTotal:    workflowTotal,
		workflowDuration: workflowDuration,
	}, nil
}

// RecordTaskStart increments the active task count.
func (m *SchedulerMetrics) RecordTaskStart(ctx context.Context) {
	m.tasksActive.Add(ctx, 1)
}

// RecordTaskEnd decrements active tasks and records the completed task.
func (m *SchedulerMetrics) RecordTaskEnd(ctx context.Context, agent, taskType, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("type", taskType),
		attribute.String("status", status),
	)
	m.tasksActive.Add(ctx, -1)
	m.taskTotal.Add(ctx, 1, attrs)
	m.taskDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("type", taskType),
	))
}

// RecordTaskSkipped records a task skipped by the branch evaluator.
func (m *SchedulerMetrics) RecordTaskSkipped(ctx context.Context, taskType string) {
	m.taskSkipped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", taskType),
	))
}

// RecordWorkflow records a finished workflow run.
func (m *SchedulerMetrics) RecordWorkflow(ctx context.Context, phase string, duration time.Duration) {
	m.workflowTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("phase", phase),
	))
	m.workflowDuration.Record(ctx, duration.Seconds())
}
