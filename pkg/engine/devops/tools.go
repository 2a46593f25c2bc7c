package devops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/agentnexus/copilot/pkg/engine/api"
	"github.com/agentnexus/copilot/pkg/engine/tools"
	"github.com/agentnexus/copilot/pkg/observability"
)

// Verdicts emitted by get_metrics.
const (
	VerdictCritical         = "CRITICAL"
	VerdictHealthy          = "HEALTHY"
	VerdictInsufficientData = "INSUFFICIENT_DATA"
)

// Notifier delivers human-facing alerts. The default implementation logs
// the message, standing in for a chat webhook.
type Notifier interface {
	Notify(ctx context.Context, channel, message string) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(_ context.Context, channel, message string) error {
	n.Logger.Info("notification sent",
		zap.String("channel", channel),
		zap.String("message", message),
	)
	return nil
}

// Deps carries the collaborators the incident-response tools close over.
type Deps struct {
	Logs       *LogStore
	Thresholds Thresholds
	Metrics    *observability.Metrics
	Notifier   Notifier
	Logger     *zap.Logger
}

// RegisterTools installs the incident-response toolset into the registry.
func RegisterTools(reg *tools.Registry, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = LogNotifier{Logger: deps.Logger}
	}

	specs := []tools.ToolSpec{
		searchLogsSpec(deps),
		getMetricsSpec(deps),
		restartServiceSpec(deps),
		slackNotifySpec(deps),
	}
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return fmt.Errorf("registering %s: %w", spec.Name, err)
		}
	}
	return nil
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// search_logs
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func searchLogsSpec(deps Deps) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "search_logs",
		Description: "Search recent service logs, optionally filtered by service and level. Returns matching lines newest first.",
		Params: []tools.ParameterDef{
			{Name: "service", Type: "string", Description: "Service name to filter by", Required: false},
			{Name: "level", Type: "string", Description: "Log level filter, e.g. ERROR or INFO", Required: false},
			{Name: "limit", Type: "integer", Description: "Maximum number of records (default 20)", Required: false},
		},
		Handler: func(ctx context.Context, args api.Args) (string, error) {
			limit := tools.GetIntArg(args, "limit", 20)
			records, err := deps.Logs.Query(ctx, LogQuery{
				Service: tools.GetStringArg(args, "service", ""),
				Level:   tools.GetStringArg(args, "level", ""),
				Limit:   limit,
			})
			if err != nil {
				return "", err
			}
			if len(records) == 0 {
				return "no matching log records", nil
			}
			raw, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				return "", fmt.Errorf("encoding log records: %w", err)
			}
			return string(raw), nil
		},
	}
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// get_metrics
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func getMetricsSpec(deps Deps) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "get_metrics",
		Description: "Compute the error rate for a service over its anomaly window and return a health verdict: CRITICAL, HEALTHY, or INSUFFICIENT_DATA.",
		Params: []tools.ParameterDef{
			{Name: "service", Type: "string", Description: "Service name to inspect", Required: true},
		},
		Handler: func(ctx context.Context, args api.Args) (string, error) {
			service := tools.GetStringArg(args, "service", "")
			th := deps.Thresholds.ForService(service)

			rate, total, err := deps.Logs.ErrorRate(ctx, service, th.Window)
			if err != nil {
				return "", err
			}

			verdict := VerdictHealthy
			switch {
			case total < th.MinLogVolume:
				verdict = VerdictInsufficientData
			case rate > th.ErrorRate:
				verdict = VerdictCritical
				observeDetection(ctx, deps, service, th)
			}

			deps.Logger.Info("service health checked",
				zap.String("service", service),
				zap.Float64("error_rate", rate),
				zap.Int("log_volume", total),
				zap.String("verdict", verdict),
			)
			return fmt.Sprintf("%s: service=%s error_rate=%.2f window=%s log_volume=%d",
				verdict, service, rate, th.Window, total), nil
		},
	}
}

// observeDetection records the spike-to-detection latency once per open
// spike and flags the incident as active.
func observeDetection(ctx context.Context, deps Deps, service string, th Thresholds) {
	start, open, err := deps.Logs.SpikeStart(ctx, service)
	if err != nil {
		deps.Logger.Warn("spike lookup failed", zap.Error(err))
		return
	}
	if !open {
		return
	}
	mttd := time.Since(start)
	if mttd < 0 {
		mttd = 0
	}
	if mttd > th.MTTDCeiling {
		mttd = th.MTTDCeiling
	}
	deps.Metrics.ObserveMTTD(mttd)
	deps.Metrics.IncidentOpened()
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// restart_service
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func restartServiceSpec(deps Deps) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "restart_service",
		Description: "Restart a service to remediate an incident. This is a privileged, state-changing action.",
		Params: []tools.ParameterDef{
			{Name: "service", Type: "string", Description: "Service name to restart", Required: true},
		},
		Handler: func(ctx context.Context, args api.Args) (string, error) {
			service := tools.GetStringArg(args, "service", "")

			// Simulated control-plane call. A rollout takes a moment.
			select {
			case <-time.After(100 * time.Millisecond):
			case <-ctx.Done():
				deps.Metrics.RemediationFailed(service)
				return "", ctx.Err()
			}

			if err := deps.Logs.ClearSpike(ctx, service); err != nil {
				deps.Logger.Warn("spike clear failed after restart", zap.Error(err))
			}
			deps.Metrics.RemediationSucceeded(service)
			deps.Metrics.IncidentClosed()

			deps.Logger.Info("service restarted", zap.String("service", service))
			return fmt.Sprintf("service %s restarted successfully, error spike cleared", service), nil
		},
	}
}

// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━
// slack_notify
// ━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━

func slackNotifySpec(deps Deps) tools.ToolSpec {
	return tools.ToolSpec{
		Name:        "slack_notify",
		Description: "Send a notification message to an operations channel.",
		Params: []tools.ParameterDef{
			{Name: "channel", Type: "string", Description: "Channel to notify (default #ops-alerts)", Required: false},
			{Name: "message", Type: "string", Description: "Message body", Required: true},
		},
		Handler: func(ctx context.Context, args api.Args) (string, error) {
			channel := tools.GetStringArg(args, "channel", "#ops-alerts")
			message := tools.GetStringArg(args, "message", "")
			if err := deps.Notifier.Notify(ctx, channel, message); err != nil {
				return "", fmt.Errorf("delivering notification: %w", err)
			}
			return fmt.Sprintf("notified %s", channel), nil
		},
	}
}
