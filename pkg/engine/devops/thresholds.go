package devops

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Thresholds drive the anomaly verdict in get_metrics.
type Thresholds struct {
	// ErrorRate is the fraction of ERROR logs above which a service is
	// considered CRITICAL.
	ErrorRate float64

	// Window is the trailing interval error rates are computed over.
	Window time.Duration

	// MinLogVolume is the minimum record count in the window required
	// for a confident verdict. Below it the verdict is
	// INSUFFICIENT_DATA rather than a guess.
	MinLogVolume int

	// MTTDCeiling caps the detection-latency observation so a stale
	// spike marker cannot distort the histogram.
	MTTDCeiling time.Duration
}

// DefaultThresholds mirrors the shipped anomaly tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ErrorRate:    0.10,
		Window:       5 * time.Minute,
		MinLogVolume: 5,
		MTTDCeiling:  10 * time.Minute,
	}
}

// ForService applies per-service environment overrides on top of the base
// thresholds:
//
//	THRESHOLD_<SERVICE>_ERROR_RATE   fraction, e.g. 0.25
//	WINDOW_<SERVICE>_SECONDS         integer seconds
//
// Service names are uppercased with '-' and '.' mapped to '_'.
func (t Thresholds) ForService(service string) Thresholds {
	out := t
	if raw := os.Getenv("THRESHOLD_" + envKey(service) + "_ERROR_RATE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v > 0 {
			out.ErrorRate = v
		}
	}
	if raw := os.Getenv("WINDOW_" + envKey(service) + "_SECONDS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			out.Window = time.Duration(v) * time.Second
		}
	}
	return out
}

func envKey(service string) string {
	replacer := strings.NewReplacer("-", "_", ".", "_")
	return strings.ToUpper(replacer.Replace(service))
}
