package engine

import (
	"fmt"
	"math"
	"time"
)

// LifecycleState is the liveness of a host derived from the age of its
// latest snapshot.
type LifecycleState int

const (
	Active LifecycleState = iota
	Idle
	Expired
)

func (s LifecycleState) String() string {
	switch s {
	case Active:
		return "active"
	case Idle:
		return "idle"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("LifecycleState(%d)", int(s))
	}
}

// MarshalText lets states appear by name in JSON output.
func (s LifecycleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	DefaultActiveWindow = 10 * time.Second
	DefaultExpiryWindow = 30 * time.Second
)

// Thresholds bound the Active and Idle windows.
type Thresholds struct {
	Active time.Duration
	Expiry time.Duration
}

func DefaultThresholds() Thresholds {
	return Thresholds{Active: DefaultActiveWindow, Expiry: DefaultExpiryWindow}
}

// Validate requires 0 < Active < Expiry.
func (t Thresholds) Validate() error {
	if t.Active <= 0 {
		return fmt.Errorf("active window must be positive, got %s", t.Active)
	}
	if t.Expiry <= t.Active {
		return fmt.Errorf("expiry window %s must exceed active window %s", t.Expiry, t.Active)
	}
	return nil
}

// Liveness is the classification of one snapshot at one instant.
// RemainingSeconds and ProgressFraction are only set for Idle.
type Liveness struct {
	State            LifecycleState `json:"state"`
	AgeMs            int64          `json:"age_ms"`
	RemainingSeconds int            `json:"remaining_seconds"`
	ProgressFraction float64        `json:"progress_fraction"`
}

// Classify maps the age of a snapshot taken at tsMs, observed at nowMs, to a
// lifecycle state. Negative ages (clock skew) count as Active.
func Classify(tsMs, nowMs int64, t Thresholds) Liveness {
	age := nowMs - tsMs
	activeMs := t.Active.Milliseconds()
	expiryMs := t.Expiry.Milliseconds()

	switch {
	case age <= activeMs:
		return Liveness{State: Active, AgeMs: age}
	case age <= expiryMs:
		ageSec := float64(age) / 1000
		expirySec := float64(expiryMs) / 1000
		activeSec := float64(activeMs) / 1000

		remaining := int(math.Ceil(expirySec - ageSec))
		if remaining < 0 {
			remaining = 0
		}
		return Liveness{
			State:            Idle,
			AgeMs:            age,
			RemainingSeconds: remaining,
			ProgressFraction: clamp01((ageSec - activeSec) / (expirySec - activeSec)),
		}
	default:
		return Liveness{State: Expired, AgeMs: age}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
