package engine

import "fmt"

const (
	StatusHealthy  = "OK"
	StatusWarning  = "WARN"
	StatusCritical = "CRIT"

	CPUWarningThreshold  = 60.0
	CPUCriticalThreshold = 80.0
	RAMWarningThreshold  = 60.0
	RAMCriticalThreshold = 80.0
)

type CheckResult struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Status string  `json:"status"`
}

func getStatus(value, warning, critical float64) string {
	if value > critical {
		return StatusCritical
	}
	if value > warning {
		return StatusWarning
	}
	return StatusHealthy
}

// LoadStatus grades a usage percentage for display.
func LoadStatus(pct float64) string {
	return getStatus(pct, CPUWarningThreshold, CPUCriticalThreshold)
}

// Evaluate grades the figures of one host view. Temperature is reported only
// when the host sent one.
func Evaluate(v HostView) []CheckResult {
	result := []CheckResult{
		{
			Name:   "CPU Usage",
			Value:  v.CPUPercent,
			Status: getStatus(v.CPUPercent, CPUWarningThreshold, CPUCriticalThreshold),
		},
		{
			Name:   "RAM Usage",
			Value:  v.RAMPercent,
			Status: getStatus(v.RAMPercent, RAMWarningThreshold, RAMCriticalThreshold),
		},
	}

	if v.Temperature != nil {
		result = append(result, CheckResult{
			Name:   "Temperature",
			Value:  *v.Temperature,
			Status: StatusHealthy,
		})
	}

	// Idle hosts are still shown but flagged
	seen := StatusHealthy
	if v.State != Active {
		seen = StatusWarning
	}
	result = append(result, CheckResult{
		Name:   fmt.Sprintf("Last Seen (%s)", v.State),
		Value:  float64(v.AgeMs) / 1000,
		Status: seen,
	})

	return result
}
