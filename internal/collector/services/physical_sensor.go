package services

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/sensors"
)

type TempStat struct {
	SensorKey   string
	Temperature float64
}

type PhysicalResult struct {
	Temperatures []TempStat
}

// Hottest returns the highest reading, if any sensor reported one.
func (r PhysicalResult) Hottest() (float64, bool) {
	if len(r.Temperatures) == 0 {
		return 0, false
	}
	hottest := r.Temperatures[0].Temperature
	for _, t := range r.Temperatures[1:] {
		if t.Temperature > hottest {
			hottest = t.Temperature
		}
	}
	return hottest, true
}

type PhysicalSensor struct{}

func NewPhysicalSensor() *PhysicalSensor {
	return &PhysicalSensor{}
}

func (s *PhysicalSensor) Name() string {
	return "Physical"
}

func (s *PhysicalSensor) Connect(ctx context.Context) error {
	return nil
}

func (s *PhysicalSensor) Disconnect(ctx context.Context) error {
	return nil
}

// Collect tolerates partial readings: gopsutil returns both data and a
// warning error on hosts where some sensors cannot be read.
func (s *PhysicalSensor) Collect(ctx context.Context) (any, error) {
	data, err := sensors.TemperaturesWithContext(ctx)
	if err != nil && len(data) == 0 {
		return nil, fmt.Errorf("failed to get temperatures: %w", err)
	}

	var temps []TempStat
	for _, t := range data {
		if t.Temperature <= 0 {
			continue
		}
		temps = append(temps, TempStat{
			SensorKey:   t.SensorKey,
			Temperature: t.Temperature,
		})
	}

	return PhysicalResult{Temperatures: temps}, nil
}
