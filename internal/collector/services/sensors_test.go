package services

import (
	"context"
	"encoding/json"
	"testing"
)

type sensorTestCase struct {
	name     string
	factory  func() Sensor
	optional bool
}

var sensorCases = []sensorTestCase{
	{name: "CPU", factory: func() Sensor { return NewCPUSensor() }},
	{name: "Memory", factory: func() Sensor { return NewMemSensor() }},
	{name: "Host", factory: func() Sensor { return NewHostSensor() }},
	{name: "Physical", factory: func() Sensor { return NewPhysicalSensor() }, optional: true},
}

func TestSensorsSuite(t *testing.T) {
	ctx := context.Background()

	for _, tc := range sensorCases {
		t.Run(tc.name, func(t *testing.T) {
			sensor := tc.factory()
			if sensor.Name() != tc.name {
				t.Errorf("Expected name %s, got %s", tc.name, sensor.Name())
			}

			if err := sensor.Connect(ctx); err != nil {
				t.Fatalf("%s Connect failed: %v", tc.name, err)
			}
			defer sensor.Disconnect(ctx)

			result, err := sensor.Collect(ctx)
			if err != nil {
				if tc.optional {
					t.Logf("%s Collect skipped (optional): %v", tc.name, err)
					return
				}
				t.Fatalf("%s Collect failed: %v", tc.name, err)
			}
			if result == nil {
				t.Fatalf("%s Collect returned nil result", tc.name)
			}

			logSensorResult(t, tc.name, result)
		})
	}
}

func TestHottest(t *testing.T) {
	if _, ok := (PhysicalResult{}).Hottest(); ok {
		t.Error("Expected no reading for an empty result")
	}
	r := PhysicalResult{Temperatures: []TempStat{{"a", 41}, {"b", 67.5}, {"c", 50}}}
	if v, ok := r.Hottest(); !ok || v != 67.5 {
		t.Errorf("Expected 67.5, got %v (ok=%v)", v, ok)
	}
}

func logSensorResult(t *testing.T, name string, result any) {
	t.Helper()

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		t.Logf("%s result: %+v", name, result)
		return
	}

	t.Logf("%s result:\n%s", name, payload)
}
