package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"hostwatch/internal/collector/services"
)

type mockSensor struct {
	name  string
	value any
	err   error
	calls int
}

func (m *mockSensor) Name() string                         { return m.name }
func (m *mockSensor) Connect(ctx context.Context) error    { return nil }
func (m *mockSensor) Disconnect(ctx context.Context) error { return nil }
func (m *mockSensor) Collect(ctx context.Context) (any, error) {
	m.calls++
	return m.value, m.err
}

func newMockLocalSource(cpu, mem, host, phys *mockSensor) *LocalSource {
	s := &LocalSource{
		cpuSensor:  cpu,
		memSensor:  mem,
		hostSensor: host,
		now:        func() time.Time { return time.UnixMilli(1700000000000) },
	}
	if phys != nil {
		s.physicalSensor = phys
	}
	return s
}

func TestLocalSourceFetchMetrics(t *testing.T) {
	host := &mockSensor{name: "Host", value: services.HostResult{Hostname: "devbox"}}
	src := newMockLocalSource(
		&mockSensor{name: "CPU", value: services.CPUResult{TotalUsage: 42}},
		&mockSensor{name: "Memory", value: services.MemResult{UsedPercent: 25, TotalMB: 16000, UsedMB: 4000}},
		host,
		&mockSensor{name: "Physical", value: services.PhysicalResult{Temperatures: []services.TempStat{
			{SensorKey: "cpu", Temperature: 48},
			{SensorKey: "gpu", Temperature: 61.5},
		}}},
	)

	for i := 0; i < 2; i++ {
		batch, err := src.FetchMetrics(context.Background())
		if err != nil {
			t.Fatalf("FetchMetrics failed: %v", err)
		}
		if len(batch.Snapshots) != 1 {
			t.Fatalf("Expected 1 snapshot, got %d", len(batch.Snapshots))
		}
		snap := batch.Snapshots[0]
		if snap.Hostname != "devbox" {
			t.Errorf("Expected hostname devbox, got %s", snap.Hostname)
		}
		if snap.CPUPercent != 42 || snap.RAMPercent != 25 || snap.RAMTotalMB != 16000 {
			t.Errorf("Unexpected snapshot %+v", snap)
		}
		if snap.Temperature == nil || *snap.Temperature != 61.5 {
			t.Errorf("Expected hottest temperature 61.5, got %v", snap.Temperature)
		}
		if snap.TimestampMs != 1700000000000 {
			t.Errorf("Expected timestamp from clock, got %d", snap.TimestampMs)
		}
	}
	if host.calls != 1 {
		t.Errorf("Expected hostname to be cached, got %d lookups", host.calls)
	}
}

func TestLocalSourceErrors(t *testing.T) {
	okCPU := &mockSensor{name: "CPU", value: services.CPUResult{TotalUsage: 1}}
	okMem := &mockSensor{name: "Memory", value: services.MemResult{UsedPercent: 1}}
	okHost := &mockSensor{name: "Host", value: services.HostResult{Hostname: "h"}}
	boom := errors.New("boom")

	tests := []struct {
		name string
		src  *LocalSource
	}{
		{"cpu failure", newMockLocalSource(&mockSensor{err: boom}, okMem, okHost, nil)},
		{"memory failure", newMockLocalSource(okCPU, &mockSensor{err: boom}, okHost, nil)},
		{"host failure", newMockLocalSource(okCPU, okMem, &mockSensor{err: boom}, nil)},
		{"empty hostname", newMockLocalSource(okCPU, okMem, &mockSensor{value: services.HostResult{}}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.src.FetchMetrics(context.Background()); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLocalSourceTemperatureBestEffort(t *testing.T) {
	src := newMockLocalSource(
		&mockSensor{value: services.CPUResult{TotalUsage: 5}},
		&mockSensor{value: services.MemResult{UsedPercent: 5}},
		&mockSensor{value: services.HostResult{Hostname: "h"}},
		&mockSensor{err: errors.New("no sensors")},
	)

	batch, err := src.FetchMetrics(context.Background())
	if err != nil {
		t.Fatalf("Expected temperature failure to be tolerated, got %v", err)
	}
	if batch.Snapshots[0].Temperature != nil {
		t.Errorf("Expected no temperature, got %v", *batch.Snapshots[0].Temperature)
	}
}

func TestNewLocalSourceTemperatures(t *testing.T) {
	if NewLocalSource(DefaultCollectorConfig()).physicalSensor == nil {
		t.Error("Expected physical sensor when temperatures are enabled")
	}
	if NewLocalSource(DefaultCollectorConfig().WithTemperatures(false)).physicalSensor != nil {
		t.Error("Expected no physical sensor when temperatures are disabled")
	}
}
