package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hostwatch/internal/collector/services"
	"hostwatch/internal/telemetry"
)

// LocalSource reports the machine hostwatch runs on as a single-host metrics
// batch, so the dashboard works without a backend.
type LocalSource struct {
	cpuSensor      services.Sensor
	memSensor      services.Sensor
	hostSensor     services.Sensor
	physicalSensor services.Sensor

	now func() time.Time

	mu       sync.Mutex
	hostname string
}

func NewLocalSource(cfg CollectorConfig) *LocalSource {
	s := &LocalSource{
		cpuSensor:  services.NewCPUSensor(),
		memSensor:  services.NewMemSensor(),
		hostSensor: services.NewHostSensor(),
		now:        time.Now,
	}
	if cfg.EnableTemperatures {
		s.physicalSensor = services.NewPhysicalSensor()
	}
	return s
}

// Internal result types for concurrency
type sensorResult struct {
	value any
	err   error
}

func collect(ctx context.Context, wg *sync.WaitGroup, sensor services.Sensor, ch chan<- sensorResult) {
	defer wg.Done()
	if sensor == nil {
		ch <- sensorResult{}
		return
	}
	v, err := sensor.Collect(ctx)
	ch <- sensorResult{value: v, err: err}
}

func (s *LocalSource) FetchMetrics(ctx context.Context) (MetricsBatch, error) {
	cpuCh := make(chan sensorResult, 1)
	memCh := make(chan sensorResult, 1)
	physCh := make(chan sensorResult, 1)

	var wg sync.WaitGroup
	wg.Add(3)
	go collect(ctx, &wg, s.cpuSensor, cpuCh)
	go collect(ctx, &wg, s.memSensor, memCh)
	go collect(ctx, &wg, s.physicalSensor, physCh)

	hostname, hostErr := s.resolveHostname(ctx)
	wg.Wait()

	cpuRes, memRes, physRes := <-cpuCh, <-memCh, <-physCh

	if hostErr != nil {
		return MetricsBatch{}, hostErr
	}
	if cpuRes.err != nil {
		return MetricsBatch{}, fmt.Errorf("failed to get CPU metrics: %w", cpuRes.err)
	}
	if memRes.err != nil {
		return MetricsBatch{}, fmt.Errorf("failed to get memory metrics: %w", memRes.err)
	}

	cpu, _ := cpuRes.value.(services.CPUResult)
	mem, _ := memRes.value.(services.MemResult)

	snap := telemetry.HostSnapshot{
		Hostname:    hostname,
		CPUPercent:  cpu.TotalUsage,
		RAMTotalMB:  mem.TotalMB,
		RAMUsedMB:   mem.UsedMB,
		RAMPercent:  mem.UsedPercent,
		TimestampMs: s.now().UnixMilli(),
	}
	// Temperatures are best-effort
	if phys, ok := physRes.value.(services.PhysicalResult); ok && physRes.err == nil {
		if t, ok := phys.Hottest(); ok {
			snap.Temperature = &t
		}
	}

	return MetricsBatch{Snapshots: []telemetry.HostSnapshot{snap}}, nil
}

func (s *LocalSource) resolveHostname(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostname != "" {
		return s.hostname, nil
	}
	res, err := s.hostSensor.Collect(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get host info: %w", err)
	}
	info, ok := res.(services.HostResult)
	if !ok || info.Hostname == "" {
		return "", fmt.Errorf("failed to get host info: no hostname")
	}
	s.hostname = info.Hostname
	return s.hostname, nil
}
