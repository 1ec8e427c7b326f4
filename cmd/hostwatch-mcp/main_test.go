package main

import (
	"context"
	"errors"
	"testing"
)

type mockWorkers struct {
	started  bool
	stopped  bool
	reported bool
}

func (m *mockWorkers) Start(ctx context.Context) <-chan error {
	m.started = true
	ch := make(chan error, 1)
	go func() {
		<-ctx.Done()
		m.stopped = true
		ch <- ctx.Err()
	}()
	return ch
}

func (m *mockWorkers) Report() { m.reported = true }

type mockServer struct {
	start func(ctx context.Context) error
}

func (m mockServer) Start(ctx context.Context) error { return m.start(ctx) }

func TestServe(t *testing.T) {
	transportErr := errors.New("broken pipe")

	tests := []struct {
		name    string
		start   func(ctx context.Context) error
		cancel  bool
		wantErr error
	}{
		{
			name:  "client leaves",
			start: func(ctx context.Context) error { return nil },
		},
		{
			name:    "transport error",
			start:   func(ctx context.Context) error { return transportErr },
			wantErr: transportErr,
		},
		{
			name: "interrupted",
			start: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			},
			cancel: true,
		},
		{
			name: "error after interrupt",
			start: func(ctx context.Context) error {
				<-ctx.Done()
				return transportErr
			},
			cancel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			w := &mockWorkers{}
			err := serve(ctx, w, mockServer{start: tt.start})

			if tt.wantErr == nil && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			if !w.started || !w.stopped || !w.reported {
				t.Errorf("Expected workers started, stopped and reported, got %+v", *w)
			}
		})
	}
}
