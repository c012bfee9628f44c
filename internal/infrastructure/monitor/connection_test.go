package monitor

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sizer struct {
	n   int
	err error
}

func (s sizer) Size() (int, error) { return s.n, s.err }

func TestMonitor_Refresh(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name       string
		events     EventLogSizer
		wantEvents bool
		wantCount  int
	}{
		{name: "event log healthy", events: sizer{n: 42}, wantEvents: true, wantCount: 42},
		{name: "event log failing", events: sizer{err: errors.New("bolt closed")}, wantEvents: false},
		{name: "no event log", events: nil, wantEvents: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(nil, client, tt.events, 0, nil)
			m.Refresh()
			status := m.GetStatus()

			if !status.Redis {
				t.Error("Redis = false, want true")
			}
			if status.PostgreSQL {
				t.Error("PostgreSQL = true without a pool")
			}
			if status.EventLog != tt.wantEvents || status.Events != tt.wantCount {
				t.Errorf("EventLog/Events = %v/%d, want %v/%d", status.EventLog, status.Events, tt.wantEvents, tt.wantCount)
			}
			if m.IsOnline() {
				t.Error("IsOnline() = true while postgres is down")
			}
			if status.LastCheck.IsZero() {
				t.Error("LastCheck not set")
			}
		})
	}
}

func TestMonitor_StopIsIdempotent(t *testing.T) {
	m := New(nil, nil, nil, 0, nil)
	m.Start()
	m.Stop()
	m.Stop()
}

func TestMonitor_LogsTransitions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	core, logs := observer.New(zap.InfoLevel)
	m := New(nil, client, sizer{n: 1}, 0, zap.New(core))

	m.Refresh()
	m.Refresh()
	if got := logs.FilterMessage("dependency unavailable").Len(); got != 1 {
		t.Fatalf("unavailable logs = %d, want 1 (postgres, once)", got)
	}

	mr.Close()
	m.Refresh()
	if m.GetStatus().Redis {
		t.Fatal("Redis = true after the server stopped")
	}
	down := logs.FilterMessage("dependency unavailable").FilterField(zap.String("dependency", "redis"))
	if down.Len() != 1 {
		t.Errorf("redis unavailable logs = %d, want 1", down.Len())
	}

	if err := mr.Restart(); err != nil {
		t.Fatalf("Restart() unexpected error = %v", err)
	}
	m.Refresh()
	up := logs.FilterMessage("dependency recovered").FilterField(zap.String("dependency", "redis"))
	if up.Len() != 1 {
		t.Errorf("redis recovered logs = %d, want 1", up.Len())
	}
}
