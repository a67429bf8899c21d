package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func submitTestRequest(t *testing.T, m *Manager, id, url string) (chan *Response, chan error) {
	t.Helper()
	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)
	err := m.Submit(&Request{
		ID:         id,
		Priority:   PriorityCritical,
		Context:    context.Background(),
		URL:        url,
		Payload:    map[string]interface{}{"prompt": id},
		ResponseCh: respCh,
		ErrorCh:    errCh,
		SubmitTime: time.Now(),
		Timeout:    10 * time.Second,
	})
	if err != nil {
		t.Logf("submit %s: %v", id, err)
	}
	return respCh, errCh
}

func TestManager_StopWithFullQueue(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	cfg := &Config{MaxConcurrent: 1, CriticalQueueSize: 1, BackgroundQueueSize: 1}
	m := NewManager(cfg, nil)

	// "a" occupies the single processing slot.
	aResp, aErr := submitTestRequest(t, m, "a", srv.URL)
	time.Sleep(50 * time.Millisecond)
	// "b" is dequeued by the dispatcher and waits for a slot.
	submitTestRequest(t, m, "b", srv.URL)
	time.Sleep(50 * time.Millisecond)
	// "c" refills the queue behind "b", so "b" cannot go back in.
	submitTestRequest(t, m, "c", srv.URL)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop hung while holding an undispatched request")
	}

	select {
	case <-aResp:
	case err := <-aErr:
		t.Errorf("in-flight request failed during shutdown: %v", err)
	case <-time.After(time.Second):
		t.Errorf("in-flight request never completed")
	}
}

func TestManager_MetricsSnapshotIsIndependent(t *testing.T) {
	m := NewManager(DefaultConfig(), nil)
	defer m.Stop()

	a := m.GetMetrics()
	b := m.GetMetrics()

	a.CurrentQueueDepth[PriorityCritical] = 99
	if b.CurrentQueueDepth[PriorityCritical] == 99 {
		t.Errorf("queue depth map shared between metrics snapshots")
	}
	if got := m.GetMetrics().CurrentQueueDepth[PriorityCritical]; got == 99 {
		t.Errorf("caller mutation leaked into manager state: %d", got)
	}
}

func TestManager_SubmitDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := &Config{MaxConcurrent: 1, CriticalQueueSize: 1, BackgroundQueueSize: 1}
	m := NewManager(cfg, nil)
	defer m.Stop()
	defer close(release) // unblock the handler before Stop waits

	submitTestRequest(t, m, "slot", srv.URL)
	time.Sleep(50 * time.Millisecond)
	submitTestRequest(t, m, "waiting", srv.URL)
	time.Sleep(50 * time.Millisecond)
	submitTestRequest(t, m, "queued", srv.URL)

	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)
	err := m.Submit(&Request{
		ID:         "overflow",
		Priority:   PriorityCritical,
		Context:    context.Background(),
		URL:        srv.URL,
		Payload:    map[string]interface{}{},
		ResponseCh: respCh,
		ErrorCh:    errCh,
		SubmitTime: time.Now(),
		Timeout:    time.Second,
	})
	if err == nil {
		t.Errorf("expected overflow submit to be rejected")
	}
	if m.GetMetrics().CriticalDropped == 0 {
		t.Errorf("expected drop to be counted")
	}
}
