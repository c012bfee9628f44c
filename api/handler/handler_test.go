package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/fastygo/tikshop/domain"
	"github.com/fastygo/tikshop/pkg/httpcontext"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
}

type sseEvent struct {
	name string
	data string
}

func testAdapter() *httpcontext.Adapter {
	return httpcontext.NewAdapter(time.Second)
}

func newRequest(method, uri, body string) *fasthttp.RequestCtx {
	var rc fasthttp.RequestCtx
	rc.Request.Header.SetMethod(method)
	rc.Request.SetRequestURI(uri)
	if body != "" {
		rc.Request.SetBodyString(body)
	}
	return &rc
}

func decodeEnvelope(t *testing.T, rc *fasthttp.RequestCtx) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rc.Response.Body(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, rc.Response.Body())
	}
	return env
}

// readEvents serves handler on an in-memory listener and collects the first n
// server-sent events of a GET to uri.
func readEvents(t *testing.T, handler fasthttp.RequestHandler, uri string, n int) []sseEvent {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: handler}
	go func() { _ = server.Serve(ln) }()
	defer ln.Close()

	conn, err := ln.Dial()
	if err != nil {
		t.Fatalf("Dial() unexpected error = %v", err)
	}
	defer conn.Close()
	return collectEvents(t, conn, uri, n)
}

// collectEvents sends a GET for uri on conn and parses the first n
// server-sent events of the answer.
func collectEvents(t *testing.T, conn net.Conn, uri string, n int) []sseEvent {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline() unexpected error = %v", err)
	}
	if _, err := fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: test\r\n\r\n", uri); err != nil {
		t.Fatalf("write request: %v", err)
	}

	reader := bufio.NewReader(conn)
	var events []sseEvent
	var name string
	for len(events) < n {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream after %d events: %v", len(events), err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: ") && name != "":
			events = append(events, sseEvent{name: name, data: strings.TrimPrefix(line, "data: ")})
			name = ""
		}
	}
	return events
}

type memProducts struct {
	mu    sync.Mutex
	items []domain.Product
}

func (m *memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (m *memProducts) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.ApplyFilter(m.items, filter), nil
}

func (m *memProducts) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	return p, nil
}

func (m *memProducts) Update(context.Context, *domain.Product) error { return nil }

func (m *memProducts) UpdateStatus(context.Context, string, domain.ProductStatus) error { return nil }

func (m *memProducts) Delete(context.Context, string) error { return nil }

// relayFeed forwards snapshots pushed on ch to the single subscriber.
type relayFeed struct {
	ch chan domain.CatalogSnapshot
}

func (f *relayFeed) Subscribe(ctx context.Context) (<-chan domain.CatalogSnapshot, error) {
	out := make(chan domain.CatalogSnapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-f.ch:
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type memPreferences struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *memPreferences) GetPreference(_ context.Context, clientID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[clientID+"/"+key], nil
}

func (m *memPreferences) SetPreference(_ context.Context, clientID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[clientID+"/"+key] = value
	return nil
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "unauthorized", err: domain.ErrInvalidCredentials, status: fasthttp.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "invalid", err: domain.ErrInvalidPayload, status: fasthttp.StatusBadRequest, code: "INVALID"},
		{name: "not found", err: domain.ErrProductNotFound, status: fasthttp.StatusNotFound, code: "NOT_FOUND"},
		{name: "conflict", err: domain.ErrProductUnavailable, status: fasthttp.StatusConflict, code: "CONFLICT"},
		{name: "plain error", err: fmt.Errorf("boom"), status: fasthttp.StatusInternalServerError, code: "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := mapError(tt.err)
			if status != tt.status || code != tt.code {
				t.Errorf("mapError() = %d %s, want %d %s", status, code, tt.status, tt.code)
			}
		})
	}
}

func TestRespondErrorHidesCause(t *testing.T) {
	h := newBaseHandler(nil, nil)
	rc := newRequest(fasthttp.MethodGet, "/x", "")
	h.respondError(rc, context.Background(), domain.WrapError(domain.ErrCodeInternal, "could not load products", fmt.Errorf("dial tcp 10.0.0.1:5432")))

	env := decodeEnvelope(t, rc)
	if env.Error != "could not load products" {
		t.Errorf("error = %q, want the user message only", env.Error)
	}
	if rc.Response.StatusCode() != fasthttp.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rc.Response.StatusCode())
	}
}
