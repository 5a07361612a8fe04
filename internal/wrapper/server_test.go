package wrapper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// logSink hands each log event to the test as it is written.
type logSink struct {
	ch chan []byte
}

func (b *logSink) Write(p []byte) (int, error) {
	b.ch <- append([]byte(nil), p...)
	return len(p), nil
}

func startTestServer(t *testing.T, d Descriptor, level zerolog.Level) (*Server, string, *logSink, func() error) {
	t.Helper()
	logs := &logSink{ch: make(chan []byte, 16)}
	logger := zerolog.New(logs).Level(level)
	srv := New(Options{Descriptor: d}, &logger)
	if srv.State() != StateStopped {
		t.Fatalf("new server should be stopped, got %s", srv.State())
	}
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln, time.Second) }()
	var once sync.Once
	var stopErr error
	stop := func() error {
		once.Do(func() {
			cancel()
			select {
			case stopErr = <-done:
			case <-time.After(5 * time.Second):
				stopErr = errors.New("server did not stop")
			}
		})
		return stopErr
	}
	t.Cleanup(func() { _ = stop() })
	return srv, ln.Addr().String(), logs, stop
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func TestEndToEnd(t *testing.T) {
	d := Descriptor{Name: "MCP HTTP Wrapper", Note: "This is a wrapper for MCP servers that use stdio transport"}
	srv, addr, logs, stop := startTestServer(t, d, zerolog.TraceLevel)
	base := "http://" + addr

	select {
	case line := <-logs.ch:
		var ev map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(line), &ev); err != nil {
			t.Fatalf("decode startup log: %v", err)
		}
		_, port, _ := net.SplitHostPort(addr)
		if msg, _ := ev["message"].(string); msg != "MCP HTTP Wrapper listening on port "+port {
			t.Fatalf("unexpected startup line: %v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no startup log line")
	}
	if srv.State() != StateListening {
		t.Fatalf("expected listening, got %s", srv.State())
	}

	resp, body := do(t, http.MethodGet, base+"/health")
	if resp.StatusCode != http.StatusOK || string(body) != `{"status":"healthy","service":"MCP HTTP Wrapper"}` {
		t.Fatalf("GET /health: %d %s", resp.StatusCode, body)
	}
	assertFixedHeaders(t, resp.Header)

	resp, body = do(t, http.MethodGet, base+"/unknown")
	if resp.StatusCode != http.StatusNotFound || string(body) != `{"error":"Not found"}` {
		t.Fatalf("GET /unknown: %d %s", resp.StatusCode, body)
	}
	assertFixedHeaders(t, resp.Header)

	for _, target := range []string{"/health?x=1", "/%68ealth"} {
		resp, body = do(t, http.MethodGet, base+target)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d %s", target, resp.StatusCode, body)
		}
	}

	resp, body = do(t, http.MethodOptions, base+"/mcp")
	if resp.StatusCode != http.StatusOK || len(body) != 0 {
		t.Fatalf("OPTIONS /mcp: %d %q", resp.StatusCode, body)
	}
	assertFixedHeaders(t, resp.Header)

	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if srv.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", srv.State())
	}
}

func TestStartupLineIgnoresLevel(t *testing.T) {
	_, addr, logs, stop := startTestServer(t, testDesc, zerolog.ErrorLevel)
	_, port, _ := net.SplitHostPort(addr)
	select {
	case line := <-logs.ch:
		var ev map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(line), &ev); err != nil {
			t.Fatalf("decode startup log: %v", err)
		}
		if msg, _ := ev["message"].(string); msg != testDesc.Name+" listening on port "+port {
			t.Fatalf("unexpected startup line: %v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("startup line suppressed at error level")
	}
	if err := stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSecondBindFails(t *testing.T) {
	_, addr, _, _ := startTestServer(t, testDesc, zerolog.TraceLevel)

	second := New(Options{Descriptor: testDesc}, nil)
	err := second.Start(context.Background(), addr, time.Second)
	var be *BindError
	if !errors.As(err, &be) {
		t.Fatalf("expected BindError, got %v", err)
	}
	if be.Addr != addr {
		t.Fatalf("unexpected addr %q", be.Addr)
	}
	if second.State() != StateStopped {
		t.Fatalf("failed server must stay stopped, got %s", second.State())
	}
}

func TestPort(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	_, p, _ := net.SplitHostPort(ln.Addr().String())
	if got := Port(ln); strconv.Itoa(got) != p {
		t.Fatalf("unexpected port %d for %s", got, ln.Addr())
	}
}

func TestStateString(t *testing.T) {
	if StateStopped.String() != "stopped" || StateListening.String() != "listening" || State(7).String() != "unknown" {
		t.Fatalf("unexpected state names")
	}
}
