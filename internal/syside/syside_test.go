package syside

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      time.Hour,
		HalfOpenMaxCalls: 1,
	})

	for i := 0; i < 3; i++ {
		if !cb.Allow() {
			t.Fatalf("call %d should be allowed while closed", i)
		}
		cb.RecordFailure()
	}

	if cb.State() != CircuitOpen {
		t.Errorf("expected open circuit, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("open circuit should reject calls")
	}
}

func TestCircuitHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("half-open circuit should allow a probe call")
	}
	cb.RecordSuccess()

	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after probe success, got %s", cb.State())
	}
}

func TestCircuitHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		OpenTimeout:      10 * time.Millisecond,
		HalfOpenMaxCalls: 1,
	})

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("half-open circuit should allow a probe call")
	}
	cb.RecordFailure()

	if cb.State() != CircuitOpen {
		t.Errorf("expected reopened circuit, got %s", cb.State())
	}
}

func TestDisabledCheckerReturnsEmptyResult(t *testing.T) {
	checker := NewChecker(DefaultCheckerConfig())

	if checker.Enabled() {
		t.Fatal("default config should leave the checker disabled")
	}

	result, err := checker.Check(context.Background(), "file:///ws/m.sysml", "package P;")
	if err != nil {
		t.Fatalf("disabled check should succeed: %v", err)
	}
	if len(result.Diagnostics) != 0 {
		t.Errorf("expected no diagnostics, got %d", len(result.Diagnostics))
	}
}

func TestCheckResultErrorCount(t *testing.T) {
	result := &CheckResult{Diagnostics: []Diagnostic{
		{Severity: SeverityError, Message: "unresolved reference"},
		{Severity: SeverityWarning, Message: "unused import"},
		{Severity: SeverityError, Message: "duplicate name"},
	}}

	if got := result.ErrorCount(); got != 2 {
		t.Errorf("expected 2 errors, got %d", got)
	}
}

type fakeServer struct {
	diagnostics []Diagnostic
}

func (s *fakeServer) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	switch req.Method {
	case "initialize":
		conn.Reply(ctx, req.ID, initializeResult{})

	case "shutdown":
		conn.Reply(ctx, req.ID, nil)

	case "textDocument/didOpen":
		var params didOpenParams
		if req.Params != nil {
			json.Unmarshal(*req.Params, &params)
		}
		conn.Notify(ctx, "textDocument/publishDiagnostics", publishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: s.diagnostics,
		})
	}
}

func startFakeServer(t *testing.T, server *fakeServer) *Client {
	t.Helper()

	clientConn, serverConn := net.Pipe()

	ctx := context.Background()
	stream := jsonrpc2.NewBufferedStream(serverConn, jsonrpc2.VSCodeObjectCodec{})
	srv := jsonrpc2.NewConn(ctx, stream, server)
	t.Cleanup(func() { srv.Close() })

	client, err := NewClient(ctx, clientConn, clientConn, ClientConfig{
		InitTimeout:    5 * time.Second,
		RequestTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client
}

func TestClientCheckCollectsDiagnostics(t *testing.T) {
	server := &fakeServer{diagnostics: []Diagnostic{
		{
			Severity: SeverityError,
			Message:  "could not resolve 'Vehicle'",
			Range:    Range{Start: Position{Line: 2, Character: 9}},
		},
	}}

	client := startFakeServer(t, server)

	if err := client.Initialize(context.Background(), "file:///ws"); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if !client.IsReady() {
		t.Fatal("client should be ready after initialize")
	}

	result, err := client.Check(context.Background(), "file:///ws/m.sysml", "part car : Vehicle;")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", len(result.Diagnostics))
	}
	if result.Diagnostics[0].Message != "could not resolve 'Vehicle'" {
		t.Errorf("unexpected message: %q", result.Diagnostics[0].Message)
	}
	if result.ErrorCount() != 1 {
		t.Errorf("expected 1 error, got %d", result.ErrorCount())
	}
}

func TestClientCheckBeforeInitialize(t *testing.T) {
	client := startFakeServer(t, &fakeServer{})

	_, err := client.Check(context.Background(), "file:///ws/m.sysml", "")
	if err != ErrNotInitialized {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
