// Package syside talks to an external SysIDE language server over stdio
// so pushed models can be semantically validated before they reach the
// repository. The checker is optional: with no command configured every
// check succeeds vacuously.
package syside

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

var (
	ErrNotInitialized = errors.New("checker client not initialized")
	ErrAlreadyClosed  = errors.New("checker client already closed")
)

type ClientConfig struct {
	InitTimeout    time.Duration
	RequestTimeout time.Duration
}

type Client struct {
	conn         *jsonrpc2.Conn
	config       ClientConfig
	state        atomic.Value
	capabilities serverCapabilities

	waiters map[string]chan []Diagnostic
	mu      sync.Mutex

	closedCh chan struct{}
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *stdioReadWriteCloser) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

func (s *stdioReadWriteCloser) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

func NewClient(ctx context.Context, stdin io.WriteCloser, stdout io.ReadCloser, config ClientConfig) (*Client, error) {
	rwc := &stdioReadWriteCloser{
		reader: stdout,
		writer: stdin,
	}

	c := &Client{
		config:   config,
		waiters:  make(map[string]chan []Diagnostic),
		closedCh: make(chan struct{}),
	}
	c.state.Store(StateStarting)

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, &clientHandler{client: c})

	return c, nil
}

type clientHandler struct {
	client *Client
}

func (h *clientHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Method != "textDocument/publishDiagnostics" || req.Params == nil {
		return
	}

	var params publishDiagnosticsParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return
	}

	h.client.deliverDiagnostics(params.URI, params.Diagnostics)
}

func (c *Client) deliverDiagnostics(uri string, diags []Diagnostic) {
	c.mu.Lock()
	ch, ok := c.waiters[uri]
	if ok {
		delete(c.waiters, uri)
	}
	c.mu.Unlock()

	if ok {
		ch <- diags
	}
}

func (c *Client) Initialize(ctx context.Context, rootURI string) error {
	if c.getState() != StateStarting {
		return fmt.Errorf("cannot initialize: client in state %s", c.getState())
	}
	c.state.Store(StateInitializing)

	initCtx, cancel := context.WithTimeout(ctx, c.config.InitTimeout)
	defer cancel()

	params := initializeParams{
		ProcessID: os.Getpid(),
		RootURI:   rootURI,
		Capabilities: map[string]any{
			"textDocument": map[string]any{
				"publishDiagnostics": map[string]any{},
			},
		},
	}

	var result initializeResult
	if err := c.conn.Call(initCtx, "initialize", params, &result); err != nil {
		c.state.Store(StateError)
		return fmt.Errorf("initialize failed: %w", err)
	}

	c.capabilities = result.Capabilities

	if err := c.conn.Notify(initCtx, "initialized", struct{}{}); err != nil {
		c.state.Store(StateError)
		return fmt.Errorf("initialized notification failed: %w", err)
	}

	c.state.Store(StateReady)
	return nil
}

// Check opens the document on the server and waits for the diagnostics it
// publishes back.
func (c *Client) Check(ctx context.Context, uri, text string) (*CheckResult, error) {
	if !c.IsReady() {
		return nil, ErrNotInitialized
	}

	ch := make(chan []Diagnostic, 1)
	c.mu.Lock()
	c.waiters[uri] = ch
	c.mu.Unlock()

	timeoutCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	openParams := didOpenParams{
		TextDocument: textDocumentItem{
			URI:        uri,
			LanguageID: "sysml",
			Version:    1,
			Text:       text,
		},
	}
	if err := c.conn.Notify(timeoutCtx, "textDocument/didOpen", openParams); err != nil {
		c.removeWaiter(uri)
		return nil, fmt.Errorf("didOpen notification failed: %w", err)
	}

	defer func() {
		closeParams := didCloseParams{TextDocument: textDocumentIdentifier{URI: uri}}
		_ = c.conn.Notify(context.Background(), "textDocument/didClose", closeParams)
	}()

	select {
	case diags := <-ch:
		return &CheckResult{URI: uri, Diagnostics: diags}, nil
	case <-timeoutCtx.Done():
		c.removeWaiter(uri)
		return nil, fmt.Errorf("no diagnostics within %s: %w", c.config.RequestTimeout, timeoutCtx.Err())
	case <-c.closedCh:
		return nil, ErrAlreadyClosed
	}
}

func (c *Client) removeWaiter(uri string) {
	c.mu.Lock()
	delete(c.waiters, uri)
	c.mu.Unlock()
}

func (c *Client) Shutdown(ctx context.Context) error {
	if !c.IsReady() {
		return ErrNotInitialized
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	var result any
	if err := c.conn.Call(timeoutCtx, "shutdown", nil, &result); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	if err := c.conn.Notify(ctx, "exit", nil); err != nil {
		return fmt.Errorf("exit notification failed: %w", err)
	}

	return nil
}

func (c *Client) Close() error {
	select {
	case <-c.closedCh:
		return ErrAlreadyClosed
	default:
		close(c.closedCh)
	}

	c.state.Store(StateStopped)
	return c.conn.Close()
}

func (c *Client) IsReady() bool {
	return c.getState() == StateReady
}

func (c *Client) getState() CheckerState {
	return c.state.Load().(CheckerState)
}

func (c *Client) State() CheckerState {
	return c.getState()
}
