// Package bridge talks to the HTTP move service (the "robot"): it posts the
// current position, races the reply against a timeout and a hard upper
// bound, and converts the reply to long algebraic notation.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"gnomes/pkg/rules"
)

// maxBodyBytes caps how much of a reply body is read.
const maxBodyBytes = 64 << 10

// Config holds move service settings.
type Config struct {
	URL             string        // POST endpoint.
	Timeout         time.Duration // Per-request timeout (default 5s).
	BoundMultiplier float64       // Hard bound is Timeout*BoundMultiplier (default 2).
	MaxRetries      int           // Extra attempts after an illegal reply (default 0 when negative).
}

// DefaultURL is the move service address used when none is configured.
const DefaultURL = "http://localhost:8000/move"

func (c *Config) withDefaults() Config {
	out := *c
	if out.URL == "" {
		out.URL = DefaultURL
	}
	if out.Timeout <= 0 {
		out.Timeout = 5 * time.Second
	}
	if out.BoundMultiplier < 1 {
		out.BoundMultiplier = 2
	}
	if out.MaxRetries < 0 {
		out.MaxRetries = 0
	}
	return out
}

// Bound returns the hard upper bound for a single request.
func (c Config) Bound() time.Duration {
	return time.Duration(float64(c.Timeout) * c.BoundMultiplier)
}

// Request is the JSON body posted to the move service.
type Request struct {
	FEN         string   `json:"fen"`
	Turn        string   `json:"turn"`
	FailedMoves []string `json:"failed_moves"`
}

// Result is a successful move lookup.
type Result struct {
	Move        string   // long algebraic
	Raw         string   // text the service returned
	Attempts    int      // requests made, including the successful one
	FailedMoves []string // rejected replies before the successful one
}

// Converter turns service text into long algebraic for a position.
type Converter interface {
	ToLong(fen, text string) (string, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(fen, text string) (string, error)

// ToLong implements Converter.
func (f ConverterFunc) ToLong(fen, text string) (string, error) { return f(fen, text) }

// Client is safe for concurrent use; SetConfig may be called while a
// request is in flight and applies to the next request.
type Client struct {
	mu   sync.Mutex
	cfg  Config
	http *http.Client
	conv Converter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithConverter replaces the rules-based notation converter.
func WithConverter(conv Converter) Option {
	return func(c *Client) { c.conv = conv }
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:  cfg.withDefaults(),
		http: &http.Client{},
		conv: ConverterFunc(rules.ToLong),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the current settings.
func (c *Client) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig replaces the settings atomically.
func (c *Client) SetConfig(cfg Config) {
	resolved := cfg.withDefaults()
	c.mu.Lock()
	c.cfg = resolved
	c.mu.Unlock()
}

// Update applies fn to a copy of the current settings and stores the result.
func (c *Client) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := c.cfg
	fn(&next)
	c.cfg = next.withDefaults()
}

// RequestMove asks the service for a move in fen and returns it in long
// algebraic notation. A reply that matches no legal move is retried up to
// MaxRetries times with the rejected texts listed in failed_moves. Timeouts
// and transport errors end the turn immediately.
func (c *Client) RequestMove(ctx context.Context, fen string) (Result, error) {
	cfg := c.Config()
	req := Request{FEN: fen, Turn: rules.TurnOf(fen), FailedMoves: []string{}}

	attempts := 0
	for attempts <= cfg.MaxRetries {
		attempts++
		text, err := c.Ask(ctx, req)
		if err != nil {
			return Result{Attempts: attempts, FailedMoves: req.FailedMoves}, err
		}
		long, err := c.conv.ToLong(fen, text)
		if err == nil {
			return Result{Move: long, Raw: text, Attempts: attempts, FailedMoves: req.FailedMoves}, nil
		}
		var ime *rules.IllegalMoveError
		if !errors.As(err, &ime) {
			return Result{Attempts: attempts, FailedMoves: req.FailedMoves}, fmt.Errorf("convert %q: %w", text, err)
		}
		req.FailedMoves = append(req.FailedMoves, text)
	}
	return Result{Attempts: attempts, FailedMoves: req.FailedMoves},
		&IllegalMoveError{FEN: fen, Attempts: attempts, Tried: req.FailedMoves}
}

// Ask posts one request and returns the trimmed reply text. The call is
// bounded by Timeout through the request context and by Bound through a
// timer, whichever fires first.
func (c *Client) Ask(ctx context.Context, req Request) (string, error) {
	cfg := c.Config()
	if req.FailedMoves == nil {
		req.FailedMoves = []string{}
	}

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		text, err := c.post(reqCtx, cfg.URL, req)
		ch <- reply{text: text, err: err}
	}()

	bound := time.NewTimer(cfg.Bound())
	defer bound.Stop()

	select {
	case r := <-ch:
		if r.err == nil {
			return r.text, nil
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("ask move service: %w", ctx.Err())
		}
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{URL: cfg.URL, After: cfg.Timeout}
		}
		return "", r.err
	case <-ctx.Done():
		return "", fmt.Errorf("ask move service: %w", ctx.Err())
	case <-bound.C:
		return "", &TimeoutError{URL: cfg.URL, After: cfg.Bound()}
	}
}

func (c *Client) post(ctx context.Context, url string, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{URL: url, Code: resp.StatusCode, Body: text}
	}
	return text, nil
}
