package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/soilworks/sbcrun/internal"
)

const (
	defaultDialTimeout = 30 * time.Second
	defaultOpTimeout   = 60 * time.Second
	defaultMaxAttempts = 3
	defaultBaseBackoff = 200 * time.Millisecond
	defaultMaxBackoff  = 2 * time.Second
	defaultUserAgent   = "sbcrun/dev"

	// maxWorkbookMessage bounds one websocket message. Save responses
	// carry a full base64 workbook, so the default 32 KiB limit is far
	// too small.
	maxWorkbookMessage = 128 << 20
)

// Remote drives a calculation service over one websocket session per
// case. The template travels inline on open and the populated workbook
// comes back inline on save, so the service holds no state beyond the
// session.
type Remote struct {
	URL       string
	APIKey    string
	UserAgent string

	dialTimeout time.Duration
	opTimeout   time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	sleep       func(time.Duration)
	randInt63n  func(int64) int64
}

// NewRemote creates a remote engine for the calc service at url.
func NewRemote(url, apiKey string) *Remote {
	return &Remote{
		URL:         url,
		APIKey:      apiKey,
		UserAgent:   defaultUserAgent,
		dialTimeout: defaultDialTimeout,
		opTimeout:   defaultOpTimeout,
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		sleep:       time.Sleep,
		randInt63n:  rand.Int63n,
	}
}

// Start dials a fresh session, retrying transient dial failures with
// jittered exponential backoff.
func (r *Remote) Start(ctx context.Context) (Session, error) {
	maxAttempts := r.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	header := http.Header{}
	userAgent := r.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	header.Set("User-Agent", userAgent)
	if r.APIKey != "" {
		header.Set("Authorization", "Bearer "+r.APIKey)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, r.dialTimeout)
		c, _, err := websocket.Dial(dialCtx, r.URL, &websocket.DialOptions{HTTPHeader: header})
		cancel()
		if err == nil {
			c.SetReadLimit(maxWorkbookMessage)
			return &remoteSession{r: r, c: c}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < maxAttempts {
			r.sleepWithBackoff(attempt)
		}
	}
	return nil, fmt.Errorf("dialing engine after %d attempt(s): %w", maxAttempts, lastErr)
}

func (r *Remote) sleepWithBackoff(attempt int) {
	base := r.baseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay <= 0 {
			delay = defaultMaxBackoff
			break
		}
	}

	maxBackoff := r.maxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if delay <= 0 {
		return
	}

	// Full jitter in [0, delay).
	if r.randInt63n != nil {
		delay = time.Duration(r.randInt63n(int64(delay)))
	}
	if r.sleep != nil {
		r.sleep(delay)
	}
}

// request is one operation sent to the calc service.
type request struct {
	Op    string          `json:"op"`
	Name  string          `json:"name,omitempty"`
	File  string          `json:"file,omitempty"` // base64 workbook, open only
	Sheet string          `json:"sheet,omitempty"`
	Cell  string          `json:"cell,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// response is the calc service's reply to one operation.
type response struct {
	OK    bool    `json:"ok"`
	Value string  `json:"value,omitempty"`
	File  *string `json:"file,omitempty"` // base64 workbook, save only
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type remoteSession struct {
	r *Remote
	c *websocket.Conn
}

func (s *remoteSession) roundTrip(ctx context.Context, req request) (response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		opTimeout := s.r.opTimeout
		if opTimeout <= 0 {
			opTimeout = defaultOpTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opTimeout)
		defer cancel()
	}

	if err := wsjson.Write(ctx, s.c, req); err != nil {
		return response{}, fmt.Errorf("sending %s: %w", req.Op, err)
	}
	var resp response
	if err := wsjson.Read(ctx, s.c, &resp); err != nil {
		return response{}, fmt.Errorf("reading %s response: %w", req.Op, err)
	}
	if !resp.OK {
		if resp.Error != nil {
			return response{}, &Error{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return response{}, &Error{Message: req.Op + " rejected"}
	}
	return resp, nil
}

func (s *remoteSession) Open(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	_, err = s.roundTrip(ctx, request{
		Op:   "open",
		Name: filepath.Base(path),
		File: base64.StdEncoding.EncodeToString(data),
	})
	return err
}

func (s *remoteSession) SetCell(ctx context.Context, ref internal.CellRef, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding value for %s: %w", ref, err)
	}
	_, err = s.roundTrip(ctx, request{Op: "set", Sheet: ref.Sheet, Cell: ref.Cell, Value: raw})
	return err
}

func (s *remoteSession) Recalculate(ctx context.Context) error {
	_, err := s.roundTrip(ctx, request{Op: "calc"})
	return err
}

func (s *remoteSession) ReadCell(ctx context.Context, ref internal.CellRef) (string, error) {
	resp, err := s.roundTrip(ctx, request{Op: "read", Sheet: ref.Sheet, Cell: ref.Cell})
	if err != nil {
		return "", err
	}
	return resp.Value, nil
}

func (s *remoteSession) SaveAs(ctx context.Context, path string) error {
	resp, err := s.roundTrip(ctx, request{Op: "save"})
	if err != nil {
		return err
	}
	if resp.File == nil {
		return &Error{Message: "save response carried no workbook"}
	}
	decoded, err := base64.StdEncoding.DecodeString(*resp.File)
	if err != nil {
		return fmt.Errorf("decoding saved workbook: %w", err)
	}
	if err := os.WriteFile(path, decoded, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (s *remoteSession) Close() error {
	if s.c == nil {
		return nil
	}
	_, err := s.roundTrip(context.Background(), request{Op: "close"})
	return err
}

func (s *remoteSession) Quit() error {
	if s.c == nil {
		return nil
	}
	// Tell the service to drop the instance, then tear the socket down.
	_, quitErr := s.roundTrip(context.Background(), request{Op: "quit"})
	closeErr := s.c.Close(websocket.StatusNormalClosure, "quit")
	s.c = nil
	if quitErr != nil {
		return quitErr
	}
	return closeErr
}
