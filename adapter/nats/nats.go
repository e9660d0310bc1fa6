// Package nats implements a NATS publish adapter.
//
// Publishes invocation completion events as JSON to a configurable subject.
// The connection is opened on first publish.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	gonats "github.com/nats-io/nats.go"

	"github.com/pithecene-io/cargoexec/adapter"
)

// DefaultSubject is the default subject name.
const DefaultSubject = "cargoexec.invocation_completed"

// DefaultTimeout is the default connect and flush timeout.
const DefaultTimeout = 5 * time.Second

// Config configures the NATS adapter.
type Config struct {
	// URL is the server URL, or a comma-separated list of them (required).
	// Format: nats://[user:password@]host:port
	URL string
	// Subject is the subject to publish on (default: cargoexec.invocation_completed).
	Subject string
	// Timeout bounds connecting and flushing each publish (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
}

var errClosed = errors.New("nats: adapter closed")

// Adapter publishes invocation completion events on a NATS subject.
type Adapter struct {
	config Config

	mu     sync.Mutex
	conn   *gonats.Conn
	closed bool
}

// New creates a NATS adapter from the given config.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats: %w", adapter.ErrNoURL)
	}
	for _, server := range strings.Split(cfg.URL, ",") {
		u, err := url.Parse(strings.TrimSpace(server))
		if err != nil {
			return nil, fmt.Errorf("nats: invalid URL: %w", err)
		}
		switch u.Scheme {
		case "nats", "tls", "ws", "wss":
		default:
			return nil, fmt.Errorf("nats: invalid URL %q: unsupported scheme %q", server, u.Scheme)
		}
	}

	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	return &Adapter{config: cfg}, nil
}

// Publish sends the event as JSON and flushes until the server has it.
func (a *Adapter) Publish(ctx context.Context, event *adapter.InvocationCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("nats: marshal event: %w", err)
	}

	return adapter.Retry(ctx, "nats", a.config.Retries, func(ctx context.Context) error {
		conn, err := a.connect()
		if err != nil {
			return err
		}
		if err := conn.Publish(a.config.Subject, body); err != nil {
			return err
		}
		flushCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		return conn.FlushWithContext(flushCtx)
	}, func(err error) bool { return errors.Is(err, errClosed) })
}

func (a *Adapter) connect() (*gonats.Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, errClosed
	}
	if a.conn != nil && !a.conn.IsClosed() {
		return a.conn, nil
	}
	conn, err := gonats.Connect(a.config.URL,
		gonats.Name("cargoexec"),
		gonats.Timeout(a.config.Timeout),
		gonats.MaxReconnects(0),
	)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	a.conn = conn
	return conn, nil
}

// Close releases adapter resources. Publishing after Close fails.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
