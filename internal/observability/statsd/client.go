package statsd

import (
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
	Gauge(name string, value float64, tags map[string]string)
	Timing(name string, value time.Duration, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible sink.
type Config struct {
	Enabled bool
	Address string
	Prefix  string
	Logger  *slog.Logger
}

// Client emits metrics over UDP using the StatsD line protocol.
// It is safe for concurrent use. A disabled client swallows all emissions.
type Client struct {
	enabled bool
	address string
	prefix  string

	logger *slog.Logger
	conn   net.Conn
	mu     sync.Mutex
}

var _ Sink = (*Client)(nil)

// NewClient dials the configured StatsD endpoint unless disabled.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	address := strings.TrimSpace(cfg.Address)
	enabled := cfg.Enabled && address != ""

	client := &Client{
		enabled: enabled,
		address: address,
		prefix:  strings.TrimSuffix(strings.TrimSpace(cfg.Prefix), "."),
		logger:  logger,
	}

	if !enabled {
		return client, nil
	}

	conn, err := net.Dial("udp", address)
	if err != nil {
		return nil, fmt.Errorf("dial statsd %s: %w", address, err)
	}
	client.conn = conn
	return client, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Count emits a counter sample.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.emit(name, strconv.FormatInt(value, 10), "c", tags)
}

// Gauge emits a gauge sample.
func (c *Client) Gauge(name string, value float64, tags map[string]string) {
	c.emit(name, strconv.FormatFloat(value, 'f', -1, 64), "g", tags)
}

// Timing emits a timing sample in milliseconds.
func (c *Client) Timing(name string, value time.Duration, tags map[string]string) {
	ms := float64(value) / float64(time.Millisecond)
	c.emit(name, strconv.FormatFloat(ms, 'f', -1, 64), "ms", tags)
}

func (c *Client) emit(name, value, kind string, tags map[string]string) {
	if !c.enabled {
		return
	}

	var sb strings.Builder
	if c.prefix != "" {
		sb.WriteString(c.prefix)
		sb.WriteByte('.')
	}
	sb.WriteString(name)
	sb.WriteByte(':')
	sb.WriteString(value)
	sb.WriteByte('|')
	sb.WriteString(kind)
	sb.WriteString(formatTags(tags))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(sb.String())); err != nil {
		c.logger.Debug("statsd write failed", slog.String("error", err.Error()))
	}
}

// formatTags renders DogStatsD-style tags in deterministic order.
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+tags[k])
	}
	return "|#" + strings.Join(parts, ",")
}

// Noop is a Sink that discards everything. Useful as a default dependency.
type Noop struct{}

var _ Sink = Noop{}

func (Noop) Count(string, int64, map[string]string)          {}
func (Noop) Gauge(string, float64, map[string]string)        {}
func (Noop) Timing(string, time.Duration, map[string]string) {}
