package realtime

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/observability"
)

const maxSSELine = 1 << 20

// SSESource reads server-sent events over a long-lived GET.
type SSESource struct {
	URL     string
	Token   string
	Client  *http.Client
	Backoff Backoff
	Logger  *zap.Logger

	clientID    string
	lastEventID string
}

// NewSSESource creates a source for url.
func NewSSESource(url, token string, backoff Backoff, logger *zap.Logger) *SSESource {
	return &SSESource{
		URL:      url,
		Token:    token,
		Client:   &http.Client{},
		Backoff:  backoff,
		Logger:   observability.OrNop(logger),
		clientID: uuid.NewString(),
	}
}

// Run connects, streams and reconnects until ctx ends.
func (s *SSESource) Run(ctx context.Context, deliver func([]byte), state func(bool)) error {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	for {
		err := s.stream(ctx, deliver, state)
		state(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := s.Backoff.Next()
		s.Logger.Warn("sse stream interrupted, reconnecting", zap.Error(err), zap.Duration("backoff", delay))
		if !wait(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (s *SSESource) stream(ctx context.Context, deliver func([]byte), state func(bool)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("build sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}
	if s.lastEventID != "" {
		req.Header.Set("Last-Event-ID", s.lastEventID)
	}
	if s.clientID != "" {
		q := req.URL.Query()
		q.Set("client_id", s.clientID)
		req.URL.RawQuery = q.Encode()
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("connect sse: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connect sse: unexpected status %d", resp.StatusCode)
	}

	state(true)
	s.Backoff.Reset()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				deliver(bytes.Clone(data.Bytes()))
				data.Reset()
			}
		case strings.HasPrefix(line, ":"):
			// heartbeat comment
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			s.lastEventID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read sse: %w", err)
	}
	return fmt.Errorf("sse stream closed by server")
}
