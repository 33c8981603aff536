package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/interpretreflect/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request with an optional bearer token.
func (c *HTTPClient) Get(ctx context.Context, url, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url, token string, headers map[string]string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

type submitBody struct {
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

type submitResponse struct {
	Success   bool   `json:"success"`
	Duplicate bool   `json:"duplicate"`
	Error     string `json:"error"`
}

// submitAll posts submissions concurrently and returns saved counts per user.
// Resent submissions are held back until their original has been answered
// so the service sees them as repeats.
func submitAll(ctx context.Context, config *Config, tokens *tokenSource, subs []Submission, stats *Stats) map[string]int {
	log := logger.Get()
	log.Info(ctx, "submitting reflections", logger.Int("count", len(subs)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/reflections"

	var (
		saved     int64
		duplicate int64
		failed    int64
		submitted int64
		lastTick  atomic.Int64

		mu      sync.Mutex
		perUser = make(map[string]int)
	)

	originals := make([]Submission, 0, len(subs))
	var resends []Submission
	for _, s := range subs {
		if s.Resend {
			resends = append(resends, s)
			continue
		}
		originals = append(originals, s)
	}

	run := func(batch []Submission) {
		ch := make(chan Submission, config.Workers*WorkerChannelMultiplier)
		var wg sync.WaitGroup
		for i := 0; i < config.Workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for sub := range ch {
					outcome := submitOne(ctx, client, tokens, url, sub)
					total := atomic.AddInt64(&submitted, 1)
					switch outcome {
					case outcomeSaved:
						atomic.AddInt64(&saved, 1)
						mu.Lock()
						perUser[sub.UserID]++
						mu.Unlock()
					case outcomeDuplicate:
						atomic.AddInt64(&duplicate, 1)
					default:
						atomic.AddInt64(&failed, 1)
					}

					now := time.Now().UnixNano()
					last := lastTick.Load()
					if config.Verbose && now-last >= int64(ProgressInterval) && lastTick.CompareAndSwap(last, now) {
						log.Info(ctx, "progress",
							logger.Int("submitted", int(total)),
							logger.Int("of", len(subs)),
							logger.Int("saved", int(atomic.LoadInt64(&saved))),
							logger.Int("failed", int(atomic.LoadInt64(&failed))))
					}
				}
			}()
		}
	feed:
		for _, sub := range batch {
			select {
			case <-ctx.Done():
				break feed
			case ch <- sub:
			}
		}
		close(ch)
		wg.Wait()
	}

	run(originals)
	run(resends)

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Saved = int(atomic.LoadInt64(&saved))
	stats.Duplicate = int(atomic.LoadInt64(&duplicate))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission completed",
		logger.Int("saved", stats.Saved),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))
	return perUser
}

// submitOne posts a single submission and classifies the response.
func submitOne(ctx context.Context, client *HTTPClient, tokens *tokenSource, url string, sub Submission) string {
	token, err := tokens.Token(sub.UserID)
	if err != nil {
		return outcomeFailed
	}
	headers := map[string]string{"Idempotency-Key": sub.IdempotencyKey}
	resp, err := client.Post(ctx, url, token, headers, submitBody{Kind: sub.Kind, Fields: sub.Fields})
	if err != nil {
		logger.Get().Debug(ctx, "submit failed", logger.Error(err))
		return outcomeFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return outcomeFailed
	}
	var ack submitResponse
	_ = json.Unmarshal(body, &ack)

	switch resp.StatusCode {
	case StatusCreated:
		return outcomeSaved
	case StatusOK:
		if ack.Duplicate {
			return outcomeDuplicate
		}
		return outcomeSaved
	default:
		logger.Get().Debug(ctx, "submit rejected",
			logger.Int("status", resp.StatusCode),
			logger.String("kind", sub.Kind),
			logger.String("error", ack.Error))
		return outcomeFailed
	}
}
