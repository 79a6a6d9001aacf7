// Package notify delivers member notices outside the process.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is the JSON body posted to the webhook.
type Message struct {
	Type    string    `json:"type"`
	UserID  string    `json:"user_id"`
	Email   string    `json:"email,omitempty"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	LoanID  *int64    `json:"loan_id,omitempty"`
	BookID  *int64    `json:"book_id,omitempty"`
	SentAt  time.Time `json:"sent_at"`
	Channel string    `json:"channel"`
}

// Dispatcher sends a message without blocking the caller. Failures are
// logged, never returned.
type Dispatcher interface {
	Dispatch(msg Message)
}

// WebhookDispatcher posts each message to one URL on its own goroutine.
type WebhookDispatcher struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewWebhookDispatcher(url string, logger *zap.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (d *WebhookDispatcher) Dispatch(msg Message) {
	if msg.Channel == "" {
		msg.Channel = "email"
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := d.send(ctx, msg); err != nil {
			d.logger.Warn("notification_dispatch_failed",
				zap.String("type", msg.Type),
				zap.String("user_id", msg.UserID),
				zap.Error(err))
			return
		}
		d.logger.Debug("notification_dispatched",
			zap.String("type", msg.Type),
			zap.String("user_id", msg.UserID))
	}()
}

// Wait blocks until every in-flight dispatch has finished. Used on shutdown.
func (d *WebhookDispatcher) Wait() {
	d.wg.Wait()
}

func (d *WebhookDispatcher) send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

// LogDispatcher only logs messages. It is used when no webhook is configured.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(msg Message) {
	d.logger.Info("notification",
		zap.String("type", msg.Type),
		zap.String("user_id", msg.UserID),
		zap.String("email", msg.Email),
		zap.String("title", msg.Title))
}
