package staking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// webhookPayload is the JSON body posted for each event. Optional fields are
// omitted when the event does not carry them.
type webhookPayload struct {
	Name      string    `json:"name"`
	Asset     string    `json:"asset,omitempty"`
	Holder    string    `json:"holder"`
	Amount    string    `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	OldOwner  string    `json:"old_owner,omitempty"`
	NewOwner  string    `json:"new_owner,omitempty"`
}

// WebhookSink posts each ledger event to an HTTP endpoint so external
// observers can follow the audit stream. Delivery is best-effort: failures are
// logged and never unwind the operation that emitted the event.
type WebhookSink struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

// NewWebhookSink constructs the sink.
func NewWebhookSink(url string, timeout time.Duration, logger zerolog.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &WebhookSink{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "event_webhook").Logger(),
	}
}

// Emit posts one event; failures are logged, never propagated.
func (s *WebhookSink) Emit(ctx context.Context, ev Event) {
	if err := s.post(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("event", ev.Name).Msg("failed to deliver ledger event")
	}
}

func (s *WebhookSink) post(ctx context.Context, ev Event) error {
	payload := webhookPayload{
		Name:      ev.Name,
		Holder:    ev.Holder.Hex(),
		Timestamp: ev.Timestamp,
	}
	if (ev.Asset != common.Address{}) {
		payload.Asset = ev.Asset.Hex()
	}
	if ev.Amount != nil {
		payload.Amount = ev.Amount.String()
	}
	if ev.Name == EventOwnershipTransferred {
		payload.OldOwner = ev.OldOwner.Hex()
		payload.NewOwner = ev.NewOwner.Hex()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

var _ Sink = (*WebhookSink)(nil)
