package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charleschow/slope-limits/internal/events"
	"github.com/charleschow/slope-limits/internal/telemetry"
)

// Notifier posts resolver alerts to a Discord webhook.
type Notifier struct {
	webhookURL string
	httpClient *http.Client

	wg sync.WaitGroup
}

func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

type Embed struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

const (
	ColorGreen  = 0x2ECC71
	ColorRed    = 0xE74C3C
	ColorYellow = 0xF1C40F
)

func (n *Notifier) SendText(ctx context.Context, msg string) error {
	return n.send(ctx, webhookPayload{Content: msg})
}

func (n *Notifier) SendEmbed(ctx context.Context, embed Embed) error {
	if embed.Timestamp == "" {
		embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return n.send(ctx, webhookPayload{Embeds: []Embed{embed}})
}

func (n *Notifier) send(ctx context.Context, payload webhookPayload) error {
	if !n.Enabled() {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		telemetry.Warnf("discord: rate limited")
		return fmt.Errorf("discord rate limited")
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook: status=%d", resp.StatusCode)
	}
	return nil
}

// Subscribe posts an embed for every resolver failure and policy change on bus.
// Posts run off the publishing goroutine; Wait blocks until they finish.
func (n *Notifier) Subscribe(bus *events.Bus) {
	if !n.Enabled() {
		return
	}
	bus.Subscribe(n.handle, events.EventResolverBroken, events.EventPolicyChanged)
}

// Wait blocks until every in-flight post has returned.
func (n *Notifier) Wait() { n.wg.Wait() }

func (n *Notifier) handle(e events.Event) error {
	embed, ok := embedFor(e)
	if !ok {
		return nil
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := n.SendEmbed(ctx, embed); err != nil {
			telemetry.Warnf("discord: %s alert: %v", e.Type, err)
		}
	}()
	return nil
}

func embedFor(e events.Event) (Embed, bool) {
	ts := e.Timestamp.UTC().Format(time.RFC3339)
	switch p := e.Payload.(type) {
	case events.ResolverBrokenEvent:
		return Embed{
			Title:       "Slope limits stopped",
			Description: p.Reason,
			Color:       ColorRed,
			Fields:      []Field{{Name: "Operation", Value: p.Operation, Inline: true}},
			Timestamp:   ts,
		}, true
	case events.PolicyChangedEvent:
		color := ColorGreen
		if p.Policy == "original" {
			color = ColorYellow
		}
		return Embed{
			Title: fmt.Sprintf("Policy %s", p.Policy),
			Color: color,
			Fields: []Field{
				{Name: "Previous", Value: p.Previous, Inline: true},
				{Name: "Changed", Value: fmt.Sprint(p.Changed), Inline: true},
				{Name: "Discovered", Value: fmt.Sprint(p.Discovered), Inline: true},
			},
			Timestamp: ts,
		}, true
	}
	return Embed{}, false
}
