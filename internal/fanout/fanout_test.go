package fanout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/slope-limits/internal/events"
)

func TestEnvelopeKeepsTypedPayload(t *testing.T) {
	prev := 0.25
	in := events.New(events.EventLimitChanged, "evt-1", events.LimitChangedEvent{Name: "Small Road", Value: 0.3, Previous: &prev})

	data, err := MarshalEvent(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"limit_changed"`)

	out, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	lc, ok := out.Payload.(events.LimitChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "Small Road", lc.Name)
	require.NotNil(t, lc.Previous)
	assert.Equal(t, 0.25, *lc.Previous)
}

func TestUnmarshalRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalEvent([]byte(`{"type":"score_change","ts":"2026-01-01T00:00:00Z","payload":{}}`))
	assert.ErrorContains(t, err, "unknown event type")

	_, err = UnmarshalEvent([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseTypes(t *testing.T) {
	types, err := parseTypes("")
	require.NoError(t, err)
	assert.Nil(t, types)

	types, err = parseTypes("policy_changed, limit_changed,")
	require.NoError(t, err)
	assert.Equal(t, map[events.EventType]bool{events.EventPolicyChanged: true, events.EventLimitChanged: true}, types)

	_, err = parseTypes("policy_changed,market_data")
	assert.Error(t, err)
}

func TestHandleWSRejectsBadFilter(t *testing.T) {
	s := NewServer(events.NewBus())
	rec := httptest.NewRecorder()
	s.HandleWS(rec, httptest.NewRequest(http.MethodGet, "/ws?types=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerForwardsToFilteredClient(t *testing.T) {
	serverBus := events.NewBus()
	s := NewServer(serverBus)
	ts := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer ts.Close()

	clientBus := events.NewBus()
	got := make(chan events.Event, 4)
	clientBus.Subscribe(func(e events.Event) error {
		got <- e
		return nil
	}, Forwarded...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := NewClient(strings.TrimPrefix(ts.URL, "http://"), clientBus, events.EventPolicyChanged)
	assert.Contains(t, c.URL(), "types=policy_changed")
	go c.ConnectWithRetry(ctx)

	require.Eventually(t, func() bool { return s.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	serverBus.Publish(events.New(events.EventLimitChanged, "skip", events.LimitChangedEvent{Name: "Highway", Value: 0.2}))
	serverBus.Publish(events.New(events.EventPolicyChanged, "run-1", events.PolicyChangedEvent{RunID: "run-1", Policy: "custom", Previous: "original", Changed: 3}))

	select {
	case e := <-got:
		assert.Equal(t, events.EventPolicyChanged, e.Type)
		pc := e.Payload.(events.PolicyChangedEvent)
		assert.Equal(t, "custom", pc.Policy)
		assert.Equal(t, 3, pc.Changed)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}

	select {
	case e := <-got:
		t.Fatalf("unexpected event %s", e.Type)
	case <-time.After(100 * time.Millisecond):
	}
}
