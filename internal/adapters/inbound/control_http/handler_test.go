package control_http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charleschow/slope-limits/internal/core/limits"
	"github.com/charleschow/slope-limits/internal/core/resolver"
)

type fakeCore struct {
	state   resolver.State
	applied []resolver.Policy
	edits   map[string]float64
}

func (c *fakeCore) Sliders() []resolver.Slider {
	return []resolver.Slider{{Name: "Small Road", Label: "Small Road", Group: "Roads", Current: 0.3, HasCurrent: true, Min: 0.01, Max: 1}}
}

func (c *fakeCore) SetLimit(name string, value float64) (limits.Edit, error) {
	switch name {
	case "Water Pipe":
		return limits.Edit{}, fmt.Errorf("set limit %q: %w", name, limits.ErrIgnoredName)
	case "Small Road":
		c.edits[name] = value
		return limits.Edit{Name: name, Value: value, Changed: true}, nil
	}
	return limits.Edit{}, fmt.Errorf("set limit %q: %w", name, limits.ErrUnknownName)
}

func (c *fakeCore) State() resolver.State { return c.state }

func (c *fakeCore) Apply(p resolver.Policy) error {
	c.applied = append(c.applied, p)
	c.state.Policy = p
	return nil
}

func (c *fakeCore) Dump(w io.Writer) error {
	_, err := io.WriteString(w, "COLLECTION  OBJECT\nRoad  Basic Road\n")
	return err
}

func (c *fakeCore) Suggest(name string) (string, bool) {
	if strings.HasPrefix(strings.ToLower(name), "smal") {
		return "Small Road", true
	}
	return "", false
}

func newServer(t *testing.T, rate float64) (*httptest.Server, *fakeCore) {
	t.Helper()
	core := &fakeCore{state: resolver.State{Phase: resolver.Ready}, edits: map[string]float64{}}
	mux := http.NewServeMux()
	NewHandler(core, rate).RegisterRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, core
}

func post(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestSliders(t *testing.T) {
	ts, _ := newServer(t, 10)
	resp, err := http.Get(ts.URL + "/sliders")
	require.NoError(t, err)
	defer resp.Body.Close()

	var got []resolver.Slider
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "Small Road", got[0].Name)
	assert.Equal(t, 0.3, got[0].Current)
}

func TestSetLimit(t *testing.T) {
	ts, core := newServer(t, 10)

	resp, body := post(t, ts.URL+"/limit", `{"name":"Small Road","value":0.4}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, 0.4, core.edits["Small Road"])

	resp, body = post(t, ts.URL+"/limit", `{"name":"Smal Raod","value":0.4}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Small Road", body["suggestion"])

	resp, _ = post(t, ts.URL+"/limit", `{"name":"Water Pipe","value":0.4}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/limit", `{"name":"Small Road"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts.URL+"/limit", `{"name":"Small Road","value":0.4,"extra":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetLimitRateLimited(t *testing.T) {
	ts, _ := newServer(t, 1)
	resp, _ := post(t, ts.URL+"/limit", `{"name":"Small Road","value":0.4}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body := post(t, ts.URL+"/limit", `{"name":"Small Road","value":0.5}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "too many edits", body["error"])
}

func TestPolicy(t *testing.T) {
	ts, core := newServer(t, 10)

	resp, body := post(t, ts.URL+"/policy", `{"policy":"Disabled"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "disabled", body["policy"])
	assert.Equal(t, "ready", body["phase"])

	resp, _ = post(t, ts.URL+"/policy", `{"policy":"off"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, []resolver.Policy{resolver.Disabled}, core.applied)

	get, err := http.Get(ts.URL + "/policy")
	require.NoError(t, err)
	defer get.Body.Close()
	var st map[string]string
	require.NoError(t, json.NewDecoder(get.Body).Decode(&st))
	assert.Equal(t, map[string]string{"phase": "ready", "policy": "disabled"}, st)
}

func TestDumpAndHealth(t *testing.T) {
	ts, _ := newServer(t, 10)

	resp, err := http.Get(ts.URL + "/dump")
	require.NoError(t, err)
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(data), "Basic Road")

	resp, err = http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp2.StatusCode)
}
