package events

// PolicyChangedEvent is published after a successful policy application or restore.
type PolicyChangedEvent struct {
	RunID      string `json:"run_id"`
	Policy     string `json:"policy"`
	Previous   string `json:"previous"`
	Scanned    int    `json:"scanned"`
	Changed    int    `json:"changed"`
	Discovered int    `json:"discovered"`
}

// LimitChangedEvent is published when a user edit changes a stored limit.
type LimitChangedEvent struct {
	Name     string   `json:"name"`
	Value    float64  `json:"value"`
	Previous *float64 `json:"previous,omitempty"` // nil when the name had no explicit entry
}

// NetworkDiscoveredEvent is published when a scan meets a name with no resolvable limit.
type NetworkDiscoveredEvent struct {
	Collection string  `json:"collection"`
	Object     string  `json:"object"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
}

// ResolverBrokenEvent is published once when a transition fails and the resolver stops applying limits.
type ResolverBrokenEvent struct {
	Operation string `json:"operation"`
	Reason    string `json:"reason"`
}
