package resolver

import "github.com/charleschow/slope-limits/internal/core/journal"

// Network is one live network definition owned by the engine. The resolver only
// reads its names and reads or writes its slope limit.
type Network interface {
	ClassName() string
	ObjectName() string
	Title() string
	SlopeLimit() float64
	SetSlopeLimit(v float64)
}

// Collection groups definitions the way the engine loaded them.
type Collection struct {
	Name     string
	Networks []Network
}

// Source enumerates the live definitions. It is re-read on every transition.
type Source interface {
	Collections() ([]Collection, error)
}

// Journal records finished transitions.
type Journal interface {
	Record(run journal.Run) error
}
