package resolver

import (
	"cmp"
	"slices"
)

// Slider is one editable category as the editor shows it.
type Slider struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Group      string   `json:"group"`
	Order      int      `json:"order"`
	Current    float64  `json:"current"`
	HasCurrent bool     `json:"has_current"`
	Original   *float64 `json:"original,omitempty"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`

	groupOrder int
}

// Sliders lists the supported categories, grouped and ordered for the editor.
func (r *Resolver) Sliders() []Slider {
	lo, _ := r.store.Bounds()
	var out []Slider
	for _, c := range r.cat.SupportedGenerics() {
		s := Slider{
			Name:       c.Name,
			Label:      r.cat.DisplayName(c.Name),
			Group:      c.Group,
			Order:      c.SortRank(),
			Min:        lo,
			Max:        r.store.MaxFor(c.Name),
			groupOrder: r.cat.GroupOrder(c.Group),
		}
		s.Current, _, s.HasCurrent = r.store.GetLimit(c.Name)
		if v, ok := r.store.Original(c.Name); ok {
			s.Original = &v
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b Slider) int {
		return cmp.Or(cmp.Compare(a.groupOrder, b.groupOrder), cmp.Compare(a.Order, b.Order))
	})
	return out
}
