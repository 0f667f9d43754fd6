package naming

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		class, object, title string
		want                 string
	}{
		// suffix handling
		{class: "Small RoadTunnel", object: "Whatever", want: "Small Road Tunnel"},
		{class: "Small Road", object: "Basic Road Tunnel", want: "Small Road Tunnel"},
		{class: "Train TrackTunnel", object: "Train Track Tunnel", want: "Train Track Tunnel"},
		{class: "Pedestrian PathTunnel", object: "Pedestrian Tunnel", want: "Pedestrian Path Tunnel"},
		{class: "Pedestrian Path", object: "Pedestrian Elevated", want: "Pedestrian Path Bridge"},
		{class: "Pedestrian PathElevated", object: "Bicycle Path Elevated", want: "Bicycle Path Bridge"},
		{class: "Train Track", object: "Train Track Elevated", want: "Train Track"},

		// utilities and decoration
		{class: "Fence", object: "Wooden Fence", want: "Fence"},
		{class: "Water", object: "Water Pipe", want: "Water Pipe"},
		{class: "Heating Pipe", object: "Heating Pipe", want: "Heating Pipe"},
		{class: "Electricity", object: "Power Line", want: "Power Line"},
		{class: "Dam", object: "Hydro Dam", want: "Dam"},

		// water features
		{class: "Landscaping", object: "Canal 01", want: "Canal"},
		{class: "Landscaping", object: "Quay Stone", want: "Quay"},
		{class: "Landscaping", object: "Flood Wall", want: "Flood Wall"},
		{class: "Landscaping", object: "Castle Wall 3", want: "Castle Wall"},
		{class: "Landscaping", object: "Trench Ruins", want: "Trench"},

		// transit
		{class: "Train Track", object: "Train Track", want: "Train Track"},
		{class: "Train Track", object: "Tram Track", want: "Tram Track"},
		{class: "Train Track", object: "Monorail Track", want: "Monorail Track"},
		{class: "Metro Track", object: "Metro Track", want: "Metro Track Tunnel"},
		{class: "Metro Track", object: "Metro Track Ground", want: "Metro Track"},
		{class: "Cable Car", object: "Cable Car Path", want: "Cable Car Path"},

		// highways
		{class: "Highway", object: "Highway", want: "Highway"},
		{class: "Highway", object: "Highway Barrier", want: "Highway"},
		{class: "Highway", object: "Highway Ramp", want: "Highway Ramp"},
		{class: "HighwayRamp", object: "HighwayRamp", want: "Highway Ramp"},
		{class: "Highway", object: "Two-Lane Highway", want: "Rural Highway"},
		{class: "Highway", object: "Highway 2L", want: "Rural Highway"},
		{class: "Highway", object: "Four-Lane Highway", want: "Highway"},
		{class: "Highway", object: "Highway 3L Custom", title: "Route Nationale à 3 voies", want: "Rural Highway"},
		{class: "Large Road", object: "Rural Highway", want: "Rural Highway"},

		// paths
		{class: "Pedestrian Path", object: "Pedestrian Pavement", want: "Pedestrian Path"},
		{class: "Pedestrian Path", object: "Bicycle Path", want: "Bicycle Path"},
		{class: "Beautification", object: "Zonable Pedestrian Gravel", want: "Pedestrian Street"},

		// stock and add-on roads
		{class: "Small Road", object: "Gravel Road", want: "Gravel Road"},
		{class: "Small Road", object: "Basic Road", want: "Small Road"},
		{class: "Small Road", object: "Tiny Road", want: "Tiny Road"},
		{class: "Small Road", object: "Alley 1L", want: "Tiny Road"},
		{class: "Road", object: "2 Lane Road With Parking", want: "Small Road"},
		{class: "Road", object: "Small Avenue", want: "Small Road"},
		{class: "Medium Road", object: "Medium Road", want: "Medium Road"},
		{class: "Road", object: "Four-Lane Road", want: "Medium Road"},
		{class: "Large Road", object: "Large Road Decoration Grass", want: "Large Road"},
		{class: "Road", object: "Six-Lane Boulevard", want: "Large Road"},
		{class: "Large Road", object: "Large Avenue", want: "Large Road"},
		{class: "Road", object: "Large Avenue Grass", want: "Large Road"},
		{class: "Large Road", object: "Six-Lane Avenue", want: "Large Road"},
		{class: "Road", object: "Medium Avenue", want: "Medium Road"},
		{class: "Road", object: "Green Avenue", want: "Medium Road"},

		// pass-through
		{class: "Quantum Conveyor", object: "Conveyor 9000", want: "Quantum Conveyor"},
		{class: "", object: "Anything", want: ""},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s/%s", tc.class, tc.object), func(t *testing.T) {
			got := Apply(DefaultRules(), Input{Class: tc.class, Object: tc.object, Title: tc.title})
			assert.Equal(t, tc.want, got.Name)
		})
	}
}

func TestClassifyReportsRuleAndFlags(t *testing.T) {
	got := Apply(DefaultRules(), Input{Class: "Small RoadTunnel", Object: "Whatever"})
	assert.True(t, got.Tunnel)
	assert.False(t, got.Bridge)
	assert.Equal(t, "addon-small-road", got.Rule)

	pass := Apply(DefaultRules(), Input{Class: "Quantum Conveyor", Object: "Conveyor"})
	assert.Empty(t, pass.Rule)
}

func TestRuleOrderSpecificBeforeGeneric(t *testing.T) {
	// "Two-Lane Highway" also matches the add-on small road family; the highway rule sits earlier.
	got := Apply(DefaultRules(), Input{Class: "Highway", Object: "Two-Lane Highway Road"})
	assert.Equal(t, "Rural Highway", got.Name)
	assert.Equal(t, "addon-highway", got.Rule)

	// Canal is a water feature even when the object also mentions a road.
	got = Apply(DefaultRules(), Input{Class: "Small Road", Object: "Canal Road"})
	assert.Equal(t, "Canal", got.Name)
}

func TestEachRuleIsReachable(t *testing.T) {
	samples := map[string]Input{
		"fence":             {Class: "Fence", Object: "Fence"},
		"pipe":              {Class: "Water", Object: "Water Pipe"},
		"power-line":        {Class: "Electricity", Object: "Power Line"},
		"dam":               {Class: "Dam", Object: "Dam"},
		"canal":             {Class: "Landscaping", Object: "Canal"},
		"quay":              {Class: "Landscaping", Object: "Quay"},
		"flood-wall":        {Class: "Landscaping", Object: "Flood Wall"},
		"castle-wall":       {Class: "Landscaping", Object: "Castle Wall"},
		"trench":            {Class: "Landscaping", Object: "Trench"},
		"cable-car":         {Class: "Cable Car", Object: "Cable Car Path"},
		"track":             {Class: "Train Track", Object: "Train Track"},
		"highway-ramp":      {Class: "Highway", Object: "Highway Ramp"},
		"highway":           {Class: "Highway", Object: "Highway"},
		"bicycle-path":      {Class: "Pedestrian Path", Object: "Bicycle Path"},
		"pedestrian-street": {Class: "Beautification", Object: "Pedestrian Street"},
		"pedestrian-path":   {Class: "Pedestrian Path", Object: "Pedestrian Pavement"},
		"gravel-road":       {Class: "Small Road", Object: "Gravel Road"},
		"addon-highway":     {Class: "Highway", Object: "Four-Lane Highway"},
		"addon-tiny-road":   {Class: "Small Road", Object: "Tiny Road"},
		"addon-small-road":  {Class: "Small Road", Object: "Basic Road"},
		"addon-medium-road": {Class: "Medium Road", Object: "Medium Road"},
		"addon-large-road":  {Class: "Large Road", Object: "Large Road"},
		"addon-avenue":      {Class: "Road", Object: "Green Avenue"},
	}
	rules := DefaultRules()
	require.Len(t, samples, len(rules))
	for _, r := range rules {
		in, ok := samples[r.Name]
		require.True(t, ok, "no sample for rule %s", r.Name)
		assert.Equal(t, r.Name, Apply(rules, in).Rule)
	}
}

func TestClassifierIsDeterministicAndCached(t *testing.T) {
	c := NewClassifier()
	in := Input{Collection: "Road", Class: "Highway", Object: "Two-Lane Highway"}

	first := c.Classify(in)
	second := c.Classify(in)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.CacheLen())

	// Cache key is (class, object): a different title reuses the cached result.
	in.Title = "Autobahn"
	assert.Equal(t, first, c.Classify(in))
	assert.Equal(t, 1, c.CacheLen())

	assert.Equal(t, "Small Road Tunnel", c.Name("Road", "Small RoadTunnel", "Whatever", ""))
	assert.Equal(t, 2, c.CacheLen())
}

func TestClassifierConcurrentCallersAgree(t *testing.T) {
	c := NewClassifier()
	in := Input{Class: "Metro Track", Object: "Metro Track"}

	var wg sync.WaitGroup
	results := make([]Classified, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Classify(in)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "Metro Track Tunnel", r.Name)
	}
	assert.Equal(t, 1, c.CacheLen())
}

func TestSplitVariant(t *testing.T) {
	base, sfx := SplitVariant("Pedestrian Path Bridge")
	assert.Equal(t, "Pedestrian Path", base)
	assert.Equal(t, BridgeSuffix, sfx)

	base, tunnel := StripTunnel("Small Road tunnel")
	assert.Equal(t, "Small Road", base)
	assert.True(t, tunnel)

	base, sfx = SplitVariant("Highway")
	assert.Equal(t, "Highway", base)
	assert.Empty(t, sfx)
}

func TestFoldStripsDiacritics(t *testing.T) {
	assert.Equal(t, "route nationale a 2 voies", fold("  Route  Nationale À 2 voies "))
}
