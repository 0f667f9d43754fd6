package naming

import (
	"regexp"
	"strconv"
	"strings"
)

// Subject is the prepared view of one Input that rules match against.
// class, object and title are folded (lowercase, no diacritics).
type Subject struct {
	Input
	Base   string // class name with any tunnel/bridge suffix removed, original casing
	Tunnel bool
	Bridge bool

	class  string
	object string
	title  string
}

// either reports whether re matches the folded class or object name.
func (s *Subject) either(re *regexp.Regexp) bool {
	return re.MatchString(s.class) || re.MatchString(s.object)
}

// Rule is one entry of the ordered classification table.
type Rule struct {
	Name  string
	Match func(*Subject) bool
	Build func(*Subject) string
}

var (
	reFence      = regexp.MustCompile(`\bfences?\b`)
	rePipe       = regexp.MustCompile(`\bpipes?\b`)
	reHeating    = regexp.MustCompile(`\bheating\b`)
	reSewage     = regexp.MustCompile(`\bsewage\b`)
	rePowerLine  = regexp.MustCompile(`\bpower ?lines?\b|\bwires?\b`)
	reDam        = regexp.MustCompile(`\bdams?\b`)
	reCanal      = regexp.MustCompile(`\bcanals?\b`)
	reQuay       = regexp.MustCompile(`\bquays?\b`)
	reFloodWall  = regexp.MustCompile(`\bflood ?walls?\b`)
	reCastleWall = regexp.MustCompile(`\bcastle ?walls?\b`)
	reTrench     = regexp.MustCompile(`\btrench(es)?\b`)
	reCableCar   = regexp.MustCompile(`\bcable ?cars?\b`)

	reTrack        = regexp.MustCompile(`\btracks?\b|\brail(way|road)?s?\b`)
	reMonorail     = regexp.MustCompile(`\bmonorail`)
	reTram         = regexp.MustCompile(`\btram(way)?s?\b`)
	reMetro        = regexp.MustCompile(`\bmetro`)
	reMetroSurface = regexp.MustCompile(`\b(ground|surface|overground|elevated|bridge)\b`)

	reRamp         = regexp.MustCompile(`\bramps?\b`)
	reStockHighway = regexp.MustCompile(`^highway( (sound )?barrier)?( (elevated|bridge|tunnel|slope))?$`)
	reHighwayCue   = regexp.MustCompile(`\b(highway|motorway|freeway|expressway)|\bnational road\b`)
	reRural        = regexp.MustCompile(`\b(rural|national|nationale|country)\b`)
	reLaneDigits   = regexp.MustCompile(`\b(\d) ?-?(l|lanes?)\b`)
	reLaneWords    = regexp.MustCompile(`\b(one|two|three|four|five|six|eight)[ -]lanes?\b`)

	reBicycle    = regexp.MustCompile(`\b(bicycle|bike|cycle)`)
	rePathClass  = regexp.MustCompile(`pedestrian|\bpaths?\b|bicycle|\bbike`)
	rePedStreet  = regexp.MustCompile(`\bpedestrian (street|road)s?\b|\bzonable pedestrian`)
	rePedestrian = regexp.MustCompile(`\bpedestrian|\bfoot ?paths?\b|^paths?$`)
	reGravel     = regexp.MustCompile(`\bgravel\b`)

	reRoadish = regexp.MustCompile(`\b(roads?|avenues?|streets?|boulevards?|alley(way)?s?|lanes?|busways?|\dl)\b`)
	reTiny    = regexp.MustCompile(`\b(tiny|alley|alleyway|single[ -]lane)\b|\b(1|one)[ -]?(l|lanes?)\b`)
	reSmall   = regexp.MustCompile(`\bsmall (avenue|heavy road|road|busway|industrial road)s?\b|\b(basic|oneway) road\b|\b(2|two)[ -]?(l|lanes?)\b|^r2\b`)
	reMedium  = regexp.MustCompile(`\bmedium (avenue|road)s?\b|\b(3|4|three|four)[ -]?(l|lanes?)\b|^r4\b`)
	reLarge   = regexp.MustCompile(`\blarge (avenue|road|boulevard)s?\b|\bboulevard\b|\b(5|6|8|five|six|eight)[ -]?(l|lanes?)\b|^r6\b`)
	reAvenue  = regexp.MustCompile(`\bavenues?\b`)
)

var laneWords = map[string]int{"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "eight": 8}

func fixed(name string) func(*Subject) string {
	return func(*Subject) string { return name }
}

func matchEither(re *regexp.Regexp) func(*Subject) bool {
	return func(s *Subject) bool { return s.either(re) }
}

// laneCount extracts a lane count hint ("2L", "two-lane", "4 lanes"); zero when absent.
func laneCount(texts ...string) int {
	for _, t := range texts {
		if m := reLaneDigits.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
		if m := reLaneWords.FindStringSubmatch(t); m != nil {
			return laneWords[m[1]]
		}
	}
	return 0
}

func transitTrack(s *Subject) string {
	for _, text := range []string{s.object, s.class} {
		switch {
		case reMonorail.MatchString(text):
			return "Monorail Track"
		case reTram.MatchString(text):
			return "Tram Track"
		case reMetro.MatchString(text):
			// Stock metro runs underground; only surface variants keep the plain name.
			if s.Bridge || reMetroSurface.MatchString(s.object) {
				return "Metro Track"
			}
			return "Metro Track Tunnel"
		}
	}
	return "Train Track"
}

func highwayKind(s *Subject) string {
	if reRural.MatchString(s.object) || reRural.MatchString(s.title) {
		return "Rural Highway"
	}
	if n := laneCount(s.object, s.title); n > 0 && n <= 2 {
		return "Rural Highway"
	}
	return "Highway"
}

func pipeKind(s *Subject) string {
	switch {
	case s.either(reHeating):
		return "Heating Pipe"
	case s.either(reSewage):
		return "Sewage Pipe"
	default:
		return "Water Pipe"
	}
}

// roadRule matches add-on road naming families, only for things that look like roads.
func roadRule(re *regexp.Regexp) func(*Subject) bool {
	return func(s *Subject) bool {
		return s.either(reRoadish) && s.either(re)
	}
}

// DefaultRules is the ordered classification table. Exact and structural rules come
// first, then stock transit/highway/path splits, then add-on naming families.
// Earlier entries win.
func DefaultRules() []Rule {
	return []Rule{
		// Decorative and utility networks.
		{Name: "fence", Match: func(s *Subject) bool { return s.class == "fence" || reFence.MatchString(s.object) }, Build: fixed("Fence")},
		{Name: "pipe", Match: matchEither(rePipe), Build: pipeKind},
		{Name: "power-line", Match: matchEither(rePowerLine), Build: fixed("Power Line")},
		{Name: "dam", Match: func(s *Subject) bool { return s.class == "dam" || reDam.MatchString(s.object) }, Build: fixed("Dam")},

		// Water features.
		{Name: "canal", Match: matchEither(reCanal), Build: fixed("Canal")},
		{Name: "quay", Match: matchEither(reQuay), Build: fixed("Quay")},
		{Name: "flood-wall", Match: matchEither(reFloodWall), Build: fixed("Flood Wall")},
		{Name: "castle-wall", Match: matchEither(reCastleWall), Build: fixed("Castle Wall")},
		{Name: "trench", Match: matchEither(reTrench), Build: fixed("Trench")},

		// Transit.
		{Name: "cable-car", Match: matchEither(reCableCar), Build: fixed("Cable Car Path")},
		{Name: "track", Match: func(s *Subject) bool {
			return reTrack.MatchString(s.class) ||
				reMonorail.MatchString(s.class) || reTram.MatchString(s.class) || reMetro.MatchString(s.class)
		}, Build: transitTrack},

		// Stock highways.
		{Name: "highway-ramp", Match: func(s *Subject) bool {
			if s.class == "highway ramp" || s.class == "highwayramp" {
				return true
			}
			return reRamp.MatchString(s.object) && s.either(reHighwayCue)
		}, Build: fixed("Highway Ramp")},
		{Name: "highway", Match: func(s *Subject) bool {
			return s.class == "highway" && reStockHighway.MatchString(s.object)
		}, Build: fixed("Highway")},

		// Paths.
		{Name: "bicycle-path", Match: func(s *Subject) bool {
			if reBicycle.MatchString(s.class) {
				return true
			}
			return reBicycle.MatchString(s.object) && rePathClass.MatchString(s.class)
		}, Build: fixed("Bicycle Path")},
		{Name: "pedestrian-street", Match: matchEither(rePedStreet), Build: fixed("Pedestrian Street")},
		{Name: "pedestrian-path", Match: func(s *Subject) bool {
			if rePedestrian.MatchString(s.class) {
				return true
			}
			return rePedestrian.MatchString(s.object) && rePathClass.MatchString(s.class)
		}, Build: fixed("Pedestrian Path")},
		{Name: "gravel-road", Match: matchEither(reGravel), Build: fixed("Gravel Road")},

		// Add-on naming families.
		{Name: "addon-highway", Match: matchEither(reHighwayCue), Build: highwayKind},
		{Name: "addon-tiny-road", Match: roadRule(reTiny), Build: fixed("Tiny Road")},
		{Name: "addon-small-road", Match: roadRule(reSmall), Build: fixed("Small Road")},
		{Name: "addon-medium-road", Match: roadRule(reMedium), Build: fixed("Medium Road")},
		{Name: "addon-large-road", Match: roadRule(reLarge), Build: fixed("Large Road")},
		// Unsized avenues; sized ones were taken above.
		{Name: "addon-avenue", Match: roadRule(reAvenue), Build: fixed("Medium Road")},
	}
}

// isPedestrianFamily reports whether name takes a bridge marker when built elevated.
func isPedestrianFamily(name string) bool {
	switch strings.ToLower(name) {
	case "pedestrian path", "bicycle path", "pedestrian street":
		return true
	}
	return false
}
