package catalog

import "regexp"

type groupDef struct {
	Name  string
	Order int
}

type groupPrefix struct {
	prefix string // lowercase
	group  string
}

var defaultGroups = []groupDef{
	{Name: "Roads", Order: 1},
	{Name: "Highways", Order: 2},
	{Name: "Paths", Order: 3},
	{Name: "Railroads", Order: 4},
	{Name: "Waterways", Order: 5},
	{Name: "Other", Order: 9},
}

// Ordered: longer prefixes that share a start with shorter ones come first.
var defaultGroupPrefixes = []groupPrefix{
	{"tiny road", "Roads"},
	{"small road", "Roads"},
	{"gravel road", "Roads"},
	{"medium road", "Roads"},
	{"large road", "Roads"},
	{"highway ramp", "Highways"},
	{"rural highway", "Highways"},
	{"highway", "Highways"},
	{"pedestrian", "Paths"},
	{"bicycle", "Paths"},
	{"train", "Railroads"},
	{"metro", "Railroads"},
	{"tram", "Railroads"},
	{"monorail", "Railroads"},
	{"cable car", "Railroads"},
	{"canal", "Waterways"},
	{"quay", "Waterways"},
	{"flood wall", "Waterways"},
	{"castle wall", "Waterways"},
	{"trench", "Waterways"},
}

// defaultCategories is declaration order: more specific names precede names they contain
// ("Highway Ramp" before "Highway"), which matters for the containment lookups.
func defaultCategories() []Category {
	return []Category{
		Category{Name: "Tiny Road", MatchPart: "tiny", Group: "Roads", Dependency: Mod("NetworkExtensions2")}.WithOrder(10),
		Category{Name: "Small Road", MatchPart: "small", Group: "Roads"}.WithOrder(20),
		Category{Name: "Gravel Road", MatchPart: "gravel", Group: "Roads"}.WithOrder(25),
		Category{Name: "Medium Road", MatchPart: "medium", Group: "Roads"}.WithOrder(30),
		Category{Name: "Large Road", MatchPart: "large", Group: "Roads"}.WithOrder(40),

		Category{Name: "Highway Ramp", MatchPart: "ramp", Group: "Highways"}.WithOrder(50),
		Category{Name: "Rural Highway", MatchPart: "rural", Group: "Highways", Dependency: Mod("NetworkExtensions2")}.WithOrder(55),
		Category{Name: "Highway", MatchPart: "highway", Group: "Highways"}.WithOrder(60),

		Category{Name: "Pedestrian Street", MatchPart: "pedestrian street", Group: "Paths", Dependency: Feature("PlazasAndPromenades"), MaxLimit: 1.5}.WithOrder(65),
		Category{Name: "Pedestrian Path Bridge", MatchPart: "pedestrian path bridge", Group: "Paths", IsVariant: true, MaxLimit: 1.5},
		Category{Name: "Pedestrian Path Tunnel", MatchPart: "pedestrian path tunnel", Group: "Paths", IsVariant: true, MaxLimit: 1.5},
		Category{Name: "Pedestrian Path", MatchPart: "pedestrian", Group: "Paths", MaxLimit: 1.5}.WithOrder(70),
		Category{Name: "Bicycle Path Bridge", MatchPart: "bicycle path bridge", Group: "Paths", IsVariant: true, Dependency: Feature("AfterDark")},
		Category{Name: "Bicycle Path Tunnel", MatchPart: "bicycle path tunnel", Group: "Paths", IsVariant: true, Dependency: Feature("AfterDark")},
		Category{Name: "Bicycle Path", MatchPart: "bicycle", Group: "Paths", Dependency: Feature("AfterDark")}.WithOrder(80),

		Category{Name: "Train Track", MatchPart: "train", Group: "Railroads"}.WithOrder(100),
		Category{Name: "Metro Track Tunnel", MatchPart: "metro track tunnel", Group: "Railroads", IsVariant: true},
		Category{Name: "Metro Track", MatchPart: "metro", Group: "Railroads", Dependency: Mod("MetroOverhaul")}.WithOrder(110),
		Category{Name: "Tram Track", MatchPart: "tram", Group: "Railroads", Dependency: Feature("Snowfall")}.WithOrder(120),
		Category{Name: "Monorail Track", MatchPart: "monorail", Group: "Railroads", Dependency: Feature("MassTransit")}.WithOrder(130),
		Category{Name: "Cable Car Path", MatchPart: "cable car", Group: "Railroads", Dependency: Feature("MassTransit")}.WithOrder(140),

		Category{Name: "Canal", MatchPart: "canal", Group: "Waterways", Dependency: Feature("NaturalDisasters")}.WithOrder(200),
		Category{Name: "Quay", MatchPart: "quay", Group: "Waterways", Dependency: Feature("NaturalDisasters")}.WithOrder(210),
		Category{Name: "Flood Wall", MatchPart: "flood wall", Group: "Waterways", Dependency: Feature("NaturalDisasters"), MaxLimit: 2},
		Category{Name: "Castle Wall", MatchPart: "castle wall", Group: "Waterways", Dependency: Feature("ModderPack"), MaxLimit: 2},
		Category{Name: "Trench", MatchPart: "trench", Group: "Waterways", Dependency: Feature("ModderPack")},
	}
}

// defaultFallbacks maps a lowercase canonical name to the canonical name it borrows from.
// Chains stay short: the longest is Castle Wall -> Flood Wall -> Quay -> Canal.
var defaultFallbacks = map[string]string{
	"tiny road":         "Small Road",
	"gravel road":       "Small Road",
	"rural highway":     "Highway",
	"highway ramp":      "Highway",
	"pedestrian street": "Pedestrian Path",
	"bicycle path":      "Pedestrian Path",
	"metro track":       "Train Track",
	"tram track":        "Train Track",
	"monorail track":    "Train Track",
	"cable car path":    "Monorail Track",
	"quay":              "Canal",
	"flood wall":        "Quay",
	"castle wall":       "Flood Wall",
	"trench":            "Canal",
}

// defaultRenames replaces internal names with what players know them as.
var defaultRenames = map[string]string{
	"rural highway":  "National Road",
	"cable car path": "Cable Car",
}

var defaultIgnoredNames = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpipe$`),
	regexp.MustCompile(`(?i)^power line$`),
	regexp.MustCompile(`(?i)^fence$`),
	regexp.MustCompile(`(?i)^dam$`),
}

var defaultIgnoredCollections = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(electricity|heating|water pipes?)$`),
	regexp.MustCompile(`(?i)\bfences?\b`),
}
