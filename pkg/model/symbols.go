package model

// Cardinality is one endpoint's cardinality in a relationship.
type Cardinality string

// Relationship cardinalities.
const (
	CardinalityOne        Cardinality = "one"
	CardinalityMany       Cardinality = "many"
	CardinalityOneToMany  Cardinality = "oneToMany"
	CardinalityManyToMany Cardinality = "manyToMany"
)

// CrossFilter is the direction in which a relationship propagates filters.
type CrossFilter string

// Cross-filtering behaviors.
const (
	FilterSingleDirection CrossFilter = "singleDirection"
	FilterBothDirections  CrossFilter = "bothDirections"
)

// Defaults applied when a relationship omits the property or uses a symbol
// the table does not know.
const (
	DefaultCardinality = CardinalityOneToMany
	DefaultCrossFilter = FilterSingleDirection
	DefaultIsActive    = true
)

// Symbol tables mapping the formats' one-character tokens to canonical
// values. The reverse direction (canonical value to symbol) is computed by
// FilterCardinalitySymbols because the symbols depend on both endpoints.
var (
	cardinalitySymbols = map[string]Cardinality{
		"1": CardinalityOne,
		"*": CardinalityMany,
	}

	crossFilterSymbols = map[string]CrossFilter{
		"<":  FilterSingleDirection,
		"<>": FilterBothDirections,
	}

	activeSymbols = map[string]bool{
		"+": true,
		"-": false,
	}

	cardinalityNames = map[string]Cardinality{
		string(CardinalityOne):        CardinalityOne,
		string(CardinalityMany):       CardinalityMany,
		string(CardinalityOneToMany):  CardinalityOneToMany,
		string(CardinalityManyToMany): CardinalityManyToMany,
	}

	crossFilterNames = map[string]CrossFilter{
		string(FilterSingleDirection): FilterSingleDirection,
		string(FilterBothDirections):  FilterBothDirections,
	}
)

// ParseCardinality maps a cardinality token, either a word form
// ("one", "oneToMany") or a symbol ("1", "*"), to its canonical value.
func ParseCardinality(tok string) (Cardinality, bool) {
	if c, ok := cardinalityNames[tok]; ok {
		return c, true
	}
	if c, ok := cardinalitySymbols[tok]; ok {
		return c, true
	}
	return "", false
}

// ParseCrossFilter maps a cross-filter token ("singleDirection", "<", ...)
// to its canonical value.
func ParseCrossFilter(tok string) (CrossFilter, bool) {
	if f, ok := crossFilterNames[tok]; ok {
		return f, true
	}
	if f, ok := crossFilterSymbols[tok]; ok {
		return f, true
	}
	return "", false
}

// ParseActive maps an active-state token ("true", "false", "+", "-") to a
// boolean.
func ParseActive(tok string) (bool, bool) {
	switch tok {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	if b, ok := activeSymbols[tok]; ok {
		return b, true
	}
	return false, false
}

// FilterCardinalitySymbols derives the symbolic rendering of a relationship:
// the filtering symbol ("<" single direction, "<>" both) and the cardinality
// symbols ("1" or "*") for the from and to endpoints. Empty cardinalities
// mean the property was absent in the source.
func FilterCardinalitySymbols(filtering CrossFilter, to, from Cardinality) (filterSym, fromSym, toSym string) {
	filterSym = "<"
	if filtering == FilterBothDirections {
		filterSym = "<>"
	}
	fromSym, toSym = "*", "*"

	switch filtering {
	case FilterBothDirections:
		switch {
		case from == CardinalityOne || to == CardinalityOne:
			fromSym, toSym = "1", "1"
		case from == "" && to == "":
			toSym = "1"
		case to == CardinalityOneToMany:
			toSym = "1"
		}
	case FilterSingleDirection:
		switch {
		case to == "":
			toSym = "1"
		case to == CardinalityMany:
			fromSym, toSym = "*", "*"
		case to == CardinalityOneToMany:
			fromSym, toSym = "*", "1"
		}
	}
	return filterSym, fromSym, toSym
}
