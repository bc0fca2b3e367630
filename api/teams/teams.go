/* teams.go
 * Contains the league roster and the logic for turning the many spellings of a team name (abbreviations, city only,
 * nickname only, legacy names) into one canonical name. Every team name must pass through Normalize before it is
 * compared with another team name
 * Authors: Zachary Bower
 */

package teams

import (
	"sort"
	"strings"
)

// team is one roster entry: the canonical name plus every alias seen in picks, provider feeds and manual input
type team struct {
	name    string
	aliases []string
}

var roster = []team{
	{"Arizona Cardinals", []string{"ARI", "ARZ", "Arizona", "Cardinals", "Cards", "AZ Cardinals"}},
	{"Atlanta Falcons", []string{"ATL", "Atlanta", "Falcons"}},
	{"Baltimore Ravens", []string{"BAL", "Baltimore", "Ravens"}},
	{"Buffalo Bills", []string{"BUF", "Buffalo", "Bills"}},
	{"Carolina Panthers", []string{"CAR", "Carolina", "Panthers"}},
	{"Chicago Bears", []string{"CHI", "Chicago", "Bears"}},
	{"Cincinnati Bengals", []string{"CIN", "Cincinnati", "Bengals"}},
	{"Cleveland Browns", []string{"CLE", "Cleveland", "Browns"}},
	{"Dallas Cowboys", []string{"DAL", "Dallas", "Cowboys"}},
	{"Denver Broncos", []string{"DEN", "Denver", "Broncos"}},
	{"Detroit Lions", []string{"DET", "Detroit", "Lions"}},
	{"Green Bay Packers", []string{"GB", "GNB", "Green Bay", "Packers"}},
	{"Houston Texans", []string{"HOU", "Houston", "Texans"}},
	{"Indianapolis Colts", []string{"IND", "Indianapolis", "Colts"}},
	{"Jacksonville Jaguars", []string{"JAX", "JAC", "Jacksonville", "Jaguars", "Jags"}},
	{"Kansas City Chiefs", []string{"KC", "KAN", "Kansas City", "Chiefs"}},
	{"Las Vegas Raiders", []string{"LV", "LVR", "Las Vegas", "Raiders", "Oakland Raiders", "OAK"}},
	{"Los Angeles Chargers", []string{"LAC", "LA Chargers", "L.A. Chargers", "Chargers", "San Diego Chargers", "SD"}},
	{"Los Angeles Rams", []string{"LAR", "LA Rams", "L.A. Rams", "Rams", "St. Louis Rams", "STL"}},
	{"Miami Dolphins", []string{"MIA", "Miami", "Dolphins"}},
	{"Minnesota Vikings", []string{"MIN", "Minnesota", "Vikings"}},
	{"New England Patriots", []string{"NE", "NWE", "New England", "Patriots", "Pats"}},
	{"New Orleans Saints", []string{"NO", "NOR", "New Orleans", "Saints"}},
	{"New York Giants", []string{"NYG", "NY Giants", "N.Y. Giants", "Giants"}},
	{"New York Jets", []string{"NYJ", "NY Jets", "N.Y. Jets", "Jets"}},
	{"Philadelphia Eagles", []string{"PHI", "Philadelphia", "Philly", "Eagles"}},
	{"Pittsburgh Steelers", []string{"PIT", "Pittsburgh", "Steelers"}},
	{"San Francisco 49ers", []string{"SF", "SFO", "San Francisco", "49ers", "Niners"}},
	{"Seattle Seahawks", []string{"SEA", "Seattle", "Seahawks"}},
	{"Tampa Bay Buccaneers", []string{"TB", "TAM", "Tampa Bay", "Tampa", "Buccaneers", "Bucs"}},
	{"Tennessee Titans", []string{"TEN", "Tennessee", "Titans"}},
	{"Washington Commanders", []string{"WAS", "WSH", "Washington", "Commanders", "Washington Football Team", "WFT"}},
}

// lookup maps the folded form of every canonical name and alias to its canonical name
var lookup = buildLookup()

func buildLookup() map[string]string {
	m := make(map[string]string, len(roster)*6)
	for _, t := range roster {
		m[fold(t.name)] = t.name
		for _, alias := range t.aliases {
			m[fold(alias)] = t.name
		}
	}
	return m
}

// fold lowercases a name, strips periods and collapses runs of whitespace so "L.A.  Rams" and "la rams" compare equal
func fold(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, ".", ""))
	return strings.Join(strings.Fields(name), " ")
}

// Normalize maps a raw team name to its canonical roster name.
// Preconditions: Receives any string, including abbreviations such as "LAR" or nicknames such as "Niners"
// Postconditions: Returns the canonical name if the input is a known alias, else returns the trimmed input unchanged
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if canonical, ok := lookup[fold(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

// Equal reports whether two raw names refer to the same team after normalization
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// IsKnown reports whether a name normalizes to one of the 32 roster teams
func IsKnown(name string) bool {
	_, ok := lookup[fold(Normalize(name))]
	return ok
}

// Roster returns the 32 canonical team names in alphabetical order
func Roster() []string {
	names := make([]string, 0, len(roster))
	for _, t := range roster {
		names = append(names, t.name)
	}
	sort.Strings(names)
	return names
}
