/* resolve.go
 * Contains the fuzzy matching used for operator and user input, where team names are typed by hand and may be
 * partial or misspelt. Provider data and stored picks go through Normalize only, never through fuzzy matching
 * Authors: Zachary Bower
 */

package teams

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Resolve finds the roster team best matching a hand typed name.
// Preconditions: Receives a string typed by a user, e.g. "rams", "kansas", "49ers"
// Postconditions: Returns the canonical team name, or an error if no team or more than one equally good team matches
func Resolve(input string) (string, error) {
	input = strings.Trim(strings.TrimSpace(input), "\"“”")
	if input == "" {
		return "", fmt.Errorf("team name cannot be empty")
	}

	// Aliases win over fuzzy matching so that "NYG" can never resolve to the Jets
	if IsKnown(input) {
		return Normalize(input), nil
	}

	names := Roster()
	var namesLower []string
	originals := make(map[string]string, len(names))
	for _, name := range names {
		lower := strings.ToLower(name)
		namesLower = append(namesLower, lower)
		originals[lower] = name
	}

	ranks := fuzzy.RankFindFold(input, namesLower)
	switch len(ranks) {
	case 0:
		return "", fmt.Errorf("'%s' does not match any team", input)
	case 1:
		return originals[ranks[0].Target], nil
	}

	// Multiple matches, only accept the closest one if it is strictly closer than the runner up
	sort.Sort(ranks)
	best, second := ranks[0], ranks[1]
	if best.Distance == second.Distance {
		return "", fmt.Errorf("'%s' is ambiguous, could be %s or %s", input, originals[best.Target], originals[second.Target])
	}
	return originals[best.Target], nil
}

// CheckTeamNames processes team names from user input and checks if they are valid.
// Preconditions: Receives a string slice containing hand typed team names
// Postconditions: Returns two string slices, the canonical names that resolved and the inputs that did not
func CheckTeamNames(inputs []string) ([]string, []string) {
	var resolved []string
	var invalid []string
	for _, input := range inputs {
		name, err := Resolve(input)
		if err != nil {
			invalid = append(invalid, input)
			continue
		}
		resolved = append(resolved, name)
	}
	return resolved, invalid
}
