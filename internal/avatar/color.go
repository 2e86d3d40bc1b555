// Package avatar derives display colors for users.
package avatar

import "fmt"

// Color maps a username to a stable pastel HSL color. The mapping is a pure
// function of the string, so the value can be recomputed anywhere and is
// only cached on the user record for convenience.
func Color(username string) string {
	var hash int32
	for _, r := range username {
		hash = int32(r) + (hash << 5) - hash
	}
	return fmt.Sprintf("hsl(%d, 60%%, 70%%)", hash%360)
}
