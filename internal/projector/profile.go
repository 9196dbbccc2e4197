// SPDX-License-Identifier: MPL-2.0

package projector

import (
	"fmt"
	"strings"

	"github.com/thediveo/enumflag/v2"
)

const (
	// Development projects the tsconfig used by the dev server.
	Development Profile = iota
	// Production projects the AOT tsconfig used by release builds.
	Production
)

// Profile selects the tsconfig projection.
type Profile enumflag.Flag

// ProfileIds maps profiles to their accepted names; the first is canonical.
var ProfileIds = map[Profile][]string{
	Development: {"development", "dev"},
	Production:  {"production", "prod"},
}

// String returns the canonical profile name.
func (p Profile) String() string {
	if names, ok := ProfileIds[p]; ok {
		return names[0]
	}
	return fmt.Sprintf("Profile(%d)", int(p))
}

// ParseProfile parses a profile name.
func ParseProfile(name string) (Profile, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, names := range ProfileIds {
		for _, n := range names {
			if n == name {
				return p, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown profile %q: want development or production", name)
}
