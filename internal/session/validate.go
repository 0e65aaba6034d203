package session

import (
	"fmt"
	"regexp"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateName checks that an instance id can name its directory under the
// session path without clashing with the shared entries there.
func ValidateName(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("instance id is empty")
	case !idPattern.MatchString(id):
		return fmt.Errorf("invalid instance id %q: use up to 64 of a-z, 0-9, '_' and '-', starting with a letter or digit", id)
	case id == logDirName:
		return fmt.Errorf("instance id %q is reserved for the log directory", id)
	}
	return nil
}
