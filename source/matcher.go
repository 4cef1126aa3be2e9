package source

import "strings"

// match reports whether r matches serviceID and, when applicable, returns the
// length of the matched portion (used for tie-breaking among same-kind rules).
func (r *rule) match(serviceID string) (matched bool, length int) {
	switch r.kind {
	case kindExact:
		if serviceID == r.pattern {
			return true, len(r.pattern)
		}
	case kindPrefix:
		if strings.HasPrefix(serviceID, r.pattern) {
			return true, len(r.pattern)
		}
	case kindRegex:
		if loc := r.re.FindStringIndex(serviceID); loc != nil {
			return true, loc[1] - loc[0]
		}
	}
	return false, 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
