package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Version labels: prototype lineages run vA..vZ (26 versions, a hard
// ceiling), production lineages run v1,v2,... without bound. Every lineage
// of a class starts at its first label; the sequencer only ever produces
// "current + 1", which keeps lineages contiguous.

// FirstVersion returns the label every new lineage starts with.
func FirstVersion(production bool) string {
	if production {
		return "v1"
	}
	return "vA"
}

// NextVersion computes the successor of current for the given class.
func NextVersion(current string, production bool) (string, error) {
	n, err := VersionOrdinal(current, production)
	if err != nil {
		return "", err
	}
	if production {
		return "v" + strconv.Itoa(n+1), nil
	}
	if n >= 26 {
		return "", &ValidationError{Field: "version", Reason: "prototype versions end at vZ"}
	}
	return "v" + string(rune('A'+n)), nil
}

// PrevVersion computes the immediate predecessor label, or "" when current
// is the first version of its lineage.
func PrevVersion(current string, production bool) (string, error) {
	n, err := VersionOrdinal(current, production)
	if err != nil {
		return "", err
	}
	if n <= 1 {
		return "", nil
	}
	if production {
		return "v" + strconv.Itoa(n-1), nil
	}
	return "v" + string(rune('A'+n-2)), nil
}

// VersionOrdinal maps a label onto its 1-based position in the lineage
// (vA=1, vB=2, ... / v1=1, v2=2, ...).
func VersionOrdinal(v string, production bool) (int, error) {
	if !strings.HasPrefix(v, "v") || len(v) < 2 {
		return 0, &ValidationError{Field: "version", Reason: fmt.Sprintf("malformed label %q", v)}
	}
	body := v[1:]
	if production {
		n, err := strconv.Atoi(body)
		if err != nil || n < 1 {
			return 0, &ValidationError{Field: "version", Reason: fmt.Sprintf("%q is not a production label (vN, N>=1)", v)}
		}
		return n, nil
	}
	if len(body) != 1 || body[0] < 'A' || body[0] > 'Z' {
		return 0, &ValidationError{Field: "version", Reason: fmt.Sprintf("%q is not a prototype label (vA..vZ)", v)}
	}
	return int(body[0]-'A') + 1, nil
}
