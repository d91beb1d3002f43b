package version

import (
	"log/slog"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// Ordering is the result of comparing two version strings.
type Ordering int

// Comparison results. Incomparable means at least one side could not be
// parsed as a semantic version; callers must treat it as "unknown", never
// as an error worth crashing over.
const (
	OrderLess Ordering = iota - 1
	OrderEqual
	OrderGreater
	OrderIncomparable
)

// String returns a human-readable name for the ordering.
func (o Ordering) String() string {
	switch o {
	case OrderLess:
		return "less"
	case OrderEqual:
		return "equal"
	case OrderGreater:
		return "greater"
	default:
		return "incomparable"
	}
}

// NormalizeTag strips the release feed's literal "v." tag prefix so the
// online tag can be compared against the plain build version.
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(tag, "v.")
}

// Compare orders two version strings by semantic-versioning precedence:
// major, minor, patch, then pre-release (a pre-release sorts before its
// release). Returns OrderIncomparable when either string fails to parse.
func Compare(a, b string) Ordering {
	va, err := goversion.NewSemver(a)
	if err != nil {
		return OrderIncomparable
	}
	vb, err := goversion.NewSemver(b)
	if err != nil {
		return OrderIncomparable
	}
	switch c := va.Compare(vb); {
	case c < 0:
		return OrderLess
	case c > 0:
		return OrderGreater
	default:
		return OrderEqual
	}
}

// IsDowngradeOf reports whether the online release orders before the
// currently running version. Unparsable input on either side yields false,
// the conservative answer, with a warning log.
func IsDowngradeOf(online, current string, logger *slog.Logger) bool {
	onlineVer, err := goversion.NewSemver(online)
	if err != nil {
		logger.Warn("Unable to parse online version", "version", online, "error", err)
		return false
	}
	currentVer, err := goversion.NewSemver(current)
	if err != nil {
		logger.Warn("Unable to parse current version", "version", current, "error", err)
		return false
	}
	return onlineVer.LessThan(currentVer)
}
