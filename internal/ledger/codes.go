package ledger

import (
	"regexp"
	"strings"
)

var (
	reAccountCode = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)
	// Tax IDs follow the fiscal registry format: a letter class prefix,
	// 8 digit body and check digit, e.g. J-12345678-9. Dashes optional.
	reTaxID = regexp.MustCompile(`^[VEJPG]-?[0-9]{7,9}(-?[0-9])?$`)
)

// ValidAccountCode reports whether code is a well-formed dot-hierarchical
// account code such as "1", "1.1" or "1.1.01".
func ValidAccountCode(code string) bool {
	return reAccountCode.MatchString(code)
}

// ParentCode returns the immediate ancestor of a dot-hierarchical code,
// or "" for a top-level code.
func ParentCode(code string) string {
	i := strings.LastIndex(code, ".")
	if i < 0 {
		return ""
	}
	return code[:i]
}

// CodeDepth returns the number of segments in a dot-hierarchical code.
func CodeDepth(code string) int {
	if code == "" {
		return 0
	}
	return strings.Count(code, ".") + 1
}

// ValidTaxID reports whether s matches the counterparty tax id format.
func ValidTaxID(s string) bool {
	return reTaxID.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}
