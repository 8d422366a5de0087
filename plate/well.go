// Package plate models microtiter plates: canonical well names, the set of
// wells that make up a plate, and the groups (blocks) of wells that are
// scored independently.
package plate

import (
	"strconv"
	"strings"
)

// Canonical returns the canonical form of a well identifier. Identifiers made
// of one or more ASCII letters followed by an unsigned integer lose the
// leading zeros of the integer and have their letters upper-cased, so "A01",
// "a1" and "A1" are all the same well. Anything else is returned trimmed but
// otherwise untouched.
func Canonical(id string) string {
	id = strings.TrimSpace(id)

	letters, number, ok := splitWell(id)
	if !ok {
		return id
	}

	return strings.ToUpper(letters) + strconv.FormatUint(number, 10)
}

// CanonicalAll canonicalizes every identifier in ids.
func CanonicalAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, Canonical(id))
	}

	return out
}

// CompositeID joins the values of a row's identifier columns with an
// underscore and canonicalizes the result.
func CompositeID(values []string) string {
	if len(values) == 1 {
		return Canonical(values[0])
	}

	return Canonical(strings.Join(values, "_"))
}

// splitWell breaks a well identifier like "AB012" into its row letters and
// column number.
func splitWell(id string) (letters string, number uint64, ok bool) {
	i := 0
	for i < len(id) && isASCIILetter(id[i]) {
		i++
	}

	if i == 0 || i == len(id) {
		return "", 0, false
	}

	number, err := strconv.ParseUint(id[i:], 10, 32)
	if err != nil {
		return "", 0, false
	}

	return id[:i], number, true
}

func isASCIILetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// Less orders wells the way they are laid out on a plate: by row letters
// (shorter rows first, so "P" precedes "AA"), then by column number. Ids that
// are not plate wells sort lexically after all wells.
func Less(a, b string) bool {
	aRow, aCol, aOK := splitWell(a)
	bRow, bCol, bOK := splitWell(b)

	switch {
	case aOK && !bOK:
		return true
	case !aOK && bOK:
		return false
	case !aOK && !bOK:
		return a < b
	}

	aRow, bRow = strings.ToUpper(aRow), strings.ToUpper(bRow)
	if len(aRow) != len(bRow) {
		return len(aRow) < len(bRow)
	}
	if aRow != bRow {
		return aRow < bRow
	}
	if aCol != bCol {
		return aCol < bCol
	}

	return a < b
}
