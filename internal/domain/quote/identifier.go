package quote

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Public identifiers are year-scoped sequential strings of the form
// QT-YYYY-NNNN. They are the only identifier exposed to unauthenticated
// clients; the internal uuid stays unguessable independent of them.
// Their low entropy makes them enumerable, so they are addresses, not
// secrets.
const (
	publicIDTag       = "QT"
	publicIDSeqDigits = 4
)

// PublicIDPrefix returns the identifier prefix for the year of the given
// time, e.g. "QT-2026-".
func PublicIDPrefix(now time.Time) string {
	return fmt.Sprintf("%s-%d-", publicIDTag, now.Year())
}

// ParsePublicIDSequence extracts the numeric suffix from a public id with
// the given prefix. Returns false if the id does not belong to the prefix
// or its suffix is not numeric.
func ParsePublicIDSequence(publicID, prefix string) (int, bool) {
	if !strings.HasPrefix(publicID, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(publicID[len(prefix):])
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// FormatPublicID builds a public id from a prefix and a sequence number,
// zero-padding the sequence to four digits.
func FormatPublicID(prefix string, seq int) string {
	return fmt.Sprintf("%s%0*d", prefix, publicIDSeqDigits, seq)
}

// NextPublicID computes the next sequential public id for the year of now,
// given the public ids that already exist. Ids outside the current year
// partition are ignored; the sequence restarts at 1 each year.
//
// The scan-and-increment scheme is only safe when generation and insert
// happen inside one serialized critical section per store; the repository
// runs this inside the same transaction as the insert, backed by a unique
// index on the public id.
func NextPublicID(existing []string, now time.Time) string {
	prefix := PublicIDPrefix(now)

	max := 0
	for _, id := range existing {
		if seq, ok := ParsePublicIDSequence(id, prefix); ok && seq > max {
			max = seq
		}
	}

	return FormatPublicID(prefix, max+1)
}
