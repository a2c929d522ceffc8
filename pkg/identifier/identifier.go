// Package identifier owns the public patient identifier grammar:
//
//	PREFIX-YYYYMMDD-XXXX
//
// where the date segment is the UTC calendar date of issuance and the suffix
// is 4 uppercase hex characters from a cryptographically secure source. The
// same grammar is shared by the record lookup codes (REC prefix), so the
// grammar is parameterized by prefix rather than hardcoded to PAT.
//
// Validation here is purely structural. Calendar sanity (future dates, dates
// beyond the retention horizon) is a business rule owned by internal/guard;
// the two layers evolve independently and have different callers.
package identifier

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"
)

// Grammar describes one registered prefix of the shared date+hex format.
type Grammar struct {
	prefix string
}

// Patient is the grammar for public patient identifiers (PAT-YYYYMMDD-XXXX).
// The exact 17-character wire format is a client compatibility contract.
var Patient = Grammar{prefix: "PAT"}

// Record is the structurally identical sibling grammar used by the record
// lookup flow. It shares the date+hex segments but never collides with
// patient identifiers because the prefix differs.
var Record = Grammar{prefix: "REC"}

const (
	dateLayout = "20060102"
	suffixLen  = 4
	hexUpper   = "0123456789ABCDEF"
)

// totalLen is the full identifier length: prefix(3) + '-' + date(8) + '-' + hex(4).
const totalLen = 3 + 1 + 8 + 1 + suffixLen

// Generate produces a fresh identifier for the current UTC calendar date.
// The suffix carries 16 bits of entropy (65,536 possibilities per day);
// uniqueness against the store is the caller's responsibility.
func (g Grammar) Generate(now time.Time) (string, error) {
	var raw [2]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", fmt.Errorf("read random suffix: %w", err)
	}
	suffix := [suffixLen]byte{
		hexUpper[raw[0]>>4],
		hexUpper[raw[0]&0x0f],
		hexUpper[raw[1]>>4],
		hexUpper[raw[1]&0x0f],
	}
	return g.prefix + "-" + now.UTC().Format(dateLayout) + "-" + string(suffix[:]), nil
}

// Validate performs the structural check only: exact length, prefix, 8 digits,
// 4 uppercase hex characters. It does no I/O and accepts calendar-impossible
// dates such as month 13; see package comment for the layering rationale.
func (g Grammar) Validate(id string) bool {
	if len(id) != totalLen {
		return false
	}
	if !strings.HasPrefix(id, g.prefix+"-") {
		return false
	}
	if id[12] != '-' {
		return false
	}
	for i := 4; i < 12; i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	for i := 13; i < totalLen; i++ {
		if !isUpperHex(id[i]) {
			return false
		}
	}
	return true
}

// ExtractIssuanceDate parses the embedded date segment into a UTC calendar
// date. Returns false for malformed identifiers or calendar-impossible dates.
func (g Grammar) ExtractIssuanceDate(id string) (time.Time, bool) {
	if !g.Validate(id) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, id[4:12], time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Prefix returns the registered prefix of this grammar.
func (g Grammar) Prefix() string { return g.prefix }

// Mask redacts the middle of an identifier for logs and audit payloads,
// keeping the first 3 and last 4 characters visible. Anything too short to
// mask meaningfully is fully redacted.
func Mask(id string) string {
	if len(id) <= 7 {
		return strings.Repeat("*", len(id))
	}
	return id[:3] + strings.Repeat("*", len(id)-7) + id[len(id)-4:]
}

func isUpperHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
}
