package identity

import (
	"strings"
	"time"

	"github.com/fraudlab/cardsim-backend/internal/models"
)

// Match compares a freshly submitted profile against the one recorded at
// issuance time. Name and email are case-folded, phone is reduced to its
// digits, the national id must match exactly and DOB is compared on the
// calendar date only. A missing required field is an automatic non-match.
func Match(stored, submitted models.Profile) bool {
	if strings.TrimSpace(submitted.FullName) == "" ||
		strings.TrimSpace(submitted.Email) == "" ||
		strings.TrimSpace(submitted.Phone) == "" ||
		strings.TrimSpace(submitted.NationalID) == "" ||
		submitted.DateOfBirth.IsZero() {
		return false
	}
	if foldSpace(stored.FullName) != foldSpace(submitted.FullName) {
		return false
	}
	if fold(stored.Email) != fold(submitted.Email) {
		return false
	}
	if digits(stored.Phone) != digits(submitted.Phone) {
		return false
	}
	if strings.TrimSpace(stored.NationalID) != strings.TrimSpace(submitted.NationalID) {
		return false
	}
	return sameDate(stored.DateOfBirth, submitted.DateOfBirth)
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func foldSpace(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), " ") }

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
