// Package contacts resolves raw message handles (phone numbers, emails) to
// display names using the local AddressBook store. Handles show up in many
// shapes ("+15551234567", "555-123-4567", sometimes truncated), so resolution
// tries a fixed list of normalized variants before falling back to a linear
// digit-containment scan over the whole directory.
package contacts

import (
	"fmt"
	"strings"
)

// Card is one directory entry: a name and the phone numbers filed under it.
type Card struct {
	Given  string
	Family string
	Phones []string
}

// Directory is a read-only identity directory. Implementations must treat an
// inaccessible backing store as an empty directory, not an error source.
type Directory interface {
	// LookupPhone returns the first card matching the given number variant.
	LookupPhone(number string) (Card, bool)
	// Enumerate visits every card until fn returns false.
	Enumerate(fn func(Card) bool)
}

// Resolver maps raw handles to display names against a Directory.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve attempts to find a contact name for the raw identifier. Variants
// are tried in a fixed order; the order decides which contact wins on
// ambiguous numbers, so it must not be reshuffled:
//
//  1. the identifier as given
//  2. digits only
//  3. digits with a leading +
//  4. US form: trailing redundant "1" stripped, +1 prepended
//
// If no variant matches, every card is scanned for digit containment in
// either direction, which catches truncated or partially-stored numbers.
func (r *Resolver) Resolve(raw string) (string, bool) {
	if r == nil || r.dir == nil {
		return "", false
	}

	digits := DigitsOnly(raw)
	if digits == "" {
		return "", false
	}

	usDigits := digits
	if strings.HasSuffix(usDigits, "1") {
		usDigits = usDigits[:len(usDigits)-1]
	}
	variants := []string{
		raw,
		digits,
		"+" + digits,
		"+1" + usDigits,
	}

	for _, variant := range variants {
		if card, ok := r.dir.LookupPhone(variant); ok {
			name := card.BestName()
			return name, name != ""
		}
	}

	var found *Card
	r.dir.Enumerate(func(card Card) bool {
		for _, phone := range card.Phones {
			contactDigits := DigitsOnly(phone)
			if contactDigits == "" {
				continue
			}
			if strings.Contains(contactDigits, digits) || strings.Contains(digits, contactDigits) {
				c := card
				found = &c
				return false
			}
		}
		return true
	})
	if found != nil {
		name := found.BestName()
		return name, name != ""
	}
	return "", false
}

// DisplayName resolves the identifier, falling back to a formatted version
// of it. Total: never returns empty for non-empty input.
func (r *Resolver) DisplayName(raw string) string {
	if name, ok := r.Resolve(raw); ok {
		return name
	}
	return FormatPhoneNumber(raw)
}

// BestName is the trimmed "Given Family" pair, or the given name alone when
// the family name is blank.
func (c Card) BestName() string {
	full := strings.TrimSpace(c.Given + " " + c.Family)
	if full == "" {
		return strings.TrimSpace(c.Given)
	}
	return full
}

// DigitsOnly strips everything but decimal digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhoneNumber renders US-style numbers for display. Anything that is
// not a 10- or 11-digit US number passes through unchanged.
func FormatPhoneNumber(phone string) string {
	digits := DigitsOnly(phone)

	switch {
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return fmt.Sprintf("+1 (%s) %s-%s", digits[1:4], digits[4:7], digits[7:])
	case len(digits) == 10:
		return fmt.Sprintf("(%s) %s-%s", digits[0:3], digits[3:6], digits[6:])
	default:
		return phone
	}
}
