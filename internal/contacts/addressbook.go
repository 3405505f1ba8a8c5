package contacts

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// AddressBookDirectory reads the macOS Contacts store
// (AddressBook-v22.abcddb), a Core Data sqlite file. Cards are loaded once
// at open; the directory is small and the process is short-lived.
//
// Matching against a number variant accepts either the number exactly as
// filed or an exact match on its digit form, which is how the system
// contact predicate behaves for formatted numbers.
type AddressBookDirectory struct {
	cards []Card
}

// OpenAddressBook loads the directory at path. An unreadable or missing
// store yields an empty directory: identity resolution then simply finds no
// matches, and callers fall back to formatted numbers.
func OpenAddressBook(path string) *AddressBookDirectory {
	dir := &AddressBookDirectory{}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return dir
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return dir
	}

	rows, err := db.Query(`
		SELECT r.ZFIRSTNAME, r.ZLASTNAME, p.ZFULLNUMBER
		FROM ZABCDRECORD r
		JOIN ZABCDPHONENUMBER p ON p.ZOWNER = r.Z_PK
		ORDER BY r.Z_PK
	`)
	if err != nil {
		return dir
	}
	defer rows.Close()

	byName := make(map[string]int)
	for rows.Next() {
		var given, family, number sql.NullString
		if err := rows.Scan(&given, &family, &number); err != nil {
			return dir
		}
		if number.String == "" {
			continue
		}

		key := given.String + "\x00" + family.String
		idx, ok := byName[key]
		if !ok {
			idx = len(dir.cards)
			byName[key] = idx
			dir.cards = append(dir.cards, Card{Given: given.String, Family: family.String})
		}
		dir.cards[idx].Phones = append(dir.cards[idx].Phones, number.String)
	}
	if err := rows.Err(); err != nil {
		dir.cards = nil
	}
	return dir
}

// Available reports whether any cards were loaded.
func (d *AddressBookDirectory) Available() bool {
	return d != nil && len(d.cards) > 0
}

func (d *AddressBookDirectory) LookupPhone(number string) (Card, bool) {
	want := DigitsOnly(number)
	for _, card := range d.cards {
		for _, phone := range card.Phones {
			if phone == number {
				return card, true
			}
			if want != "" && DigitsOnly(phone) == want {
				return card, true
			}
		}
	}
	return Card{}, false
}

func (d *AddressBookDirectory) Enumerate(fn func(Card) bool) {
	for _, card := range d.cards {
		if !fn(card) {
			return
		}
	}
}
