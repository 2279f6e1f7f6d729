package address

import "strings"

// Flatten merges a type-grouped saved-address structure into a single list.
// The remote address service groups saved addresses by address type.
func Flatten(grouped map[string][]Address) []Address {
	if len(grouped) == 0 {
		return nil
	}

	// Deterministic order: known types first, then anything else.
	order := []string{TypeHome, TypeOffice, TypeOther}
	seen := make(map[string]bool, len(order))
	var flat []Address
	for _, key := range order {
		flat = append(flat, grouped[key]...)
		seen[key] = true
	}
	for key, addresses := range grouped {
		if !seen[key] {
			flat = append(flat, addresses...)
		}
	}
	return flat
}

// Match reports whether two addresses refer to the same physical contact
// record: the {name, phone, street address, city, zip, country} tuple must
// match exactly after trimming surrounding whitespace.
func Match(a, b Address) bool {
	return eq(a.ContactPersonName, b.ContactPersonName) &&
		eq(a.Phone, b.Phone) &&
		eq(a.Address, b.Address) &&
		eq(a.City, b.City) &&
		eq(a.Zip, b.Zip) &&
		eq(a.Country, b.Country)
}

func eq(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// FindExisting returns the id of a saved address matching the candidate.
// Reusing the matched id avoids unbounded duplicate creation on repeat
// checkouts.
func FindExisting(candidate Address, saved []Address) (int64, bool) {
	for _, existing := range saved {
		if existing.ID != 0 && Match(candidate, existing) {
			return existing.ID, true
		}
	}
	return 0, false
}
