package domain

import "fmt"

// Collection identifies one of the two watched document sets.
type Collection string

// Available collections.
const (
	// CollectionGovernment holds government policy documents.
	CollectionGovernment Collection = "government"

	// CollectionHospital holds hospital policy documents.
	CollectionHospital Collection = "hospital"
)

// Collections lists every collection in processing order.
var Collections = []Collection{CollectionGovernment, CollectionHospital}

// IsValid returns true if the collection is recognised.
func (c Collection) IsValid() bool {
	switch c {
	case CollectionGovernment, CollectionHospital:
		return true
	default:
		return false
	}
}

// Opposite returns the collection a new document is cross-checked against.
func (c Collection) Opposite() Collection {
	if c == CollectionGovernment {
		return CollectionHospital
	}
	return CollectionGovernment
}

// String returns the string representation.
func (c Collection) String() string {
	return string(c)
}

// Description returns a human-readable label used in notifications.
func (c Collection) Description() string {
	switch c {
	case CollectionGovernment:
		return "government"
	case CollectionHospital:
		return "hospital"
	default:
		return unknownDescription
	}
}

// ParseCollection converts user input into a Collection.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
	}
	return c, nil
}
