package enums

import "fmt"

// Venue identifies which celebration a guest is invited to. Vietnamese
// weddings commonly hold separate parties at the groom's and bride's side.
type Venue string

const (
	VenueGroom Venue = "groom"
	VenueBride Venue = "bride"
	VenueBoth  Venue = "both"
)

var validVenues = []Venue{
	VenueGroom,
	VenueBride,
	VenueBoth,
}

// String returns the literal string for the venue.
func (v Venue) String() string {
	return string(v)
}

// IsValid reports whether the venue is known.
func (v Venue) IsValid() bool {
	for _, candidate := range validVenues {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVenue converts raw input into a Venue.
func ParseVenue(value string) (Venue, error) {
	for _, candidate := range validVenues {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid venue %q", value)
}
