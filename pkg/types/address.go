package types

import (
	"fmt"
	"strings"
)

// Address is a resolved delivery address owned by the shopper's address book.
type Address struct {
	ID        string `json:"id"`
	Street    string `json:"street"`
	Apt       string `json:"apt,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	IsDefault bool   `json:"is_default"`
}

// Validate reports the first missing component of the address.
func (a Address) Validate() error {
	if strings.TrimSpace(a.Street) == "" {
		return fmt.Errorf("address: missing street")
	}
	if strings.TrimSpace(a.City) == "" {
		return fmt.Errorf("address: missing city")
	}
	if strings.TrimSpace(a.State) == "" {
		return fmt.Errorf("address: missing state")
	}
	if strings.TrimSpace(a.Zip) == "" {
		return fmt.Errorf("address: missing zip")
	}
	return nil
}

// Line formats the address on a single line, e.g. "12 Oak St Apt 4, Austin, TX 78701".
func (a Address) Line() string {
	street := strings.TrimSpace(a.Street)
	if apt := strings.TrimSpace(a.Apt); apt != "" {
		street = street + " " + apt
	}
	return fmt.Sprintf("%s, %s, %s %s", street, strings.TrimSpace(a.City), strings.ToUpper(strings.TrimSpace(a.State)), strings.TrimSpace(a.Zip))
}

// FindAddress looks up an address by id.
func FindAddress(addresses []Address, id string) (Address, bool) {
	for _, addr := range addresses {
		if addr.ID == id {
			return addr, true
		}
	}
	return Address{}, false
}

// DefaultAddress returns the address flagged as default, falling back to the first entry.
func DefaultAddress(addresses []Address) (Address, bool) {
	for _, addr := range addresses {
		if addr.IsDefault {
			return addr, true
		}
	}
	if len(addresses) > 0 {
		return addresses[0], true
	}
	return Address{}, false
}
