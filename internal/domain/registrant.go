package domain

import "fmt"

// Registrant is the data submitted by a volunteer. LocationID is the INSEE
// code of the commune and RoleID the bureau number inside it; together they
// address one polling station.
type Registrant struct {
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Date       string `json:"date"`
	Zipcode    string `json:"zipcode,omitempty"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2,omitempty"`
	Commune    string `json:"commune,omitempty"`
	LocationID string `json:"insee"`
	RoleID     string `json:"bur"`
}

// Station returns the polling station targeted by the registrant.
func (r *Registrant) Station() Station {
	return Station{LocationID: r.LocationID, RoleID: r.RoleID}
}

// Station identifies one polling station.
type Station struct {
	LocationID string `json:"insee"`
	RoleID     string `json:"bur"`
}

func (s Station) String() string {
	return fmt.Sprintf("%s:%s", s.LocationID, s.RoleID)
}

// Slot is one of the two places of a polling station.
type Slot string

const (
	SlotPrimary   Slot = "primary"   // titulaire
	SlotSecondary Slot = "secondary" // suppléant
)
