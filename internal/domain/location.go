package domain

// Location is a polling station as listed in the static directory.
type Location struct {
	Insee   string `json:"insee" yaml:"insee"`
	Bureau  string `json:"bur" yaml:"bur"`
	Commune string `json:"nomcom" yaml:"nomcom"`
	Label   string `json:"label,omitempty" yaml:"label,omitempty"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
}

// Station returns the store address of the location.
func (l Location) Station() Station {
	return Station{LocationID: l.Insee, RoleID: l.Bureau}
}

// Commune is a search result of the location directory.
type Commune struct {
	Insee   string `json:"insee"`
	Name    string `json:"nomcom"`
	Bureaux int    `json:"bureaux"`
}
