// Package blood holds the closed vocabularies shared by inventory, requests
// and donor profiles.
package blood

import (
	"github.com/bloodbank/bloodbank/internal/platform/apperr"
)

// Group is an ABO/Rh blood group.
type Group string

const (
	APos  Group = "A+"
	ANeg  Group = "A-"
	BPos  Group = "B+"
	BNeg  Group = "B-"
	ABPos Group = "AB+"
	ABNeg Group = "AB-"
	OPos  Group = "O+"
	ONeg  Group = "O-"
)

// canonical order used by the inventory summary.
var groups = []Group{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

// Groups returns the eight groups in canonical order.
func Groups() []Group {
	out := make([]Group, len(groups))
	copy(out, groups)
	return out
}

func (g Group) Valid() bool {
	for _, v := range groups {
		if g == v {
			return true
		}
	}
	return false
}

func ParseGroup(s string) (Group, error) {
	g := Group(s)
	if !g.Valid() {
		return "", apperr.BadRequest("Invalid blood group: %s", s)
	}
	return g, nil
}

// Component is a blood product type.
type Component string

const (
	WholeBlood      Component = "Whole Blood"
	RedBloodCells   Component = "Red Blood Cells"
	Plasma          Component = "Plasma"
	Platelets       Component = "Platelets"
	Cryoprecipitate Component = "Cryoprecipitate"
)

var components = []Component{WholeBlood, RedBloodCells, Plasma, Platelets, Cryoprecipitate}

func Components() []Component {
	out := make([]Component, len(components))
	copy(out, components)
	return out
}

func (c Component) Valid() bool {
	for _, v := range components {
		if c == v {
			return true
		}
	}
	return false
}

func ParseComponent(s string) (Component, error) {
	c := Component(s)
	if !c.Valid() {
		return "", apperr.BadRequest("Invalid component type: %s", s)
	}
	return c, nil
}
