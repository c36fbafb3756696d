package pricing

import "strings"

// Composition part labels, joined in this fixed order.
const (
	LabelCurtain  = "Curtain"
	LabelLining   = "Lining"
	LabelBlackout = "Blackout"

	// NoneID is the catalog reference stored for "nothing selected".
	NoneID = "-"

	compositionSeparator = " + "
	noneDisplay          = "None"
)

// noneAliases are the values stored quotes and forms use for "nothing selected".
var noneAliases = []string{"-", "none", "nenhum", "sem tecido"}

// IsNone reports whether a catalog reference means "nothing selected".
func IsNone(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return true
	}
	for _, alias := range noneAliases {
		if strings.EqualFold(id, alias) {
			return true
		}
	}
	return false
}

// Composition records which fabric roles are present on a line.
type Composition struct {
	Curtain  bool
	Lining   bool
	Blackout bool
}

// ResolveComposition builds the composition for the selected roles. The label
// order depends on the role, never on selection order.
func ResolveComposition(curtain, lining, blackout bool) Composition {
	return Composition{Curtain: curtain, Lining: lining, Blackout: blackout}
}

// Label returns the assembly lookup key, e.g. "Curtain + Blackout", or "" when
// no fabric is selected.
func (c Composition) Label() string {
	parts := make([]string, 0, 3)
	if c.Curtain {
		parts = append(parts, LabelCurtain)
	}
	if c.Lining {
		parts = append(parts, LabelLining)
	}
	if c.Blackout {
		parts = append(parts, LabelBlackout)
	}
	return strings.Join(parts, compositionSeparator)
}

// Display returns the label shown to users: "None" for an empty composition.
func (c Composition) Display() string {
	if c.Empty() {
		return noneDisplay
	}
	return c.Label()
}

// Empty reports whether no fabric role is present.
func (c Composition) Empty() bool {
	return !c.Curtain && !c.Lining && !c.Blackout
}

// AssemblyKey identifies one row of the assembly price table.
type AssemblyKey struct {
	Label string
	Tall  bool
}

// AssemblyTable maps (composition label, tall tier) to the sewing/assembly price.
type AssemblyTable map[AssemblyKey]float64

// IsTall reports whether height falls in the tall pricing tier. The threshold
// is inclusive.
func IsTall(height float64, cfg Config) bool {
	return height >= cfg.withDefaults().TallHeight
}

// LookupAssemblyPrice resolves the assembly price of a composition at a height.
// A tall line without a tall-specific row inherits the standard price; a
// standard line never falls back to the tall price. Anything unresolved is 0.
func LookupAssemblyPrice(label string, height float64, table AssemblyTable, cfg Config) float64 {
	if label == "" {
		return 0
	}
	tall := IsTall(height, cfg)
	if price, ok := table[AssemblyKey{Label: label, Tall: tall}]; ok {
		return nonNegative(price)
	}
	if tall {
		if price, ok := table[AssemblyKey{Label: label, Tall: false}]; ok {
			return nonNegative(price)
		}
	}
	return 0
}

// HasAssemblyPrice reports whether LookupAssemblyPrice would find a row. Callers
// use it to warn about compositions without a configured price.
func HasAssemblyPrice(label string, height float64, table AssemblyTable, cfg Config) bool {
	if label == "" {
		return true
	}
	tall := IsTall(height, cfg)
	if _, ok := table[AssemblyKey{Label: label, Tall: tall}]; ok {
		return true
	}
	if tall {
		_, ok := table[AssemblyKey{Label: label, Tall: false}]
		return ok
	}
	return false
}
