package quote

import (
	"fmt"

	"github.com/Simplici0/decorquote/internal/catalog"
	"github.com/Simplici0/decorquote/internal/pricing"
)

// Terms resolves the quote-wide settings against the snapshot.
func (d *Document) Terms(snap *catalog.Snapshot) pricing.Terms {
	return pricing.Terms{
		MarkupPercent: d.Markup.Float(),
		FeeKey:        d.FeeKey.String(),
		Freight:       resolveMoney(d.Freight, snap.FreightValue),
		DownPayment:   d.DownPayment.Float(),
	}
}

// ToQuote converts the document into the pricing model. Fabric and track
// references stay as names; installation and freight resolve by option key
// or, failing that, as literal amounts.
func (d *Document) ToQuote(snap *catalog.Snapshot) pricing.Quote {
	q := pricing.Quote{Terms: d.Terms(snap)}
	for _, tab := range d.Tabs {
		q.Tabs = append(q.Tabs, tab.toTab(snap))
	}
	return q
}

// Summarize prices every tab of the document.
func (d *Document) Summarize(snap *catalog.Snapshot, fees pricing.FeeTable, cfg pricing.Config) []pricing.TabSummary {
	return pricing.Summarize(d.ToQuote(snap), snap.Tables, fees, cfg)
}

func (t Tab) toTab(snap *catalog.Snapshot) pricing.Tab {
	out := pricing.Tab{Name: t.Name, SaleClosed: bool(t.SaleClosed)}
	for _, kind := range pricing.SectionOrder {
		section, ok := t.Sections[string(kind)]
		if !ok {
			continue
		}
		ps := pricing.Section{Kind: kind}
		for i, line := range section.Rooms {
			ps.Lines = append(ps.Lines, line.toLine(kind, i, snap))
		}
		out.Sections = append(out.Sections, ps)
	}
	return out
}

func (l Line) toLine(kind pricing.SectionKind, idx int, snap *catalog.Snapshot) pricing.Line {
	out := pricing.Line{Label: l.label(idx), Selected: bool(l.Selected)}

	if kind == pricing.SectionFabric {
		in := l.FabricInput(snap)
		out.Fabric = &in
		return out
	}

	out.System = &pricing.SystemLine{
		ProductValue:    l.ManualValue.Float(),
		MiscFee:         l.Misc.Float(),
		InstallationFee: resolveMoney(l.Installation, snap.InstallationValue),
	}
	return out
}

// FabricInput converts a fabric row into the pricing input, resolving the
// installation option against snap.
func (l Line) FabricInput(snap *catalog.Snapshot) pricing.LineInput {
	return pricing.LineInput{
		Width:            l.Width.Float(),
		Height:           l.Height.Float(),
		CurtainFullness:  l.CurtainFullness.Float(),
		BlackoutFullness: l.BlackoutFullness.Float(),
		CurtainFabricID:  l.CurtainFabric.String(),
		LiningFabricID:   l.LiningFabric.String(),
		BlackoutFabricID: l.BlackoutFabric.String(),
		TrackID:          l.Track.String(),
		InstallationFee:  resolveMoney(l.Installation, snap.InstallationValue),
		MiscFee:          l.Misc.Float(),
	}
}

func (l Line) label(idx int) string {
	if room := l.Room.String(); room != "" {
		return room
	}
	return fmt.Sprintf("Linha %d", idx+1)
}

// resolveMoney reads a select value that is either an option key or an amount.
func resolveMoney(raw Text, lookup func(string) (float64, bool)) float64 {
	key := raw.String()
	if pricing.IsNone(key) {
		return 0
	}
	if v, ok := lookup(key); ok {
		return v
	}
	return pricing.ParseCurrency(key)
}

// Warning flags a line whose composition has no assembly price configured.
type Warning struct {
	Tab         string  `json:"aba"`
	Line        string  `json:"linha"`
	Composition string  `json:"composicao"`
	Height      float64 `json:"altura"`
}

// Message renders the warning for users.
func (w Warning) Message() string {
	return fmt.Sprintf("%s / %s: sem preço de confecção para %q (altura %.3f m)", w.Tab, w.Line, w.Composition, w.Height)
}

// MissingAssembly lists fabric lines whose composition resolved to no assembly
// price. The pricing engine prices them with 0 assembly.
func (d *Document) MissingAssembly(snap *catalog.Snapshot, cfg pricing.Config) []Warning {
	var out []Warning
	for _, tab := range d.Tabs {
		section, ok := tab.Sections[string(pricing.SectionFabric)]
		if !ok {
			continue
		}
		for i, line := range section.Rooms {
			comp := pricing.ResolveComposition(
				!pricing.IsNone(line.CurtainFabric.String()),
				!pricing.IsNone(line.LiningFabric.String()),
				!pricing.IsNone(line.BlackoutFabric.String()),
			)
			height := line.Height.Float()
			if pricing.HasAssemblyPrice(comp.Label(), height, snap.Tables.Assembly, cfg) {
				continue
			}
			out = append(out, Warning{Tab: tab.Name, Line: line.label(i), Composition: comp.Label(), Height: height})
		}
	}
	return out
}
