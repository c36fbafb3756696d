package pricing

// SectionKind identifies the kind of lines a quote section holds.
type SectionKind string

const (
	SectionFabric        SectionKind = "tecido"
	SectionCurtainSystem SectionKind = "amorim"
	SectionAwning        SectionKind = "toldos"
)

// SectionOrder is the default display order of section kinds.
var SectionOrder = []SectionKind{SectionFabric, SectionCurtainSystem, SectionAwning}

// Line is one quote line. Exactly one of Fabric or System is set, matching the
// section kind.
type Line struct {
	Label    string
	Selected bool
	Fabric   *LineInput
	System   *SystemLine
}

// Section groups lines of one kind.
type Section struct {
	Kind  SectionKind
	Lines []Line
}

// Tab is one named alternative ("orçamento") inside a client's quote.
type Tab struct {
	Name       string
	SaleClosed bool
	Sections   []Section
}

// Terms are the quote-wide commercial settings.
type Terms struct {
	MarkupPercent float64
	FeeKey        string
	Freight       float64
	DownPayment   float64
}

// Quote is the full multi-tab quote of one client.
type Quote struct {
	Terms Terms
	Tabs  []Tab
}

// LineSummary is the computed view of one line.
type LineSummary struct {
	Section          SectionKind
	Index            int
	Label            string
	Selected         bool
	Result           *LineResult
	BasePrice        float64
	InstallationFee  float64
	InstallmentPrice float64
}

// TabSummary holds the totals of one tab.
type TabSummary struct {
	Name        string
	SaleClosed  bool
	FeeKey      string
	FeeRate     float64
	Lines       []LineSummary
	AnySelected bool

	// GrandTotal sums every line plus freight.
	GrandTotal float64
	// SelectedTotal sums selected lines plus freight (0 when nothing is selected).
	SelectedTotal     float64
	InstallationTotal float64
	Freight           float64
	DownPayment       float64
	// FinanceableBase is selected minus installation minus down payment, floored at 0.
	FinanceableBase float64
	FinancedTotal   float64
}

// Summarize computes the totals of every tab of q.
func Summarize(q Quote, tables Tables, fees FeeTable, cfg Config) []TabSummary {
	out := make([]TabSummary, 0, len(q.Tabs))
	for _, tab := range q.Tabs {
		out = append(out, SummarizeTab(tab, q.Terms, tables, fees, cfg))
	}
	return out
}

// SummarizeTab prices every line of tab and rolls them up.
//
// Freight is added once per tab. Installation fees of selected lines and the
// down payment are kept out of the financed base.
func SummarizeTab(tab Tab, terms Terms, tables Tables, fees FeeTable, cfg Config) TabSummary {
	rate := fees.Rate(terms.FeeKey)
	freight := nonNegative(terms.Freight)
	downPayment := nonNegative(terms.DownPayment)

	sum := TabSummary{
		Name:        tab.Name,
		SaleClosed:  tab.SaleClosed,
		FeeKey:      terms.FeeKey,
		FeeRate:     rate,
		Freight:     freight,
		DownPayment: downPayment,
	}
	if sum.FeeKey == "" {
		sum.FeeKey = DebitKey
	}

	var selected float64
	for _, section := range tab.Sections {
		for i, line := range section.Lines {
			ls := summarizeLine(section.Kind, i, line, terms, tables, rate, cfg)
			sum.Lines = append(sum.Lines, ls)

			sum.GrandTotal += ls.BasePrice
			if ls.Selected {
				sum.AnySelected = true
				selected += ls.BasePrice
				sum.InstallationTotal += ls.InstallationFee
			}
		}
	}

	sum.GrandTotal += freight
	if sum.AnySelected {
		sum.SelectedTotal = selected + freight
		sum.FinanceableBase = nonNegative(selected - sum.InstallationTotal - downPayment)
		sum.FinancedTotal = sum.FinanceableBase*(1.0+rate) + freight + sum.InstallationTotal
	}
	return sum
}

func summarizeLine(kind SectionKind, idx int, line Line, terms Terms, tables Tables, rate float64, cfg Config) LineSummary {
	ls := LineSummary{Section: kind, Index: idx, Label: line.Label, Selected: line.Selected}

	switch {
	case line.Fabric != nil:
		in := *line.Fabric
		if in.MarkupPercent <= 0 {
			in.MarkupPercent = terms.MarkupPercent
		}
		res := Calculate(in, tables, cfg)
		ls.Result = &res
		ls.BasePrice = res.BasePrice
		ls.InstallationFee = res.Breakdown.InstallationFee
	case line.System != nil:
		ls.BasePrice = line.System.BasePrice()
		ls.InstallationFee = nonNegative(line.System.InstallationFee)
	}

	ls.InstallmentPrice = InstallmentPrice(ls.BasePrice, ls.InstallationFee, rate)
	return ls
}
