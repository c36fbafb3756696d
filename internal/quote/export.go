package quote

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Simplici0/decorquote/internal/pricing"
)

var printer = message.NewPrinter(language.BrazilianPortuguese)

// FormatBRL formats v as Brazilian reais, e.g. "R$ 1.234,56".
func FormatBRL(v float64) string {
	return "R$ " + printer.Sprintf("%.2f", pricing.Round(v, 2))
}

// FormatMeters formats a fabric quantity with 3 decimals, e.g. "7,800".
func FormatMeters(v float64) string {
	return printer.Sprintf("%.3f", pricing.Round(v, 3))
}

var sectionTitles = map[pricing.SectionKind]string{
	pricing.SectionFabric:        "Cortinas (tecido)",
	pricing.SectionCurtainSystem: "Cortinas (sistema)",
	pricing.SectionAwning:        "Toldos",
}

// WriteText writes a plain-text summary of every tab, suitable for pasting
// into a message to the client.
func WriteText(w io.Writer, client string, tabs []pricing.TabSummary) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Cliente: %s\n", client)
	for _, tab := range tabs {
		fmt.Fprintf(bw, "\n== %s ==", tab.Name)
		if tab.SaleClosed {
			fmt.Fprint(bw, " (venda realizada)")
		}
		fmt.Fprintln(bw)

		var section pricing.SectionKind
		for _, line := range tab.Lines {
			if line.Section != section {
				section = line.Section
				fmt.Fprintf(bw, "%s:\n", sectionTitles[section])
			}
			mark := " "
			if line.Selected {
				mark = "x"
			}
			fmt.Fprintf(bw, "[%s] %s: %s", mark, line.Label, FormatBRL(line.BasePrice))
			if line.Result != nil && !line.Result.Composition.Empty() {
				fmt.Fprintf(bw, " (%s)", line.Result.Composition.Display())
			}
			fmt.Fprintln(bw)
		}

		fmt.Fprintf(bw, "Total geral: %s\n", FormatBRL(tab.GrandTotal))
		if tab.Freight > 0 {
			fmt.Fprintf(bw, "Frete: %s\n", FormatBRL(tab.Freight))
		}
		if tab.AnySelected {
			fmt.Fprintf(bw, "Total selecionado à vista: %s\n", FormatBRL(tab.SelectedTotal))
			if tab.DownPayment > 0 {
				fmt.Fprintf(bw, "Entrada: %s\n", FormatBRL(tab.DownPayment))
			}
			fmt.Fprintf(bw, "Total parcelado (%s): %s\n", tab.FeeKey, FormatBRL(tab.FinancedTotal))
		}
	}

	return eris.Wrap(bw.Flush(), "quote: write text")
}

// WriteXLSX writes one sheet per tab with the line breakdown and totals.
func WriteXLSX(w io.Writer, client string, tabs []pricing.TabSummary) error {
	f := xlsx.NewFile()
	used := make(map[string]bool)

	for i, tab := range tabs {
		sheet, err := f.AddSheet(sheetName(tab.Name, i, used))
		if err != nil {
			return eris.Wrap(err, "quote: add sheet")
		}

		addStrings(sheet.AddRow(), "Cliente", client)
		addStrings(sheet.AddRow(), "Seção", "Ambiente", "Selecionado", "Composição",
			"Cortina (m)", "Forro (m)", "Blackout (m)", "Instalação", "À vista", "Parcelado")

		for _, line := range tab.Lines {
			row := sheet.AddRow()
			selected := ""
			if line.Selected {
				selected = "sim"
			}
			addStrings(row, sectionTitles[line.Section], line.Label, selected)
			if line.Result != nil {
				r := line.Result.Rounded()
				row.AddCell().SetString(r.Composition.Display())
				row.AddCell().SetFloat(r.Yields.Curtain)
				row.AddCell().SetFloat(r.Yields.Lining)
				row.AddCell().SetFloat(r.Yields.Blackout)
			} else {
				addStrings(row, "", "", "", "")
			}
			row.AddCell().SetFloat(pricing.Round(line.InstallationFee, 2))
			row.AddCell().SetFloat(pricing.Round(line.BasePrice, 2))
			row.AddCell().SetFloat(pricing.Round(line.InstallmentPrice, 2))
		}

		sheet.AddRow()
		addTotal(sheet, "Frete", tab.Freight)
		addTotal(sheet, "Total geral", tab.GrandTotal)
		addTotal(sheet, "Total selecionado", tab.SelectedTotal)
		addTotal(sheet, "Entrada", tab.DownPayment)
		addTotal(sheet, "Total parcelado ("+tab.FeeKey+")", tab.FinancedTotal)
	}

	if len(tabs) == 0 {
		if _, err := f.AddSheet("Orçamento"); err != nil {
			return eris.Wrap(err, "quote: add sheet")
		}
	}

	return eris.Wrap(f.Write(w), "quote: write xlsx")
}

func addStrings(row *xlsx.Row, values ...string) {
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func addTotal(sheet *xlsx.Sheet, label string, v float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloat(pricing.Round(v, 2))
}

// sheetName makes a valid, unique xlsx sheet name (max 31 chars, no []:*?/\).
func sheetName(name string, idx int, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Orçamento %d", idx+1)
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	base := name
	for n := 2; used[name]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len([]rune(suffix)) > 31 {
			r = r[:31-len([]rune(suffix))]
		}
		name = string(r) + suffix
	}
	used[name] = true
	return name
}
