package catalog

import (
	"io"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Simplici0/decorquote/internal/pricing"
)

// Spreadsheet columns of a fabric catalog, in export order.
var fabricColumns = []string{"produto", "largura", "atacado", "categorias", "favorito"}

// ReadFabricsXLSX reads a fabric catalog from the first sheet of an xlsx file.
func ReadFabricsXLSX(path string) ([]pricing.Fabric, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}
	return fabricsFromFile(f)
}

// ParseFabricsXLSX reads a fabric catalog from xlsx bytes, e.g. an upload.
func ParseFabricsXLSX(data []byte) ([]pricing.Fabric, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open binary")
	}
	return fabricsFromFile(f)
}

// WriteFabricsXLSX writes fabrics in the layout ReadFabricsXLSX accepts.
func WriteFabricsXLSX(w io.Writer, fabrics []pricing.Fabric) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("tecidos")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range fabricColumns {
		header.AddCell().SetString(col)
	}
	for _, fab := range fabrics {
		row := sheet.AddRow()
		row.AddCell().SetString(fab.ID)
		row.AddCell().SetFloat(fab.RollWidth)
		row.AddCell().SetFloat(fab.WholesalePrice)
		row.AddCell().SetString(strings.Join(fab.Categories, ", "))
		if fab.Favorite {
			row.AddCell().SetString("sim")
		} else {
			row.AddCell().SetString("")
		}
	}

	return eris.Wrap(f.Write(w), "xlsx: write")
}

func fabricsFromFile(f *xlsx.File) ([]pricing.Fabric, error) {
	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: file has no sheets")
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsx: sheet is empty")
	}

	index := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		index[foldHeader(cell.String())] = i
	}
	nameCol, ok := index["produto"]
	if !ok {
		return nil, eris.New("xlsx: missing column \"produto\"")
	}

	cellAt := func(row *xlsx.Row, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[i].String())
	}

	var out []pricing.Fabric
	for _, row := range sheet.Rows[1:] {
		if row == nil || nameCol >= len(row.Cells) {
			continue
		}
		name := strings.TrimSpace(row.Cells[nameCol].String())
		if pricing.IsNone(name) {
			continue
		}
		out = append(out, pricing.Fabric{
			ID:             name,
			RollWidth:      pricing.ParseDecimal(cellAt(row, "largura")),
			WholesalePrice: pricing.ParseCurrency(cellAt(row, "atacado")),
			Categories:     parseCategories(cellAt(row, "categorias")),
			Favorite:       parseFlag(cellAt(row, "favorito")),
		})
	}
	return out, nil
}

// foldHeader reduces a header cell to its first word, so "Largura (m)" style
// variations still match.
func foldHeader(s string) string {
	folded := fold(s)
	if i := strings.IndexAny(folded, " ("); i > 0 {
		folded = folded[:i]
	}
	return folded
}

// fold lowercases and strips accents.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func parseCategories(raw string) []string {
	var out []string
	for _, c := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' }) {
		if c = fold(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func parseFlag(raw string) bool {
	switch fold(raw) {
	case "sim", "s", "x", "1", "true", "yes":
		return true
	}
	return false
}
