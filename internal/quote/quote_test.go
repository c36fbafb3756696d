package quote

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/Simplici0/decorquote/internal/catalog"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/store"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func testSnapshot() *catalog.Snapshot {
	return catalog.Build("store-1",
		[]pricing.Fabric{
			{ID: "Linho Cru", RollWidth: 1.0, WholesalePrice: 10},
			{ID: "Blackout Cinza", RollWidth: 2.8, WholesalePrice: 30},
		},
		[]store.AssemblyPrice{{Composition: "Curtain", Price: 90}},
		[]store.Track{{Name: "Trilho suíço", Price: 35}},
		[]store.Option{{Label: "Centro", Value: 30}},
		[]store.Option{{Label: "Padrão", Value: 20}, {Value: 45}},
		time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
	)
}

const sampleDocument = `{
  "abas": [{
    "nome": "Sala",
    "venda_realizada": false,
    "sections": {
      "tecido": {"active": true, "ambientes": [{
        "ambiente": "Janela",
        "largura": "1,000",
        "altura": "0,900",
        "selecionado": true,
        "franzCortina": "1.0",
        "codTecidoCortina": "Linho Cru",
        "codTecidoForro": "SEM TECIDO",
        "franzBlackout": "1.2",
        "codTecidoBlackout": "SEM TECIDO",
        "trilhoTexto": "-",
        "instalacao": "20",
        "outros": "R$ 5,00"
      }]},
      "toldos": {"active": true, "ambientes": [{
        "ambiente": "",
        "largura": "3,000",
        "altura": "2,000",
        "selecionado": false,
        "modelo_toldo": "BALI",
        "valor_manual": "R$ 50,00",
        "instalacao": "0",
        "outros": ""
      }]}
    }
  }],
  "markup": "100",
  "parcelamento": "6x",
  "frete": "Centro",
  "entrada": "R$ 5,00"
}`

func TestParse_PermissiveFields(t *testing.T) {
	doc, err := Parse([]byte(`{
		"abas": [{"nome": "A", "sections": {"tecido": {"active": true, "ambientes": [
			{"largura": "abc", "altura": 2.5, "selecionado": "on", "instalacao": 80, "outros": null}
		]}}}],
		"markup": "",
		"frete": 0
	}`))
	require.NoError(t, err)

	line := doc.Tabs[0].Sections["tecido"].Rooms[0]
	assert.Zero(t, line.Width.Float())
	assert.Equal(t, 2.5, line.Height.Float())
	assert.True(t, bool(line.Selected))
	assert.Equal(t, "80", line.Installation.String())
	assert.Zero(t, line.Misc.Float())
	assert.Zero(t, doc.Markup.Float())
	assert.Equal(t, "0", doc.Freight.String())
}

func TestParse_MoneyThousands(t *testing.T) {
	doc, err := Parse([]byte(`{
		"abas": [{"nome": "A", "sections": {"toldos": {"active": true, "ambientes": [
			{"largura": "2.000", "altura": "1,500", "valor_manual": "R$ 12.000", "outros": "2.000"}
		]}}}],
		"entrada": "R$ 1.500"
	}`))
	require.NoError(t, err)

	line := doc.Tabs[0].Sections["toldos"].Rooms[0]
	nearlyEqual(t, "entrada", doc.DownPayment.Float(), 1500)
	nearlyEqual(t, "outros", line.Misc.Float(), 2000)
	nearlyEqual(t, "valor_manual", line.ManualValue.Float(), 12000)
	nearlyEqual(t, "largura", line.Width.Float(), 2)
	nearlyEqual(t, "altura", line.Height.Float(), 1.5)
}

func TestParse_EmptyAndBroken(t *testing.T) {
	doc, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Tabs)

	_, err = Parse([]byte(`{"abas": [`))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	doc := New()
	require.Len(t, doc.Tabs, 1)
	assert.Equal(t, "Orçamento 1", doc.Tabs[0].Name)
	assert.Equal(t, pricing.DebitKey, doc.FeeKey.String())
}

func TestDocument_ToQuote(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	q := doc.ToQuote(testSnapshot())

	assert.Equal(t, 100.0, q.Terms.MarkupPercent)
	assert.Equal(t, "6x", q.Terms.FeeKey)
	assert.Equal(t, 30.0, q.Terms.Freight)
	assert.Equal(t, 5.0, q.Terms.DownPayment)

	require.Len(t, q.Tabs, 1)
	sections := q.Tabs[0].Sections
	require.Len(t, sections, 2)
	assert.Equal(t, pricing.SectionFabric, sections[0].Kind)
	assert.Equal(t, pricing.SectionAwning, sections[1].Kind)

	fabric := sections[0].Lines[0]
	assert.Equal(t, "Janela", fabric.Label)
	require.NotNil(t, fabric.Fabric)
	assert.Equal(t, 1.0, fabric.Fabric.Width)
	assert.Equal(t, 0.9, fabric.Fabric.Height)
	assert.Equal(t, 20.0, fabric.Fabric.InstallationFee)
	assert.Equal(t, 5.0, fabric.Fabric.MiscFee)

	awning := sections[1].Lines[0]
	assert.Equal(t, "Linha 1", awning.Label)
	require.NotNil(t, awning.System)
	assert.Equal(t, 50.0, awning.System.ProductValue)
}

func TestDocument_Summarize(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)

	tabs := doc.Summarize(testSnapshot(), pricing.DefaultFeeTable(), pricing.DefaultConfig())
	require.Len(t, tabs, 1)
	tab := tabs[0]

	nearlyEqual(t, "fabric line", tab.Lines[0].BasePrice, 225)
	nearlyEqual(t, "grand", tab.GrandTotal, 225+50+30)
	nearlyEqual(t, "selected", tab.SelectedTotal, 255)
	nearlyEqual(t, "financeable", tab.FinanceableBase, 225-20-5)
	nearlyEqual(t, "financed", tab.FinancedTotal, 200*1.0681+30+20)
}

func TestResolveMoney(t *testing.T) {
	snap := testSnapshot()

	nearlyEqual(t, "by label", resolveMoney("Padrão", snap.InstallationValue), 20)
	nearlyEqual(t, "by canonical value", resolveMoney("R$ 45,00", snap.InstallationValue), 45)
	nearlyEqual(t, "literal", resolveMoney("80", snap.InstallationValue), 80)
	nearlyEqual(t, "none", resolveMoney("-", snap.InstallationValue), 0)
	nearlyEqual(t, "garbage", resolveMoney("NENHUM", snap.InstallationValue), 0)
}

func TestDocument_MissingAssembly(t *testing.T) {
	doc, err := Parse([]byte(`{"abas": [{"nome": "Quarto", "sections": {"tecido": {"ambientes": [
		{"ambiente": "A", "altura": "2,5", "codTecidoCortina": "Linho Cru"},
		{"ambiente": "B", "altura": "4", "codTecidoCortina": "Linho Cru"},
		{"ambiente": "C", "altura": "2,5", "codTecidoCortina": "Linho Cru", "codTecidoBlackout": "Blackout Cinza"},
		{"ambiente": "D", "altura": "2,5"}
	]}}}]}`))
	require.NoError(t, err)

	warnings := doc.MissingAssembly(testSnapshot(), pricing.DefaultConfig())
	require.Len(t, warnings, 1)
	assert.Equal(t, "C", warnings[0].Line)
	assert.Equal(t, "Curtain + Blackout", warnings[0].Composition)
	assert.Contains(t, warnings[0].Message(), "Quarto / C")
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 245,50", FormatBRL(245.50000000000003))
	assert.Equal(t, "R$ 0,00", FormatBRL(0))
	assert.Equal(t, "7,800", FormatMeters(7.8))
}

func TestWriteText(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)
	tabs := doc.Summarize(testSnapshot(), pricing.DefaultFeeTable(), pricing.DefaultConfig())

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, "Maria", tabs))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Cliente: Maria\n"))
	assert.Contains(t, out, "== Sala ==")
	assert.Contains(t, out, "[x] Janela: R$ 225,00 (Curtain)")
	assert.Contains(t, out, "[ ] Linha 1: R$ 50,00")
	assert.Contains(t, out, "Total parcelado (6x)")
}

func TestWriteXLSX(t *testing.T) {
	doc, err := Parse([]byte(sampleDocument))
	require.NoError(t, err)
	doc.Tabs = append(doc.Tabs, doc.Tabs[0])
	tabs := doc.Summarize(testSnapshot(), pricing.DefaultFeeTable(), pricing.DefaultConfig())

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "Maria", tabs))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Sala", f.Sheets[0].Name)
	assert.Equal(t, "Sala (2)", f.Sheets[1].Name)
	assert.Equal(t, "Maria", f.Sheets[0].Rows[0].Cells[1].String())
	assert.Equal(t, "Janela", f.Sheets[0].Rows[2].Cells[1].String())
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Orçamento 1", sheetName("", 0, used))
	assert.Equal(t, "Sala-Cozinha", sheetName("Sala/Cozinha", 1, used))
	long := strings.Repeat("a", 40)
	assert.Len(t, []rune(sheetName(long, 2, used)), 31)
	assert.Len(t, []rune(sheetName(long, 3, used)), 31)
}
