// Package quote handles the persisted quote document edited by the front end:
// decoding it permissively, pricing it and exporting summaries.
package quote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Simplici0/decorquote/internal/pricing"
)

// Document is the quote of one client as saved by the calculator screen.
type Document struct {
	Tabs        []Tab  `json:"abas"`
	Markup      Number `json:"markup"`
	FeeKey      Text   `json:"parcelamento"`
	Freight     Text   `json:"frete"`
	DownPayment Money  `json:"entrada"`
}

// Tab is one alternative quote ("orçamento") of the client.
type Tab struct {
	Name          string             `json:"nome"`
	SaleClosed    Flag               `json:"venda_realizada"`
	Sections      map[string]Section `json:"sections"`
	PrintSettings json.RawMessage    `json:"printSettings,omitempty"`
}

// Section holds the rows ("ambientes") of one section kind.
type Section struct {
	Active bool   `json:"active"`
	Rooms  []Line `json:"ambientes"`
}

// Line is one row of a section. Fabric rows and system rows share the type;
// each kind reads its own fields.
type Line struct {
	Room     Text   `json:"ambiente"`
	Width    Number `json:"largura"`
	Height   Number `json:"altura"`
	Selected Flag   `json:"selecionado"`
	Note     Text   `json:"observacao,omitempty"`

	CurtainFullness  Number `json:"franzCortina,omitempty"`
	CurtainFabric    Text   `json:"codTecidoCortina,omitempty"`
	LiningFabric     Text   `json:"codTecidoForro,omitempty"`
	BlackoutFullness Number `json:"franzBlackout,omitempty"`
	BlackoutFabric   Text   `json:"codTecidoBlackout,omitempty"`
	AssemblyText     Text   `json:"confecaoTexto,omitempty"`
	Track            Text   `json:"trilhoTexto,omitempty"`

	CurtainModel   Text  `json:"modelo_cortina,omitempty"`
	AwningModel    Text  `json:"modelo_toldo,omitempty"`
	FabricCode     Text  `json:"codigo_tecido,omitempty"`
	Collection     Text  `json:"colecao,omitempty"`
	AccessoryColor Text  `json:"cor_acessorios,omitempty"`
	Control        Text  `json:"comando,omitempty"`
	ControlSide    Text  `json:"lado_comando,omitempty"`
	ControlHeight  Text  `json:"altura_comando,omitempty"`
	ManualValue    Money `json:"valor_manual,omitempty"`

	Installation Text  `json:"instalacao"`
	Misc         Money `json:"outros"`
}

// Parse decodes a stored document. Malformed field values decode as zero;
// only structurally broken JSON is an error.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if len(bytes.TrimSpace(data)) == 0 {
		return &doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "quote: decode document")
	}
	return &doc, nil
}

// New returns the document the calculator starts a client with.
func New() *Document {
	return &Document{
		Tabs:   []Tab{{Name: "Orçamento 1", Sections: map[string]Section{}}},
		FeeKey: Text(pricing.DebitKey),
	}
}

// Number is a float that accepts JSON numbers and form strings such as
// "2,500". Anything unreadable is 0.
type Number float64

// UnmarshalJSON implements json.Unmarshaler without ever failing on content.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number(decodeNumber(data, pricing.ParseDecimal))
	return nil
}

// Float returns n as float64.
func (n Number) Float() float64 {
	return float64(n)
}

// Money is a Number written as currency: "R$ 1.234,56", "R$ 1.500" and "80"
// all read as reais.
type Money float64

// UnmarshalJSON implements json.Unmarshaler without ever failing on content.
func (m *Money) UnmarshalJSON(data []byte) error {
	*m = Money(decodeNumber(data, pricing.ParseCurrency))
	return nil
}

// Float returns m as float64.
func (m Money) Float() float64 {
	return float64(m)
}

func decodeNumber(data []byte, parse func(string) float64) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return parse(s)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if v, err := strconv.ParseFloat(string(data), 64); err == nil {
			return v
		}
	}
	return 0
}

// Text is a string that also accepts JSON numbers, booleans and null, which
// the front end produces for select values.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*t = Text(s)
		return nil
	}
	if data[0] == '{' || data[0] == '[' {
		return nil
	}
	*t = Text(data)
	return nil
}

// String returns the trimmed text.
func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Flag is a bool that also accepts "true"/"on"/"1" strings and numbers.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var t Text
	_ = t.UnmarshalJSON(data)
	switch strings.ToLower(t.String()) {
	case "true", "1", "on", "sim":
		*f = true
	default:
		*f = false
	}
	return nil
}
