package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Simplici0/decorquote/internal/catalog"
	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/quote"
	"github.com/Simplici0/decorquote/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// calcRequest is one fabric line as sent by the calculator screen, plus the
// markup and financing option to price it with.
type calcRequest struct {
	quote.Line
	Markup quote.Number `json:"markup"`
	FeeKey quote.Text   `json:"parcelamento"`
}

type calcResponse struct {
	CurtainMeters    float64 `json:"qtdTecidoCortina"`
	LiningMeters     float64 `json:"qtdTecidoForro"`
	BlackoutMeters   float64 `json:"qtdTecidoBlackout"`
	Composition      string  `json:"confeccao"`
	CurtainCost      float64 `json:"custoTecidoCortina"`
	LiningCost       float64 `json:"custoTecidoForro"`
	BlackoutCost     float64 `json:"custoTecidoBlackout"`
	AssemblyCost     float64 `json:"custoConfeccao"`
	TrackCost        float64 `json:"custoTrilho"`
	RawCost          float64 `json:"custoTotal"`
	MarkupPercent    float64 `json:"markup"`
	MarkedUpCost     float64 `json:"valorComMarkup"`
	InstallationFee  float64 `json:"instalacao"`
	MiscFee          float64 `json:"outros"`
	BasePrice        float64 `json:"orcamentoBase"`
	FeeKey           string  `json:"parcelamento"`
	FeeRate          float64 `json:"taxa"`
	InstallmentPrice float64 `json:"orcamentoParcelado"`
}

// calculate prices one fabric line against snap and fees.
func calculate(req calcRequest, snap *catalog.Snapshot, fees pricing.FeeTable, cfg pricing.Config) calcResponse {
	in := req.Line.FabricInput(snap)
	in.MarkupPercent = req.Markup.Float()

	res := pricing.Calculate(in, snap.Tables, cfg)
	key := req.FeeKey.String()
	if key == "" {
		key = pricing.DebitKey
	}
	rate := fees.Rate(key)
	installment := pricing.InstallmentPrice(res.BasePrice, res.Breakdown.InstallationFee, rate)

	out := newCalcResponse(res.Rounded())
	out.FeeKey = key
	out.FeeRate = rate
	out.InstallmentPrice = pricing.Round(installment, 2)
	return out
}

func newCalcResponse(r pricing.LineResult) calcResponse {
	b := r.Breakdown
	return calcResponse{
		CurtainMeters:   r.Yields.Curtain,
		LiningMeters:    r.Yields.Lining,
		BlackoutMeters:  r.Yields.Blackout,
		Composition:     r.Composition.Display(),
		CurtainCost:     b.CurtainCost,
		LiningCost:      b.LiningCost,
		BlackoutCost:    b.BlackoutCost,
		AssemblyCost:    b.AssemblyCost,
		TrackCost:       b.TrackCost,
		RawCost:         b.RawCost,
		MarkupPercent:   b.MarkupPercent,
		MarkedUpCost:    b.MarkedUpCost,
		InstallationFee: b.InstallationFee,
		MiscFee:         b.MiscFee,
		BasePrice:       r.BasePrice,
	}
}

func (s *server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calcRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, fees, err := s.pricingData(r.Context(), storeID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calculate(req, snap, fees, s.pricing))
}

// pricingData returns the catalog snapshot and fee table of a store. Stores
// without a saved fee table use the default one.
func (s *server) pricingData(ctx context.Context, id string) (*catalog.Snapshot, pricing.FeeTable, error) {
	snap, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	fees, err := feeTable(ctx, s.store, id)
	if err != nil {
		return nil, nil, err
	}
	return snap, fees, nil
}

type fabricJSON struct {
	Name       string   `json:"produto"`
	RollWidth  float64  `json:"largura"`
	Price      float64  `json:"atacado"`
	Categories []string `json:"categorias"`
	Favorite   bool     `json:"favorito"`
}

type assemblyJSON struct {
	Composition string  `json:"composicao"`
	Tall        bool    `json:"alta"`
	Price       float64 `json:"preco"`
}

type trackJSON struct {
	Name  string  `json:"nome"`
	Price float64 `json:"preco"`
}

type baseDataResponse struct {
	Fabrics      []fabricJSON        `json:"tecidos"`
	ByRole       map[string][]string `json:"tecidos_por_funcao"`
	Assembly     []assemblyJSON      `json:"confeccao"`
	Tracks       []trackJSON         `json:"trilho"`
	Freight      []catalog.Option    `json:"frete"`
	Installation []catalog.Option    `json:"instalacao"`
}

func (s *server) handleBaseData(w http.ResponseWriter, r *http.Request) {
	snap, err := s.catalog.Get(r.Context(), storeID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := baseDataResponse{
		Fabrics:      make([]fabricJSON, 0, len(snap.Fabrics)),
		ByRole:       map[string][]string{},
		Assembly:     make([]assemblyJSON, 0, len(snap.Assembly)),
		Tracks:       make([]trackJSON, 0, len(snap.Tracks)),
		Freight:      snap.Freight,
		Installation: snap.Installation,
	}
	for _, f := range snap.Fabrics {
		resp.Fabrics = append(resp.Fabrics, fabricJSON{
			Name: f.ID, RollWidth: f.RollWidth, Price: f.WholesalePrice,
			Categories: f.Categories, Favorite: f.Favorite,
		})
	}
	for _, role := range []string{pricing.RoleCurtain, pricing.RoleLining, pricing.RoleBlackout} {
		names := []string{}
		for _, f := range snap.FabricsForRole(role) {
			names = append(names, f.ID)
		}
		resp.ByRole[role] = names
	}
	for _, a := range snap.Assembly {
		resp.Assembly = append(resp.Assembly, assemblyJSON{Composition: a.Composition, Tall: a.Tall, Price: a.Price})
	}
	for _, t := range snap.Tracks {
		resp.Tracks = append(resp.Tracks, trackJSON{Name: t.Name, Price: t.Price})
	}
	writeJSON(w, http.StatusOK, resp)
}

type optionJSON struct {
	Label string  `json:"rotulo"`
	Value float64 `json:"valor"`
}

// handleReplaceBaseData writes one base table: confeccao and trilho are
// upserted by key, frete and instalacao are replaced as a whole.
func (s *server) handleReplaceBaseData(w http.ResponseWriter, r *http.Request) {
	id := storeID(r)
	ctx := r.Context()

	var (
		n   int
		err error
	)
	switch chi.URLParam(r, "table") {
	case "confeccao":
		var rows []assemblyJSON
		if !decodeJSON(w, r, &rows) {
			return
		}
		prices := make([]store.AssemblyPrice, 0, len(rows))
		for _, a := range rows {
			if !validAmount(a.Price) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Preço inválido para %q.", a.Composition))
				return
			}
			prices = append(prices, store.AssemblyPrice{Composition: strings.TrimSpace(a.Composition), Tall: a.Tall, Price: a.Price})
		}
		n, err = s.store.UpsertAssemblyPrices(ctx, id, prices)
	case "trilho":
		var rows []trackJSON
		if !decodeJSON(w, r, &rows) {
			return
		}
		tracks := make([]store.Track, 0, len(rows))
		for _, t := range rows {
			if !validAmount(t.Price) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Preço inválido para %q.", t.Name))
				return
			}
			tracks = append(tracks, store.Track{Name: strings.TrimSpace(t.Name), Price: t.Price})
		}
		n, err = s.store.UpsertTracks(ctx, id, tracks)
	case "frete", "instalacao":
		kind := store.FreightOptions
		if chi.URLParam(r, "table") == "instalacao" {
			kind = store.InstallationOptions
		}
		var rows []optionJSON
		if !decodeJSON(w, r, &rows) {
			return
		}
		opts := make([]store.Option, 0, len(rows))
		for _, o := range rows {
			if !validAmount(o.Value) {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("Valor inválido para %q.", o.Label))
				return
			}
			opts = append(opts, store.Option{Label: o.Label, Value: o.Value})
		}
		n, err = len(opts), s.store.ReplaceOptions(ctx, kind, id, opts)
	default:
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.catalog.Invalidate(id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "registros": n})
}

func (s *server) handleImportFabrics(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxXLSXBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	fabrics, err := catalog.ParseFabricsXLSX(data)
	if err != nil {
		s.log.Info("fabric spreadsheet rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Planilha de tecidos inválida.")
		return
	}

	id := storeID(r)
	n, err := s.store.UpsertFabrics(r.Context(), id, fabrics)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.catalog.Invalidate(id)
	writeJSON(w, http.StatusOK, map[string]int{"importados": n})
}

func (s *server) handleExportFabrics(w http.ResponseWriter, r *http.Request) {
	fabrics, err := s.store.ListFabrics(r.Context(), storeID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := catalog.WriteFabricsXLSX(&buf, fabrics); err != nil {
		s.fail(w, r, err)
		return
	}
	writeAttachment(w, xlsxContentType, "tecidos.xlsx", buf.Bytes())
}

func (s *server) handleDeleteFabric(w http.ResponseWriter, r *http.Request) {
	id := storeID(r)
	if err := s.store.DeleteFabric(r.Context(), id, chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	s.catalog.Invalidate(id)
	w.WriteHeader(http.StatusNoContent)
}

// optionKinds maps the public option list names to model option kinds.
var optionKinds = map[string]string{
	"modelos_cortina": store.CurtainModels,
	"modelos_toldo":   store.AwningModels,
	"cores_cortina":   store.CurtainColors,
	"cores_toldo":     store.AwningColors,
}

func (s *server) handleOptions(w http.ResponseWriter, r *http.Request) {
	id := storeID(r)
	resp := make(map[string][]string, len(optionKinds)+2)
	for name, kind := range optionKinds {
		names, err := s.store.ListModelOptions(r.Context(), id, kind)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		resp[name] = names
	}

	snap, fees, err := s.pricingData(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp["parcelamentos"] = fees.Keys()
	resp["trilhos"] = snap.TrackKeys()

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAddOptions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind  string   `json:"tipo"`
		Names []string `json:"nomes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, ok := optionKinds[req.Kind]
	if !ok {
		writeError(w, http.StatusBadRequest, "Tipo de opção inválido.")
		return
	}

	n, err := s.store.AddModelOptions(r.Context(), storeID(r), kind, req.Names)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"adicionados": n})
}

func (s *server) handleGetFees(w http.ResponseWriter, r *http.Request) {
	fees, err := s.store.GetFeeTable(r.Context(), storeID(r))
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fees)
}

func (s *server) handlePutFees(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fees map[string]float64 `json:"taxas"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Fees) == 0 {
		writeError(w, http.StatusBadRequest, "Informe as taxas.")
		return
	}

	fees := make(pricing.FeeTable, len(req.Fees))
	for key, f := range req.Fees {
		key = strings.TrimSpace(key)
		if key == "" || !validAmount(f) || f >= 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Taxa inválida para %q.", key))
			return
		}
		fees[key] = f
	}

	if err := s.store.PutFeeTable(r.Context(), storeID(r), fees); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	status, err := s.accounts.Status(r.Context(), storeID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
