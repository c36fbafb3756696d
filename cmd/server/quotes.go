package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/decorquote/internal/pricing"
	"github.com/Simplici0/decorquote/internal/quote"
	"github.com/Simplici0/decorquote/internal/store"
)

type quoteListItem struct {
	Client     string    `json:"cliente"`
	Tabs       []string  `json:"abas"`
	SaleClosed bool      `json:"venda_realizada"`
	CreatedAt  time.Time `json:"criado_em"`
	UpdatedAt  time.Time `json:"atualizado_em"`
}

// listQuotes returns the store's quotes, most recently updated first,
// optionally filtered by client id.
func (s *server) listQuotes(r *http.Request, search string, limit int) ([]quoteListItem, error) {
	records, err := s.store.ListQuotes(r.Context(), storeID(r), store.QuoteFilter{Search: search, Limit: limit})
	if err != nil {
		return nil, err
	}

	items := make([]quoteListItem, 0, len(records))
	for _, rec := range records {
		item := quoteListItem{Client: rec.ClientID, Tabs: []string{}, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
		if doc, err := quote.Parse(rec.Document); err == nil {
			for _, tab := range doc.Tabs {
				item.Tabs = append(item.Tabs, tab.Name)
				item.SaleClosed = item.SaleClosed || bool(tab.SaleClosed)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	search := strings.TrimSpace(r.URL.Query().Get("busca"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limite"))

	items, err := s.listQuotes(r, search, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetQuote(r.Context(), storeID(r), chi.URLParam(r, "clientID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Last-Modified", rec.UpdatedAt.UTC().Format(http.TimeFormat))
	_, _ = w.Write(rec.Document)
}

func (s *server) handlePutQuote(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "Informe o cliente.")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if _, err := quote.Parse(data); err != nil || len(bytes.TrimSpace(data)) == 0 {
		writeError(w, http.StatusBadRequest, "Orçamento inválido.")
		return
	}

	rec, err := s.store.PutQuote(r.Context(), storeID(r), clientID, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "atualizado_em": rec.UpdatedAt})
}

func (s *server) handleDeleteQuote(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteQuote(r.Context(), storeID(r), chi.URLParam(r, "clientID")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// quoteSummary prices the stored quote of clientID.
func (s *server) quoteSummary(r *http.Request, clientID string) ([]pricing.TabSummary, []quote.Warning, error) {
	id := storeID(r)
	rec, err := s.store.GetQuote(r.Context(), id, clientID)
	if err != nil {
		return nil, nil, err
	}
	doc, err := quote.Parse(rec.Document)
	if err != nil {
		return nil, nil, err
	}
	snap, fees, err := s.pricingData(r.Context(), id)
	if err != nil {
		return nil, nil, err
	}
	return doc.Summarize(snap, fees, s.pricing), doc.MissingAssembly(snap, s.pricing), nil
}

type summaryLineJSON struct {
	Section          string        `json:"secao"`
	Index            int           `json:"indice"`
	Label            string        `json:"ambiente"`
	Selected         bool          `json:"selecionado"`
	Fabric           *calcResponse `json:"tecido,omitempty"`
	BasePrice        float64       `json:"valor_vista"`
	InstallationFee  float64       `json:"instalacao"`
	InstallmentPrice float64       `json:"valor_parcelado"`
}

type summaryTabJSON struct {
	Name              string            `json:"nome"`
	SaleClosed        bool              `json:"venda_realizada"`
	FeeKey            string            `json:"parcelamento"`
	FeeRate           float64           `json:"taxa"`
	Lines             []summaryLineJSON `json:"linhas"`
	AnySelected       bool              `json:"algum_selecionado"`
	GrandTotal        float64           `json:"total_geral"`
	SelectedTotal     float64           `json:"total_selecionado"`
	InstallationTotal float64           `json:"total_instalacao"`
	Freight           float64           `json:"frete"`
	DownPayment       float64           `json:"entrada"`
	FinanceableBase   float64           `json:"base_financiada"`
	FinancedTotal     float64           `json:"total_parcelado"`
}

type summaryResponse struct {
	Client   string           `json:"cliente"`
	Tabs     []summaryTabJSON `json:"abas"`
	Warnings []string         `json:"avisos"`
}

func newSummaryResponse(client string, tabs []pricing.TabSummary, warnings []quote.Warning) summaryResponse {
	resp := summaryResponse{Client: client, Tabs: make([]summaryTabJSON, 0, len(tabs)), Warnings: []string{}}
	for _, t := range tabs {
		tab := summaryTabJSON{
			Name:              t.Name,
			SaleClosed:        t.SaleClosed,
			FeeKey:            t.FeeKey,
			FeeRate:           t.FeeRate,
			Lines:             make([]summaryLineJSON, 0, len(t.Lines)),
			AnySelected:       t.AnySelected,
			GrandTotal:        pricing.Round(t.GrandTotal, 2),
			SelectedTotal:     pricing.Round(t.SelectedTotal, 2),
			InstallationTotal: pricing.Round(t.InstallationTotal, 2),
			Freight:           pricing.Round(t.Freight, 2),
			DownPayment:       pricing.Round(t.DownPayment, 2),
			FinanceableBase:   pricing.Round(t.FinanceableBase, 2),
			FinancedTotal:     pricing.Round(t.FinancedTotal, 2),
		}
		for _, l := range t.Lines {
			line := summaryLineJSON{
				Section:          string(l.Section),
				Index:            l.Index,
				Label:            l.Label,
				Selected:         l.Selected,
				BasePrice:        pricing.Round(l.BasePrice, 2),
				InstallationFee:  pricing.Round(l.InstallationFee, 2),
				InstallmentPrice: pricing.Round(l.InstallmentPrice, 2),
			}
			if l.Result != nil {
				fabric := newCalcResponse(l.Result.Rounded())
				line.Fabric = &fabric
			}
			tab.Lines = append(tab.Lines, line)
		}
		resp.Tabs = append(resp.Tabs, tab)
	}
	for _, w := range warnings {
		resp.Warnings = append(resp.Warnings, w.Message())
	}
	return resp
}

func (s *server) handleQuoteSummary(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	tabs, warnings, err := s.quoteSummary(r, clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(clientID, tabs, warnings))
}

func (s *server) handleQuoteText(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	tabs, _, err := s.quoteSummary(r, clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := quote.WriteText(&buf, clientID, tabs); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleQuoteXLSX(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	tabs, _, err := s.quoteSummary(r, clientID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := quote.WriteXLSX(&buf, clientID, tabs); err != nil {
		s.fail(w, r, err)
		return
	}
	writeAttachment(w, xlsxContentType, fmt.Sprintf("orcamento-%s.xlsx", safeFilename(clientID)), buf.Bytes())
}

func safeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
