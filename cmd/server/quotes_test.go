package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListQuotesOrdersByUpdateDescAndReadsTabs(t *testing.T) {
	s, st := newTestServer(t, testConfig())
	id := newTestCompany(t, st)
	ctx := context.Background()

	clock := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return clock })

	for _, q := range []struct{ client, doc string }{
		{"Primeira", `{"abas": [{"nome": "Sala"}]}`},
		{"Terceira", `{"abas": [{"nome": "Quarto", "venda_realizada": true}, {"nome": "Opção B"}]}`},
		{"Segunda", `{"abas": []}`},
	} {
		_, err := st.PutQuote(ctx, id, q.client, []byte(q.doc))
		require.NoError(t, err)
		clock = clock.Add(time.Hour)
	}

	items, err := s.listQuotes(requestFor(id), "", 0)
	if err != nil {
		t.Fatalf("listQuotes returned error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(items))
	}
	if items[0].Client != "Segunda" || items[1].Client != "Terceira" || items[2].Client != "Primeira" {
		t.Fatalf("quotes are not sorted desc by updated_at: %+v", items)
	}
	assert.Equal(t, []string{"Quarto", "Opção B"}, items[1].Tabs)
	assert.True(t, items[1].SaleClosed)
	assert.Empty(t, items[0].Tabs)
	assert.False(t, items[2].SaleClosed)
}

func TestListQuotesFilterByClient(t *testing.T) {
	s, st := newTestServer(t, testConfig())
	id := newTestCompany(t, st)
	ctx := context.Background()

	for _, client := range []string{"Casa Silva", "Escritório Souza", "casa de praia"} {
		_, err := st.PutQuote(ctx, id, client, []byte(`{}`))
		require.NoError(t, err)
	}

	rec := do(t, s.routes(), http.MethodGet, "/api/orcamentos?busca=casa", tokenFor(t, s, id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []quoteListItem
	decodeBody(t, rec, &items)
	if len(items) != 2 {
		t.Fatalf("expected 2 quotes filtered by client, got %+v", items)
	}

	rec = do(t, s.routes(), http.MethodGet, "/api/orcamentos?busca=Souza", tokenFor(t, s, id), nil)
	decodeBody(t, rec, &items)
	if len(items) != 1 || items[0].Client != "Escritório Souza" {
		t.Fatalf("expected 1 quote filtered by client, got %+v", items)
	}
}

func TestQuoteCRUD(t *testing.T) {
	s, st := newTestServer(t, testConfig())
	id := newTestCompany(t, st)
	h := s.routes()
	token := tokenFor(t, s, id)

	rec := do(t, h, http.MethodGet, "/api/orcamentos/cliente-1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNotFound)

	rec = do(t, h, http.MethodPut, "/api/orcamentos/cliente-1", token, `{"abas": [{"nome": "Sala"}], "markup": 80}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/orcamentos/cliente-1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"abas": [{"nome": "Sala"}], "markup": 80}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/orcamentos/cliente-1", token, `{"abas": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, http.MethodPut, "/api/orcamentos/cliente-1", token, ``)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	other, err := st.CreateCompany(context.Background(), otherCompany())
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/orcamentos/cliente-1", tokenFor(t, s, other.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "quotes are scoped by store")

	rec = do(t, h, http.MethodDelete, "/api/orcamentos/cliente-1", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodDelete, "/api/orcamentos/cliente-1", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
