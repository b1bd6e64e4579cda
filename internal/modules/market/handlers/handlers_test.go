package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/portfolio-manager/internal/clients/newsapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNews []newsapi.Article

func (s staticNews) StockNews(context.Context) []newsapi.Article { return s }

func TestHandleGetStockNews(t *testing.T) {
	h := NewHandler(staticNews{{Title: "Stocks rally", Source: "Reuters"}}, zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news/stocks", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "Stocks rally", body[0]["title"])
	assert.Equal(t, "Reuters", body[0]["source"])
}

func TestHandleGetStockNewsEmptyIsArray(t *testing.T) {
	h := NewHandler(staticNews{}, zerolog.Nop())
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/news/stocks", nil))

	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleGetIndices(t *testing.T) {
	h := NewHandler(staticNews{}, zerolog.Nop())
	h.now = func() time.Time { return time.UnixMilli(1_700_000_000_001) }
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/market-indices", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 3)
	assert.Equal(t, "SPX", body[0]["symbol"])
	assert.Equal(t, "UP", body[0]["trend"])
}
