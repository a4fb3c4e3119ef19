package fipe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"dealer-workers/internal/common/errors"
	commonhttp "dealer-workers/internal/common/http"
	"dealer-workers/internal/common/logger"
	"dealer-workers/internal/filecache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	brandsJSON = `[{"nome":"Fiat","codigo":"21"},{"nome":"VW - VolksWagen","codigo":"59"}]`
	modelsJSON = `{"modelos":[{"nome":"Uno Mille 1.0","codigo":4828}],"anos":[{"nome":"2014 Gasolina","codigo":"2014-1"}]}`
	yearsJSON  = `[{"nome":"2014 Gasolina","codigo":"2014-1"}]`
	priceJSON  = `{"TipoVeiculo":1,"Valor":"R$ 25.432,00","Marca":"Fiat","Modelo":"Uno Mille 1.0","AnoModelo":2014,"Combustivel":"Gasolina","CodigoFipe":"001267-0","MesReferencia":"junho de 2025","SiglaCombustivel":"G"}`
)

type upstream struct {
	server *httptest.Server
	hits   map[string]*int32
}

func newUpstream(t *testing.T, routes map[string]string) *upstream {
	t.Helper()
	u := &upstream{hits: map[string]*int32{}}
	for path := range routes {
		var n int32
		u.hits[path] = &n
	}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
			return
		}
		atomic.AddInt32(u.hits[r.URL.Path], 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) count(path string) int32 { return atomic.LoadInt32(u.hits[path]) }

func newTestClient(t *testing.T, baseURL string) (*Client, *filecache.Cache) {
	t.Helper()
	cache := filecache.New(filepath.Join(t.TempDir(), "cache"), logger.NewNoOpLogger())
	c := NewClient(commonhttp.NewClient(5*time.Second), baseURL, cache, DefaultTTLs, logger.NewTestLogger(t))
	return c, cache
}

func TestCacheKey_String(t *testing.T) {
	a := CacheKey{Resource: ResourcePrice, VehicleType: Cars, Brand: "21", Model: "4828", Year: "2014-1"}
	b := CacheKey{Resource: ResourcePrice, VehicleType: Cars, Brand: "21_4828", Year: "2014-1"}
	c := CacheKey{Resource: ResourcePrice, VehicleType: Cars, Brand: "21", Model: "4828", Year: "2014-1"}

	assert.NotEqual(t, a.String(), b.String())
	assert.Equal(t, a.String(), c.String())
	assert.Regexp(t, `^preco_[A-Za-z0-9_-]+$`, a.String())
}

func TestCacheKey_Path(t *testing.T) {
	k := CacheKey{Resource: ResourcePrice, VehicleType: Cars, Brand: "21", Model: "4828", Year: "2014-1"}
	assert.Equal(t, "/carros/marcas/21/modelos/4828/anos/2014-1", k.Path())
	assert.Equal(t, "/motos/marcas", CacheKey{Resource: ResourceBrands, VehicleType: Motos}.Path())
	assert.Equal(t, "/carros/marcas/a%2Fb/modelos", CacheKey{Resource: ResourceModels, VehicleType: Cars, Brand: "a/b"}.Path())
}

func TestTTLs_For(t *testing.T) {
	assert.Equal(t, 24*time.Hour, DefaultTTLs.For(ResourcePrice))
	assert.Equal(t, 240*time.Hour, DefaultTTLs.For(ResourceBrands))
	assert.Equal(t, 240*time.Hour, DefaultTTLs.For(ResourceYears))
}

func TestCode_UnmarshalJSON(t *testing.T) {
	var refs []Reference
	require.NoError(t, json.Unmarshal([]byte(`[{"codigo":4828,"nome":"a"},{"codigo":"2014-1","nome":"b"}]`), &refs))
	assert.Equal(t, Code("4828"), refs[0].Code)
	assert.Equal(t, Code("2014-1"), refs[1].Code)
}

func TestPrice_Cents(t *testing.T) {
	cents, err := Price{Value: "R$ 25.432,00"}.Cents()
	require.NoError(t, err)
	assert.Equal(t, int64(2543200), cents)

	_, err = Price{Value: "n/d"}.Cents()
	assert.Error(t, err)
}

func TestClient_BrandsAreCached(t *testing.T) {
	up := newUpstream(t, map[string]string{"/carros/marcas": brandsJSON})
	c, _ := newTestClient(t, up.server.URL)
	ctx := context.Background()

	first, err := c.Brands(ctx, Cars)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, Reference{Code: "21", Name: "Fiat"}, first[0])

	second, err := c.Brands(ctx, Cars)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), up.count("/carros/marcas"))
}

func TestClient_FullLookupChain(t *testing.T) {
	routes := map[string]string{}
	routes["/carros/marcas/21/modelos"] = modelsJSON
	routes["/carros/marcas/21/modelos/4828/anos"] = yearsJSON
	routes["/carros/marcas/21/modelos/4828/anos/2014-1"] = priceJSON
	up := newUpstream(t, routes)
	c, _ := newTestClient(t, up.server.URL)
	ctx := context.Background()

	models, err := c.Models(ctx, Cars, "21")
	require.NoError(t, err)
	assert.Equal(t, Code("4828"), models.Models[0].Code)
	assert.Equal(t, Code("2014-1"), models.Years[0].Code)

	years, err := c.Years(ctx, Cars, "21", "4828")
	require.NoError(t, err)
	assert.Len(t, years, 1)

	price, err := c.Price(ctx, Cars, "21", "4828", "2014-1")
	require.NoError(t, err)
	assert.Equal(t, "R$ 25.432,00", price.Value)
	assert.Equal(t, 2014, price.ModelYear)
}

func TestClient_StalePriceIsRefetched(t *testing.T) {
	up := newUpstream(t, map[string]string{"/carros/marcas/21/modelos/4828/anos/2014-1": priceJSON})
	c, _ := newTestClient(t, up.server.URL)
	c.ttls = TTLs{Catalog: time.Hour, Price: 0}
	ctx := context.Background()

	_, err := c.Price(ctx, Cars, "21", "4828", "2014-1")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = c.Price(ctx, Cars, "21", "4828", "2014-1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), up.count("/carros/marcas/21/modelos/4828/anos/2014-1"))
}

func TestClient_NotFound(t *testing.T) {
	up := newUpstream(t, map[string]string{})
	c, _ := newTestClient(t, up.server.URL)

	_, err := c.Years(context.Background(), Cars, "999", "1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_InvalidPayloadIsNotCached(t *testing.T) {
	up := newUpstream(t, map[string]string{"/carros/marcas": `[{"nome":"Fiat"}]`})
	c, cache := newTestClient(t, up.server.URL)

	_, err := c.Brands(context.Background(), Cars)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFipeInvalidResponse, errors.CodeOf(err))

	key := CacheKey{Resource: ResourceBrands, VehicleType: Cars}.String()
	assert.Equal(t, filecache.StatusMiss, cache.Get(key, time.Hour).Status)
}

func TestClient_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c, _ := newTestClient(t, srv.URL)

	_, err := c.Brands(context.Background(), Cars)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFipeRequestFailed, errors.CodeOf(err))
}

func TestClient_InvalidArguments(t *testing.T) {
	c, _ := newTestClient(t, "http://unused.invalid")
	ctx := context.Background()

	_, err := c.Brands(ctx, "avioes")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = c.Models(ctx, Cars, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = c.Price(ctx, Cars, "21", "4828", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestHandler_Routes(t *testing.T) {
	routes := map[string]string{}
	routes["/carros/marcas"] = brandsJSON
	routes["/carros/marcas/21/modelos/4828/anos/2014-1"] = priceJSON
	up := newUpstream(t, routes)
	c, _ := newTestClient(t, up.server.URL)

	mux := http.NewServeMux()
	NewHandler(c, 5*time.Second, logger.NewNoOpLogger()).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	tests := []struct {
		path   string
		status int
	}{
		{"/fipe/carros/marcas", http.StatusOK},
		{"/fipe/carros/marcas/21/modelos/4828/anos/2014-1", http.StatusOK},
		{"/fipe/avioes/marcas", http.StatusBadRequest},
		{"/fipe/carros/marcas/1/modelos/2/anos", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		})
	}

	resp, err := http.Get(srv.URL + "/fipe/carros/marcas")
	require.NoError(t, err)
	defer resp.Body.Close()
	var brands []Reference
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&brands))
	assert.Len(t, brands, 2)
}
