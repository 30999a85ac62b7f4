package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderbot/internal/config"
	"orderbot/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *CommerceClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewCommerceClient(&config.CommerceConfig{
		BaseURL:        srv.URL + "/wp-json/wc/v3/",
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
		Timeout:        5,
	}, zerolog.Nop())
}

func TestCommerceClient_Get(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/wp-json/wc/v3/products", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("category"))
		assert.False(t, r.URL.Query().Has("search"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "ck_test", user)
		assert.Equal(t, "cs_test", pass)
		_, _ = w.Write([]byte(`[{"id":500,"name":"Allspice Porcelain Tile"}]`))
	})

	resp, err := c.Execute(context.Background(), model.Call{
		Method:   "get",
		Endpoint: "products",
		Params:   map[string]string{"category": "10", "search": ""},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 200, resp.Status)
	assert.JSONEq(t, `[{"id":500,"name":"Allspice Porcelain Tile"}]`, string(resp.Data))
}

func TestCommerceClient_PostBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, float64(7), body["customer_id"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":321,"total":"84.00"}`))
	})

	resp, err := c.Execute(context.Background(), model.Call{
		Method:       "POST",
		Endpoint:     "orders",
		Body:         map[string]any{"customer_id": 7, "line_items": []map[string]any{{"product_id": 500, "quantity": 2}}},
		CreatesOrder: true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, http.StatusCreated, resp.Status)
}

func TestCommerceClient_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"backend error body", 400, `{"code":"woocommerce_rest_invalid_product_id","message":"Invalid ID."}`, "woocommerce_rest_invalid_product_id: Invalid ID."},
		{"plain text", 502, "upstream down", "upstream down"},
		{"empty body", 404, "", "Not Found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			resp, err := c.Execute(context.Background(), model.Call{Method: "GET", Endpoint: "products/1"})
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

func TestCommerceClient_RejectsBadCalls(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	})

	_, err := c.Execute(context.Background(), model.Call{Method: "PATCH", Endpoint: "orders/1"})
	assert.Error(t, err)

	_, err = c.Execute(context.Background(), model.Call{Method: "GET", Endpoint: "customers/" + model.CustomerPlaceholder})
	assert.Error(t, err)

	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestCommerceClient_NonJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	_, err := c.Execute(context.Background(), model.Call{Method: "GET", Endpoint: "products"})
	assert.Error(t, err)
}

func TestCatalogLoader_LoadCatalog(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch r.URL.Path {
		case "/wp-json/wc/v3/products/categories":
			_, _ = w.Write([]byte(`[{"id":10,"name":"Wall","slug":"wall","count":12}]`))
		case "/wp-json/wc/v3/products/tags":
			_, _ = w.Write([]byte(`[{"id":70,"name":"Quick Ship","slug":"quick-ship"}]`))
		case "/wp-json/wc/v3/products/attributes":
			_, _ = w.Write([]byte(`[{"id":1,"slug":"pa_finish"},{"id":2,"slug":"pa_size"}]`))
		case "/wp-json/wc/v3/products/attributes/1/terms":
			_, _ = w.Write([]byte(`[{"id":11,"name":"Polished","slug":"polished"}]`))
		case "/wp-json/wc/v3/products/attributes/2/terms":
			_, _ = w.Write([]byte(`[{"id":21,"name":"24x48","slug":"24x48"}]`))
		case "/wp-json/wc/v3/products":
			// first page full, second page short
			n := pageSize
			if page > 1 {
				n = 3
			}
			rows := make([]map[string]any, n)
			for i := range rows {
				id := (page-1)*pageSize + i + 1
				rows[i] = map[string]any{"id": id, "name": fmt.Sprintf("Tile %d", id), "slug": fmt.Sprintf("tile-%d", id)}
			}
			_ = json.NewEncoder(w).Encode(rows)
		default:
			http.NotFound(w, r)
		}
	})

	data, err := NewCatalogLoader(c).LoadCatalog(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Categories, 1)
	assert.Equal(t, "Wall", data.Categories[0].Name)
	assert.Len(t, data.Tags, 1)
	assert.Len(t, data.Products, pageSize+3)
	require.Len(t, data.Terms, 2)
	assert.Equal(t, model.Term{ID: 11, Attribute: "pa_finish", Name: "Polished", Slug: "polished"}, data.Terms[0])
	assert.Equal(t, "pa_size", data.Terms[1].Attribute)
}

func TestCatalogLoader_FailsWhole(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/wp-json/wc/v3/products/tags" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := NewCatalogLoader(c).LoadCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products/tags")
}
