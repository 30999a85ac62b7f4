package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"orderbot/internal/model"
)

const (
	pageSize = 100
	maxPages = 50
)

// CatalogLoader builds catalog data from the REST backend. It is used when no
// database mirror of the store is configured.
type CatalogLoader struct {
	client *CommerceClient
}

// NewCatalogLoader creates a loader on top of client.
func NewCatalogLoader(client *CommerceClient) *CatalogLoader {
	return &CatalogLoader{client: client}
}

// LoadCatalog fetches categories, tags, attribute terms and products
// concurrently. Any failure fails the whole load.
func (l *CatalogLoader) LoadCatalog(ctx context.Context) (model.CatalogData, error) {
	var data model.CatalogData
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return list(ctx, l.client, "products/categories", &data.Categories)
	})
	g.Go(func() error {
		return list(ctx, l.client, "products/tags", &data.Tags)
	})
	g.Go(func() error {
		terms, err := l.terms(ctx)
		data.Terms = terms
		return err
	})
	g.Go(func() error {
		return list(ctx, l.client, "products", &data.Products)
	})

	if err := g.Wait(); err != nil {
		return model.CatalogData{}, err
	}
	return data, nil
}

// list walks every page of endpoint, appending into out.
func list[T any](ctx context.Context, c *CommerceClient, endpoint string, out *[]T) error {
	for page := 1; page <= maxPages; page++ {
		resp, err := c.Execute(ctx, model.Call{
			Stage:    "load_catalog",
			Method:   "GET",
			Endpoint: endpoint,
			Params:   map[string]string{"per_page": strconv.Itoa(pageSize), "page": strconv.Itoa(page)},
		})
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", endpoint, err)
		}
		if !resp.Success {
			return fmt.Errorf("failed to load %s: status %d: %s", endpoint, resp.Status, resp.Error)
		}
		var rows []T
		if err := json.Unmarshal(resp.Data, &rows); err != nil {
			return fmt.Errorf("failed to decode %s: %w", endpoint, err)
		}
		*out = append(*out, rows...)
		if len(rows) < pageSize {
			return nil
		}
	}
	return nil
}

// terms lists the global attributes and then each attribute's terms.
func (l *CatalogLoader) terms(ctx context.Context) ([]model.Term, error) {
	var attrs []struct {
		ID   int    `json:"id"`
		Slug string `json:"slug"`
	}
	if err := list(ctx, l.client, "products/attributes", &attrs); err != nil {
		return nil, err
	}

	perAttr := make([][]model.Term, len(attrs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, a := range attrs {
		i, a := i, a
		g.Go(func() error {
			var rows []model.Term
			if err := list(ctx, l.client, fmt.Sprintf("products/attributes/%d/terms", a.ID), &rows); err != nil {
				return err
			}
			for j := range rows {
				rows[j].Attribute = a.Slug
			}
			perAttr[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Term
	for _, rows := range perAttr {
		out = append(out, rows...)
	}
	return out, nil
}
