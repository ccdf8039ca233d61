package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Veraticus/schoolctl/internal/model"
)

// Configuration fetches the enumeration bag of one service domain.
func (c *Client) Configuration(ctx context.Context, domain string) (model.ConfigBag, error) {
	var bag model.ConfigBag
	if err := c.do(ctx, http.MethodGet, "configuration/"+url.PathEscape(domain), nil, nil, &bag); err != nil {
		return model.ConfigBag{}, err
	}
	if bag.Domain == "" {
		bag.Domain = domain
	}
	return bag, nil
}

// BulkPriceResult reports how many prices changed.
type BulkPriceResult struct {
	Updated int `json:"updated"`
}

// BulkUpdatePrices sets the unit price of several pricing rows at once.
func (c *Client) BulkUpdatePrices(ctx context.Context, req model.BulkPriceRequest) (BulkPriceResult, error) {
	var out BulkPriceResult
	if len(req.Items) == 0 {
		return out, fmt.Errorf("bulk price update needs at least one item")
	}
	err := c.do(ctx, http.MethodPost, ResourcePricing+"/bulk", nil, req, &out)
	return out, err
}

type itemsEnvelope[T any] struct {
	Items []T `json:"items"`
}

// Sessions lists academic sessions.
func (c *Client) Sessions(ctx context.Context) ([]model.Session, error) {
	var env itemsEnvelope[model.Session]
	if err := c.do(ctx, http.MethodGet, "sessions", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// Classes lists grade levels.
func (c *Client) Classes(ctx context.Context) ([]model.Class, error) {
	var env itemsEnvelope[model.Class]
	if err := c.do(ctx, http.MethodGet, "classes", nil, nil, &env); err != nil {
		return nil, err
	}
	return env.Items, nil
}

// PreviewProgression lists the students eligible to move between sessions.
func (c *Client) PreviewProgression(ctx context.Context, req model.PreviewRequest) (model.PreviewResponse, error) {
	var out model.PreviewResponse
	err := c.do(ctx, http.MethodPost, "progression/preview", nil, req, &out)
	return out, err
}

// ExecuteProgression commits a progression plan.
func (c *Client) ExecuteProgression(ctx context.Context, req model.ExecuteRequest) (model.ProgressionResult, error) {
	var out model.ProgressionResult
	err := c.do(ctx, http.MethodPost, "progression/execute", nil, req, &out)
	return out, err
}
