// Package transport talks to the storefront's REST backend.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"orderbot/internal/config"
	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 8 << 20

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// CommerceClient executes call descriptors against a WooCommerce-style REST
// API authenticated with a consumer key and secret.
type CommerceClient struct {
	config     *config.CommerceConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewCommerceClient creates a client with the configured request timeout.
func NewCommerceClient(cfg *config.CommerceConfig, logger zerolog.Logger) *CommerceClient {
	return &CommerceClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		logger: logger,
	}
}

// Execute sends one call. A non-2xx answer is reported in the response with
// Success false; only failures to complete the exchange return an error.
func (c *CommerceClient) Execute(ctx context.Context, call model.Call) (model.CallResponse, error) {
	method := strings.ToUpper(call.Method)
	if !allowedMethods[method] {
		return model.CallResponse{}, fmt.Errorf("unsupported method %q", call.Method)
	}
	if strings.Contains(call.Endpoint, model.CustomerPlaceholder) {
		return model.CallResponse{}, errors.New("call still carries the customer placeholder")
	}

	endpoint, err := c.buildURL(call.Endpoint, call.Params)
	if err != nil {
		return model.CallResponse{}, err
	}

	var body io.Reader
	if call.Body != nil && method != http.MethodGet {
		raw, err := json.Marshal(call.Body)
		if err != nil {
			return model.CallResponse{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return model.CallResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.ConsumerKey != "" {
		req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveCommerceCall(method, 0, time.Since(start).Seconds())
		return model.CallResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	metrics.ObserveCommerceCall(method, resp.StatusCode, time.Since(start).Seconds())
	if err != nil {
		return model.CallResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("stage", call.Stage).
		Str("method", method).
		Str("endpoint", call.Endpoint).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("commerce call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.CallResponse{
			Success: false,
			Status:  resp.StatusCode,
			Error:   errorMessage(data, resp.StatusCode),
		}, nil
	}
	if !json.Valid(data) {
		return model.CallResponse{}, fmt.Errorf("backend returned non-JSON body for %s", call.Endpoint)
	}
	return model.CallResponse{Success: true, Status: resp.StatusCode, Data: data}, nil
}

func (c *CommerceClient) buildURL(endpoint string, params map[string]string) (string, error) {
	base := strings.TrimRight(c.config.BaseURL, "/")
	u, err := url.Parse(base + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			if v == "" {
				continue
			}
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// errorMessage pulls the human-readable message out of a backend error body.
func errorMessage(data []byte, status int) string {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		if body.Code != "" {
			return body.Code + ": " + body.Message
		}
		return body.Message
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200]
	}
	if text == "" {
		return http.StatusText(status)
	}
	return text
}
