package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"orderbot/internal/catalog"
	"orderbot/internal/model"
)

func testCatalog() *catalog.Snapshot {
	return catalog.NewSnapshot(model.CatalogData{
		Categories: []model.Category{
			{ID: 10, Name: "Wall", Slug: "wall", Count: 12},
			{ID: 11, Name: "Floor Tiles", Slug: "floor-tiles", Count: 30},
			{ID: 12, Name: "Mosaics", Slug: "mosaics", Count: 4},
		},
		Tags: []model.Tag{
			{ID: 70, Name: "Quick Ship", Slug: "quick-ship"},
			{ID: 71, Name: "Chip Card", Slug: "chip-card"},
		},
		Terms: []model.Term{
			{ID: 1, Attribute: "pa_finish", Name: "Polished", Slug: "polished"},
			{ID: 2, Attribute: "pa_finish", Name: "Semi-Polished", Slug: "semi-polished"},
			{ID: 3, Attribute: "pa_color", Name: "White", Slug: "white"},
			{ID: 4, Attribute: "pa_size", Name: "24x48", Slug: "24x48"},
			{ID: 5, Attribute: "pa_size", Name: "12x24", Slug: "12x24"},
		},
		Products: []model.Product{
			{ID: 500, Name: "Allspice Porcelain Tile", Slug: "allspice-porcelain-tile"},
			{ID: 501, Name: "Calacatta Gold", Slug: "calacatta-gold"},
			{ID: 502, Name: "Calacatta Gold Mosaic", Slug: "calacatta-gold-mosaic"},
		},
	})
}

type staticCatalog struct {
	snap *catalog.Snapshot
}

func (s staticCatalog) Current() *catalog.Snapshot { return s.snap }

// fakeCompleter returns canned completions and records the prompts it saw.
type fakeCompleter struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
	users   []string
}

func (f *fakeCompleter) IsEnabled() bool { return true }

func (f *fakeCompleter) Complete(_ context.Context, _, user string) (Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.users = append(f.users, user)
	if f.err != nil {
		return Completion{}, f.err
	}
	return Completion{Content: f.content, InputTokens: 10, OutputTokens: 5}, nil
}

// fakeTransport answers calls by "METHOD endpoint" key and records them.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string]model.CallResponse
	errs      map[string]error
	calls     []model.Call
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		responses: make(map[string]model.CallResponse),
		errs:      make(map[string]error),
	}
}

func (f *fakeTransport) on(method, endpoint string, data any) {
	raw, _ := json.Marshal(data)
	f.responses[method+" "+endpoint] = model.CallResponse{Success: true, Status: 200, Data: raw}
}

func (f *fakeTransport) fail(method, endpoint string, status int, msg string) {
	f.responses[method+" "+endpoint] = model.CallResponse{Success: false, Status: status, Error: msg}
}

func (f *fakeTransport) Execute(_ context.Context, call model.Call) (model.CallResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	key := call.Method + " " + call.Endpoint
	if err, ok := f.errs[key]; ok {
		return model.CallResponse{}, err
	}
	if resp, ok := f.responses[key]; ok {
		return resp, nil
	}
	return model.CallResponse{}, errors.New("no canned response for " + key)
}

func (f *fakeTransport) recorded() []model.Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Call(nil), f.calls...)
}

func (f *fakeTransport) count(method, prefix string) int {
	n := 0
	for _, c := range f.recorded() {
		if c.Method == method && strings.HasPrefix(c.Endpoint, prefix) {
			n++
		}
	}
	return n
}

func newTestEngine(completer Completer) *Engine {
	logger := zerolog.Nop()
	var fb *Fallback
	if completer != nil {
		fb = NewFallback(completer, NewSanitizer(), 20, logger)
	}
	return NewEngine(
		NewExtractor(),
		NewClassifier(),
		NewGate(DefaultConfidenceThreshold, fb, logger),
		NewMachine(),
		NewPlanner(10, 12),
		staticCatalog{snap: testCatalog()},
		logger,
	)
}

func customer(id int) *int { return &id }
