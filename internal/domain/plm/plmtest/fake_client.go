// Package plmtest provides an in-memory plm.Client for tests.
package plmtest

import (
	"context"
	"sync"

	"jan-server/services/plm-chat-api/internal/domain/plm"
)

// Call is one recorded invocation on FakeClient.
type Call struct {
	Method string
	Arg    string
}

// FakeClient answers every method with Empty unless the matching func is set.
type FakeClient struct {
	SearchFunc        func(ctx context.Context, query string) plm.LookupResult[any]
	PartDetailsFunc   func(ctx context.Context, id string) plm.LookupResult[*plm.Record]
	AvailabilityFunc  func(ctx context.Context, id string) plm.LookupResult[*plm.Record]
	DocumentationFunc func(ctx context.Context, id string) plm.LookupResult[any]
	ChangeHistoryFunc func(ctx context.Context, id string) plm.LookupResult[[]*plm.Record]
	CatalogsFunc      func(ctx context.Context) plm.LookupResult[[]*plm.Record]
	BOMsFunc          func(ctx context.Context) plm.LookupResult[[]*plm.Record]
	BOMDetailsFunc    func(ctx context.Context, id string) plm.LookupResult[*plm.Record]
	CatalogItemsFunc  func(ctx context.Context, id string) plm.LookupResult[[]*plm.Record]

	mu    sync.Mutex
	calls []Call
}

var _ plm.Client = (*FakeClient)(nil)

func (f *FakeClient) record(method, arg string) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Arg: arg})
	f.mu.Unlock()
}

// Calls returns the invocations so far.
func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts invocations of method.
func (f *FakeClient) CallCount(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeClient) Search(ctx context.Context, query string) plm.LookupResult[any] {
	f.record("Search", query)
	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, query)
	}
	return plm.Empty[any]()
}

func (f *FakeClient) GetPartDetails(ctx context.Context, id string) plm.LookupResult[*plm.Record] {
	f.record("GetPartDetails", id)
	if f.PartDetailsFunc != nil {
		return f.PartDetailsFunc(ctx, id)
	}
	return plm.Empty[*plm.Record]()
}

func (f *FakeClient) GetPartAvailability(ctx context.Context, id string) plm.LookupResult[*plm.Record] {
	f.record("GetPartAvailability", id)
	if f.AvailabilityFunc != nil {
		return f.AvailabilityFunc(ctx, id)
	}
	return plm.Empty[*plm.Record]()
}

func (f *FakeClient) GetPartDocumentation(ctx context.Context, id string) plm.LookupResult[any] {
	f.record("GetPartDocumentation", id)
	if f.DocumentationFunc != nil {
		return f.DocumentationFunc(ctx, id)
	}
	return plm.Empty[any]()
}

func (f *FakeClient) GetChangeHistory(ctx context.Context, id string) plm.LookupResult[[]*plm.Record] {
	f.record("GetChangeHistory", id)
	if f.ChangeHistoryFunc != nil {
		return f.ChangeHistoryFunc(ctx, id)
	}
	return plm.Empty[[]*plm.Record]()
}

func (f *FakeClient) GetCatalogs(ctx context.Context) plm.LookupResult[[]*plm.Record] {
	f.record("GetCatalogs", "")
	if f.CatalogsFunc != nil {
		return f.CatalogsFunc(ctx)
	}
	return plm.Empty[[]*plm.Record]()
}

func (f *FakeClient) GetBOMs(ctx context.Context) plm.LookupResult[[]*plm.Record] {
	f.record("GetBOMs", "")
	if f.BOMsFunc != nil {
		return f.BOMsFunc(ctx)
	}
	return plm.Empty[[]*plm.Record]()
}

func (f *FakeClient) GetBOMDetails(ctx context.Context, id string) plm.LookupResult[*plm.Record] {
	f.record("GetBOMDetails", id)
	if f.BOMDetailsFunc != nil {
		return f.BOMDetailsFunc(ctx, id)
	}
	return plm.Empty[*plm.Record]()
}

func (f *FakeClient) GetCatalogItems(ctx context.Context, id string) plm.LookupResult[[]*plm.Record] {
	f.record("GetCatalogItems", id)
	if f.CatalogItemsFunc != nil {
		return f.CatalogItemsFunc(ctx, id)
	}
	return plm.Empty[[]*plm.Record]()
}

// StaticCredentials is a plm.CredentialProvider with a fixed answer.
type StaticCredentials bool

func (s StaticCredentials) IsAuthenticated(context.Context) bool { return bool(s) }
