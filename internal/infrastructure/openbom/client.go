// Package openbom is the OpenBOM REST adapter behind plm.Client.
package openbom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"resty.dev/v3"

	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/infrastructure/metrics"
)

const (
	headerAppKey      = "x-openbom-appkey"
	headerAccessToken = "x-openbom-accesstoken"
	maxErrorSnippet   = 200
)

// keys OpenBOM may wrap a list in
var listWrapperKeys = []string{"items", "data", "results"}

// Client reads parts, BOMs and catalogs from the OpenBOM API. Every method
// classifies its outcome: 404 and empty payloads are Empty, transport
// failures, other non-2xx statuses and payloads carrying an "error" key are Error.
type Client struct {
	http *resty.Client
	auth *Authenticator
}

var _ plm.Client = (*Client)(nil)

func NewClient(httpClient *resty.Client, auth *Authenticator) *Client {
	return &Client{http: httpClient, auth: auth}
}

func (c *Client) Search(ctx context.Context, query string) plm.LookupResult[any] {
	return c.fetch(ctx, "search", "/search", nil, map[string]string{"q": query, "type": "part"})
}

// GetPartDetails returns the part record with its BOM structure merged in
// under "bom_structure" when the part has one.
func (c *Client) GetPartDetails(ctx context.Context, partID string) plm.LookupResult[*plm.Record] {
	if strings.TrimSpace(partID) == "" {
		return plm.Empty[*plm.Record]()
	}
	params := map[string]string{"id": partID}
	result := asRecord(c.fetch(ctx, "part_details", "/parts/{id}", params, nil))
	if !result.IsSuccess() {
		return result
	}
	if structure := c.fetch(ctx, "part_bom", "/parts/{id}/bom", params, nil); structure.IsSuccess() {
		result.Value.Set("bom_structure", structure.Value)
	}
	return result
}

func (c *Client) GetPartAvailability(ctx context.Context, partID string) plm.LookupResult[*plm.Record] {
	if strings.TrimSpace(partID) == "" {
		return plm.Empty[*plm.Record]()
	}
	return asRecord(c.fetch(ctx, "part_inventory", "/parts/{id}/inventory", map[string]string{"id": partID}, nil))
}

func (c *Client) GetPartDocumentation(ctx context.Context, partID string) plm.LookupResult[any] {
	if strings.TrimSpace(partID) == "" {
		return plm.Empty[any]()
	}
	return c.fetch(ctx, "part_documents", "/parts/{id}/documents", map[string]string{"id": partID}, nil)
}

func (c *Client) GetChangeHistory(ctx context.Context, partID string) plm.LookupResult[[]*plm.Record] {
	if strings.TrimSpace(partID) == "" {
		return plm.Empty[[]*plm.Record]()
	}
	return asRecords(c.fetch(ctx, "part_history", "/parts/{id}/history", map[string]string{"id": partID}, nil))
}

func (c *Client) GetCatalogs(ctx context.Context) plm.LookupResult[[]*plm.Record] {
	return asRecords(c.fetch(ctx, "catalogs", "/catalogs", nil, nil))
}

func (c *Client) GetBOMs(ctx context.Context) plm.LookupResult[[]*plm.Record] {
	return asRecords(c.fetch(ctx, "boms", "/boms", nil, nil))
}

func (c *Client) GetBOMDetails(ctx context.Context, bomID string) plm.LookupResult[*plm.Record] {
	if strings.TrimSpace(bomID) == "" {
		return plm.Empty[*plm.Record]()
	}
	return asRecord(c.fetch(ctx, "bom_details", "/bom/{id}", map[string]string{"id": bomID}, nil))
}

func (c *Client) GetCatalogItems(ctx context.Context, catalogID string) plm.LookupResult[[]*plm.Record] {
	if strings.TrimSpace(catalogID) == "" {
		return plm.Empty[[]*plm.Record]()
	}
	return asRecords(c.fetch(ctx, "catalog_items", "/catalogs/{id}/items", map[string]string{"id": catalogID}, nil))
}

func (c *Client) fetch(ctx context.Context, operation, path string, pathParams, query map[string]string) plm.LookupResult[any] {
	start := time.Now()
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeaders(c.auth.Headers())
	if len(pathParams) > 0 {
		req.SetPathParams(pathParams)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	result := classify(operation, resp, err)

	status := "transport_error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode())
	}
	metrics.RecordPLMRequest(operation, status, time.Since(start).Seconds())
	return result
}

func classify(operation string, resp *resty.Response, err error) plm.LookupResult[any] {
	if err != nil {
		return plm.Failure[any](fmt.Errorf("openbom %s: %w", operation, err))
	}
	body := bytes.TrimSpace([]byte(resp.String()))
	code := resp.StatusCode()
	switch {
	case code == http.StatusNotFound:
		return plm.Empty[any]()
	case code < 200 || code > 299:
		return plm.Failure[any](fmt.Errorf("openbom %s returned %d: %s", operation, code, snippet(body)))
	case len(body) == 0:
		return plm.Empty[any]()
	}

	value, err := plm.Decode(body)
	if err != nil {
		return plm.Failure[any](fmt.Errorf("openbom %s: %w", operation, err))
	}
	switch v := value.(type) {
	case nil:
		return plm.Empty[any]()
	case []any:
		if len(v) == 0 {
			return plm.Empty[any]()
		}
	case *plm.Record:
		if v.Len() == 0 {
			return plm.Empty[any]()
		}
		if msg, ok := v.Get("error"); ok {
			return plm.Failure[any](fmt.Errorf("openbom %s: %s", operation, plm.Display(msg)))
		}
	}
	return plm.Success(value)
}

func asRecord(result plm.LookupResult[any]) plm.LookupResult[*plm.Record] {
	if !result.IsSuccess() {
		return plm.Map(result, func(any) *plm.Record { return nil })
	}
	rec, ok := result.Value.(*plm.Record)
	if !ok {
		return plm.Failure[*plm.Record](errors.New("openbom: expected an object"))
	}
	return plm.Success(rec)
}

func asRecords(result plm.LookupResult[any]) plm.LookupResult[[]*plm.Record] {
	if !result.IsSuccess() {
		return plm.Map(result, func(any) []*plm.Record { return nil })
	}
	items, ok := result.Value.([]any)
	if !ok {
		items, ok = unwrapList(result.Value)
	}
	if !ok {
		return plm.Failure[[]*plm.Record](errors.New("openbom: expected a list"))
	}
	if len(items) == 0 {
		return plm.Empty[[]*plm.Record]()
	}
	records, err := plm.RecordsOf(items)
	if err != nil {
		return plm.Failure[[]*plm.Record](err)
	}
	return plm.Success(records)
}

func unwrapList(value any) ([]any, bool) {
	rec, ok := value.(*plm.Record)
	if !ok {
		return nil, false
	}
	for _, key := range listWrapperKeys {
		if v, found := rec.Get(key); found {
			items, isList := v.([]any)
			return items, isList
		}
	}
	return nil, false
}

func snippet(body []byte) string {
	s := string(body)
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet] + "..."
	}
	return s
}
