// Package plmcontext assembles the PLM evidence that grounds an LLM reply.
package plmcontext

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"jan-server/services/plm-chat-api/internal/domain/partref"
	"jan-server/services/plm-chat-api/internal/domain/plm"
	"jan-server/services/plm-chat-api/internal/infrastructure/logger"
	"jan-server/services/plm-chat-api/internal/infrastructure/metrics"
	"jan-server/services/plm-chat-api/internal/infrastructure/observability"
)

// NoContext is the rendered block when nothing could be found.
const NoContext = "No specific part information found."

const truncationMarker = "..."

// Fragment is one labelled piece of evidence, e.g. "Part X1 details: {...}".
type Fragment struct {
	Label   string
	Payload string
}

func (f Fragment) String() string {
	return f.Label + ": " + f.Payload
}

// Block is the ordered evidence handed to the LLM.
type Block []Fragment

// String joins the fragments with newlines, or returns NoContext.
func (b Block) String() string {
	if len(b) == 0 {
		return NoContext
	}
	lines := make([]string, len(b))
	for i, f := range b {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}

type Options struct {
	// LookupTimeout bounds every individual PLM call.
	LookupTimeout time.Duration
	// MaxCandidates caps how many distinct part tokens are looked up.
	MaxCandidates int
	// Concurrency caps in-flight PLM calls per BuildContext.
	Concurrency int
	// MaxFragmentChars truncates long payloads; zero disables truncation.
	MaxFragmentChars int
}

func DefaultOptions() Options {
	return Options{
		LookupTimeout:    10 * time.Second,
		MaxCandidates:    5,
		Concurrency:      8,
		MaxFragmentChars: 2000,
	}
}

type partLookup struct {
	kind  string
	label string
	fetch func(ctx context.Context, client plm.Client, partID string) plm.LookupResult[any]
}

// per-part lookups in the order their fragments appear
var partLookups = []partLookup{
	{
		kind:  "details",
		label: "details",
		fetch: func(ctx context.Context, c plm.Client, id string) plm.LookupResult[any] {
			return plm.Map(c.GetPartDetails(ctx, id), toAny[*plm.Record])
		},
	},
	{
		kind:  "availability",
		label: "availability",
		fetch: func(ctx context.Context, c plm.Client, id string) plm.LookupResult[any] {
			return plm.Map(c.GetPartAvailability(ctx, id), toAny[*plm.Record])
		},
	},
	{
		kind:  "documentation",
		label: "documentation",
		fetch: func(ctx context.Context, c plm.Client, id string) plm.LookupResult[any] {
			return c.GetPartDocumentation(ctx, id)
		},
	},
	{
		kind:  "history",
		label: "change history",
		fetch: func(ctx context.Context, c plm.Client, id string) plm.LookupResult[any] {
			return plm.Map(c.GetChangeHistory(ctx, id), toAny[[]*plm.Record])
		},
	},
}

// Aggregator turns an utterance into a context Block. It never fails:
// a lookup that errors, times out or finds nothing just leaves its fragment out.
type Aggregator struct {
	client plm.Client
	opts   Options
}

func NewAggregator(client plm.Client, opts Options) *Aggregator {
	defaults := DefaultOptions()
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = defaults.LookupTimeout
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = defaults.MaxCandidates
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaults.Concurrency
	}
	if opts.MaxFragmentChars < 0 {
		opts.MaxFragmentChars = 0
	}
	return &Aggregator{client: client, opts: opts}
}

// BuildContext searches with the whole utterance, looks up every candidate
// part, and falls back to the catalog list when nothing else was found.
// Lookups run concurrently; fragments keep the fixed order regardless.
func (a *Aggregator) BuildContext(ctx context.Context, utterance string) Block {
	ctx, span := observability.StartSpan(ctx, "plmcontext.BuildContext")
	defer span.End()

	partIDs := partref.Tokens(utterance, a.opts.MaxCandidates)
	slots := make([]*Fragment, 1+len(partIDs)*len(partLookups))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	g.Go(func() error {
		result := a.run(ctx, "search", func(ctx context.Context) plm.LookupResult[any] {
			return a.client.Search(ctx, utterance)
		})
		slots[0] = a.fragment("Related parts", result)
		return nil
	})
	for i, partID := range partIDs {
		for j, lookup := range partLookups {
			slot := 1 + i*len(partLookups) + j
			g.Go(func() error {
				result := a.run(ctx, lookup.kind, func(ctx context.Context) plm.LookupResult[any] {
					return lookup.fetch(ctx, a.client, partID)
				})
				slots[slot] = a.fragment(fmt.Sprintf("Part %s %s", partID, lookup.label), result)
				return nil
			})
		}
	}
	_ = g.Wait()

	block := make(Block, 0, len(slots))
	for _, f := range slots {
		if f != nil {
			block = append(block, *f)
		}
	}

	if len(block) == 0 {
		if f := a.catalogFallback(ctx); f != nil {
			block = append(block, *f)
		}
	}

	metrics.ContextFragments.Observe(float64(len(block)))
	observability.AddSpanAttributes(ctx,
		attribute.Int("plm.candidates", len(partIDs)),
		attribute.Int("plm.fragments", len(block)),
	)
	return block
}

func (a *Aggregator) catalogFallback(ctx context.Context) *Fragment {
	result := a.run(ctx, "catalogs", func(ctx context.Context) plm.LookupResult[any] {
		return plm.Map(a.client.GetCatalogs(ctx), toAny[[]*plm.Record])
	})
	if !result.IsSuccess() {
		return nil
	}
	catalogs, _ := result.Value.([]*plm.Record)
	names := make([]string, 0, len(catalogs))
	for _, c := range catalogs {
		if name, ok := c.GetString("name"); ok {
			names = append(names, name)
		} else {
			names = append(names, plm.Literal(c))
		}
	}
	return &Fragment{Label: "Available catalogs", Payload: a.truncate(strings.Join(names, ", "))}
}

// Call runs fn with its own deadline. A panic in fn becomes an Error result,
// and a collaborator that ignores ctx is abandoned at the deadline.
func Call[T any](ctx context.Context, kind string, timeout time.Duration, fn func(context.Context) plm.LookupResult[T]) plm.LookupResult[T] {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan plm.LookupResult[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- plm.Failure[T](fmt.Errorf("%s lookup panicked: %v", kind, r))
			}
		}()
		done <- fn(callCtx)
	}()

	select {
	case result := <-done:
		return result
	case <-callCtx.Done():
		return plm.Failure[T](fmt.Errorf("%s lookup: %w", kind, callCtx.Err()))
	}
}

// run is Call plus blank-payload normalization and outcome accounting.
func (a *Aggregator) run(ctx context.Context, kind string, fn func(context.Context) plm.LookupResult[any]) plm.LookupResult[any] {
	result := Call(ctx, kind, a.opts.LookupTimeout, fn)
	if result.IsSuccess() && isBlank(result.Value) {
		result = plm.Empty[any]()
	}

	metrics.RecordLookup(kind, result.Status.String())
	if result.IsError() {
		log := logger.GetLogger()
		log.Debug().Err(result.Err).Str("kind", kind).Msg("plm lookup omitted from context")
	}
	return result
}

func (a *Aggregator) fragment(label string, result plm.LookupResult[any]) *Fragment {
	if !result.IsSuccess() {
		return nil
	}
	return &Fragment{Label: label, Payload: a.truncate(plm.Literal(result.Value))}
}

func (a *Aggregator) truncate(payload string) string {
	limit := a.opts.MaxFragmentChars
	if limit == 0 || utf8.RuneCountInString(payload) <= limit {
		return payload
	}
	runes := []rune(payload)
	return string(runes[:limit]) + truncationMarker
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case *plm.Record:
		return val.Len() == 0
	case []*plm.Record:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case string:
		return strings.TrimSpace(val) == ""
	default:
		return false
	}
}

func toAny[T any](v T) any { return v }
