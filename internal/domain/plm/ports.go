// Package plm holds the PLM data model shared by the chat pipeline and the
// contracts its collaborators implement.
package plm

import "context"

// Client is the read-only view of the PLM backend used by the chat pipeline.
// Implementations classify every outcome into a LookupResult and never panic
// or return transport errors directly.
type Client interface {
	Search(ctx context.Context, query string) LookupResult[any]
	GetPartDetails(ctx context.Context, partID string) LookupResult[*Record]
	GetPartAvailability(ctx context.Context, partID string) LookupResult[*Record]
	GetPartDocumentation(ctx context.Context, partID string) LookupResult[any]
	GetChangeHistory(ctx context.Context, partID string) LookupResult[[]*Record]
	GetCatalogs(ctx context.Context) LookupResult[[]*Record]
	GetBOMs(ctx context.Context) LookupResult[[]*Record]
	GetBOMDetails(ctx context.Context, bomID string) LookupResult[*Record]
	GetCatalogItems(ctx context.Context, catalogID string) LookupResult[[]*Record]
}

// CredentialProvider answers whether PLM calls may be made at all.
type CredentialProvider interface {
	IsAuthenticated(ctx context.Context) bool
}
