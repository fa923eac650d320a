// Package formatter renders PLM records as plain text for direct replies.
package formatter

import (
	"fmt"
	"strings"

	"jan-server/services/plm-chat-api/internal/domain/plm"
)

const (
	noBOMs         = "No BOMs found."
	noCatalogs     = "No catalogs found."
	missingID      = "N/A"
	unnamedBOM     = "Unnamed BOM"
	unnamedCatalog = "Unnamed catalog"
	unnamedItem    = "Unnamed item"
)

func FormatBOMs(boms []*plm.Record) string {
	return formatList(boms, noBOMs, "Available BOMs:", unnamedBOM)
}

func FormatCatalogs(catalogs []*plm.Record) string {
	return formatList(catalogs, noCatalogs, "Available catalogs:", unnamedCatalog)
}

// FormatCatalogItems lists the items of one catalog like FormatCatalogs
// lists catalogs.
func FormatCatalogItems(catalogID string, items []*plm.Record) string {
	return formatList(items, fmt.Sprintf("No items found in catalog %s.", catalogID),
		fmt.Sprintf("Items in catalog %s:", catalogID), unnamedItem)
}

// FormatPartDetails lists every field of the part except identifier keys,
// in the record's order.
func FormatPartDetails(part *plm.Record) string {
	return formatRecord("Part Details:", part)
}

// FormatBOMDetails renders one BOM the way FormatPartDetails renders a part.
func FormatBOMDetails(bom *plm.Record) string {
	return formatRecord("BOM Details:", bom)
}

// PartNotFound is the reply for a part lookup that found nothing.
func PartNotFound(partID string) string {
	return fmt.Sprintf("No details found for part %s.", partID)
}

func BOMNotFound(bomID string) string {
	return fmt.Sprintf("No details found for BOM %s.", bomID)
}

// IsIDKey reports whether key names an internal identifier: id, _id, ID, uuid...
func IsIDKey(key string) bool {
	normalized := strings.ToLower(strings.Trim(key, "_ "))
	return normalized == "id" || normalized == "uuid"
}

func formatRecord(header string, rec *plm.Record) string {
	var b strings.Builder
	b.WriteString(header)
	for _, f := range rec.Fields() {
		if IsIDKey(f.Key) {
			continue
		}
		fmt.Fprintf(&b, "\n- %s: %s", f.Key, plm.Display(f.Value))
	}
	return b.String()
}

func formatList(records []*plm.Record, empty, header, unnamed string) string {
	if len(records) == 0 {
		return empty
	}
	var b strings.Builder
	b.WriteString(header)
	for _, rec := range records {
		name, ok := rec.GetString("name")
		if !ok {
			name = unnamed
		}
		id, ok := rec.GetString("id")
		if !ok {
			id = missingID
		}
		fmt.Fprintf(&b, "\n- %s (ID: %s)", name, id)
	}
	return b.String()
}
