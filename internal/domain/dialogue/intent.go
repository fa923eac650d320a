package dialogue

import (
	"regexp"
	"strings"
)

// Intent is a request the orchestrator can answer straight from the PLM.
type Intent string

const (
	IntentNone         Intent = "none"
	IntentBOMList      Intent = "bom_list"
	IntentBOMDetails   Intent = "bom_details"
	IntentCatalogList  Intent = "catalog_list"
	IntentCatalogItems Intent = "catalog_items"
	IntentPartDetails  Intent = "part_details"
)

// Trigger words only count as whole words: "BOM-123" or "catalog-7" are
// identifiers, not requests.
var (
	bomPattern     = regexp.MustCompile(`(?i)(?:^|[^\w-])(?:boms?|bills?\s+of\s+materials?)(?:[^\w-]|$)`)
	catalogPattern = regexp.MustCompile(`(?i)(?:^|[^\w-])catalogs?(?:[^\w-]|$)`)

	// the whole utterance must be "[show [me]] bom <token>"
	bomDetailsPattern = regexp.MustCompile(`(?i)^(?:show\s+(?:me\s+)?)?bom\s+(\S*\d\S*?)[.?!]*$`)
	// "[show [me]] [items in] catalog <token> [items]"
	catalogItemsPattern = regexp.MustCompile(`(?i)^(?:show\s+(?:me\s+)?)?(?:(?:the\s+)?items\s+(?:in|of)\s+)?catalog\s+(\S*\d\S*?)(?:\s+items)?[.?!]*$`)
	// the whole utterance must be "[show [me]] part <token>"
	partPattern = regexp.MustCompile(`(?i)^(?:show\s+(?:me\s+)?)?part\s+(\S*\d\S*?)[.?!]*$`)
)

// DetectIntent checks the short-circuit patterns in priority order:
// BOM, catalog, then a single part. Within the BOM and catalog intents an
// utterance naming one identifier asks for that BOM or catalog's contents
// instead of the list. For intents about one record its identifier is
// returned as well.
func DetectIntent(utterance string) (Intent, string) {
	text := strings.TrimSpace(utterance)
	if bomPattern.MatchString(text) {
		if m := bomDetailsPattern.FindStringSubmatch(text); m != nil {
			return IntentBOMDetails, m[1]
		}
		return IntentBOMList, ""
	}
	if catalogPattern.MatchString(text) {
		if m := catalogItemsPattern.FindStringSubmatch(text); m != nil {
			return IntentCatalogItems, m[1]
		}
		return IntentCatalogList, ""
	}
	if m := partPattern.FindStringSubmatch(text); m != nil {
		return IntentPartDetails, m[1]
	}
	return IntentNone, ""
}
