package amazon

import "strings"

const (
	// Amazon SP-API regional endpoints
	naEndpoint = "https://sellingpartnerapi-na.amazon.com"
	euEndpoint = "https://sellingpartnerapi-eu.amazon.com"
	feEndpoint = "https://sellingpartnerapi-fe.amazon.com"

	// Amazon LWA token endpoint
	lwaTokenEndpoint = "https://api.amazon.com/auth/o2/token"

	// ReturnsSKUPrefix marks grading/returns SKUs excluded from projections
	ReturnsSKUPrefix = "amzn.gr."
)

// MarketplaceIDs maps country code to SP-API marketplace id
var MarketplaceIDs = map[string]string{
	"US": "ATVPDKIKX0DER",
	"CA": "A2EUQ1WTGCTBG2",
	"UK": "A1F83G8C2ARO7P",
	"DE": "A1PA6795UKMFR9",
	"FR": "A13V1IB3VIYZZH",
	"IT": "APJ6JRA9NG5V4",
	"ES": "A1RKKUPIHCS9HS",
	"AU": "A39IBJ37TRP1C6",
	"AE": "A2VIGQ35RCS4UG",
	"SA": "A17E79C6D8DWNP",
}

// ChannelWarehouses maps a sales channel to its fulfillment warehouse
var ChannelWarehouses = map[string]string{
	"us": "US",
	"ca": "CA",
	"uk": "UK",
	"de": "EU",
	"fr": "EU",
	"it": "EU",
	"es": "EU",
	"au": "AU",
	"ae": "AE",
	"sa": "SA",
}

// ChannelTimezoneOffsets are fixed UTC offsets in hours used for local order dates
var ChannelTimezoneOffsets = map[string]int{
	"us": -8,
	"ca": -8,
	"uk": 0,
	"de": 1,
	"fr": 1,
	"it": 1,
	"es": 1,
	"au": 10,
	"ae": 4,
	"sa": 3,
}

// SalesChannels maps the report's sales-channel column to a channel.
// AE and SA share one report, so the row value decides.
var SalesChannels = map[string]string{
	"Amazon.com":    "us",
	"Amazon.ca":     "ca",
	"Amazon.co.uk":  "uk",
	"Amazon.de":     "de",
	"Amazon.fr":     "fr",
	"Amazon.it":     "it",
	"Amazon.es":     "es",
	"Amazon.com.au": "au",
	"Amazon.ae":     "ae",
	"Amazon.sa":     "sa",
}

// IsReturnsSKU reports whether sku belongs to the returns/grading program
func IsReturnsSKU(sku string) bool {
	return strings.HasPrefix(sku, ReturnsSKUPrefix)
}

// getRegionalEndpoint returns the SP-API endpoint for a region
func getRegionalEndpoint(region string) string {
	switch strings.ToLower(region) {
	case "eu":
		return euEndpoint
	case "fe":
		return feEndpoint
	default:
		return naEndpoint
	}
}
