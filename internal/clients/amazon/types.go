package amazon

// Report processing states returned by getReport
const (
	ReportStatusDone       = "DONE"
	ReportStatusCancelled  = "CANCELLED"
	ReportStatusFatal      = "FATAL"
	ReportStatusInQueue    = "IN_QUEUE"
	ReportStatusInProgress = "IN_PROGRESS"

	OrdersReportType = "GET_FLAT_FILE_ALL_ORDERS_DATA_BY_ORDER_DATE_GENERAL"
)

// Pagination carries the continuation token of a paged response
type Pagination struct {
	NextToken string `json:"nextToken"`
}

// InventorySummariesResponse is the getInventorySummaries response. The
// token and summaries appear at different nesting levels depending on the
// API version, so every location is decoded.
type InventorySummariesResponse struct {
	Payload *struct {
		InventorySummaries []InventorySummary `json:"inventorySummaries"`
		Pagination         *Pagination        `json:"pagination"`
	} `json:"payload"`
	InventorySummaries []InventorySummary `json:"inventorySummaries"`
	Pagination         *Pagination        `json:"pagination"`
	NextToken          string             `json:"nextToken"`
}

// Summaries returns the summaries wherever they were placed
func (r *InventorySummariesResponse) Summaries() []InventorySummary {
	if r.Payload != nil && len(r.Payload.InventorySummaries) > 0 {
		return r.Payload.InventorySummaries
	}
	return r.InventorySummaries
}

// Token returns the continuation token, checking nextToken,
// pagination.nextToken and payload.pagination.nextToken in that order
func (r *InventorySummariesResponse) Token() string {
	if r.NextToken != "" {
		return r.NextToken
	}
	if r.Pagination != nil && r.Pagination.NextToken != "" {
		return r.Pagination.NextToken
	}
	if r.Payload != nil && r.Payload.Pagination != nil {
		return r.Payload.Pagination.NextToken
	}
	return ""
}

// InventorySummary is one SKU in the FBA inventory summary
type InventorySummary struct {
	ASIN             string            `json:"asin"`
	FnSku            string            `json:"fnSku"`
	SellerSku        string            `json:"sellerSku"`
	Condition        string            `json:"condition"`
	InventoryDetails *InventoryDetails `json:"inventoryDetails"`
	TotalQuantity    int               `json:"totalQuantity"`
}

// InventoryDetails is the quantity breakdown. SP-API nests reserved and
// unfulfillable counts; older payloads carry them flat.
type InventoryDetails struct {
	FulfillableQuantity      int `json:"fulfillableQuantity"`
	InboundWorkingQuantity   int `json:"inboundWorkingQuantity"`
	InboundShippedQuantity   int `json:"inboundShippedQuantity"`
	InboundReceivingQuantity int `json:"inboundReceivingQuantity"`

	ReservedQuantity *struct {
		TotalReservedQuantity        int `json:"totalReservedQuantity"`
		PendingCustomerOrderQuantity int `json:"pendingCustomerOrderQuantity"`
		PendingTransshipmentQuantity int `json:"pendingTransshipmentQuantity"`
		FCProcessingQuantity         int `json:"fcProcessingQuantity"`
	} `json:"reservedQuantity"`

	UnfulfillableQuantity *struct {
		TotalUnfulfillableQuantity int `json:"totalUnfulfillableQuantity"`
		CustomerDamagedQuantity    int `json:"customerDamagedQuantity"`
		WarehouseDamagedQuantity   int `json:"warehouseDamagedQuantity"`
		DistributorDamagedQuantity int `json:"distributorDamagedQuantity"`
	} `json:"unfulfillableQuantity"`

	TotalReservedQuantity        int `json:"totalReservedQuantity"`
	PendingCustomerOrderQuantity int `json:"pendingCustomerOrderQuantity"`
	PendingTransshipmentQuantity int `json:"pendingTransshipmentQuantity"`
	FCProcessingQuantity         int `json:"fcProcessingQuantity"`
	TotalUnfulfillableQuantity   int `json:"totalUnfulfillableQuantity"`
	CustomerDamagedQuantity      int `json:"customerDamagedQuantity"`
	WarehouseDamagedQuantity     int `json:"warehouseDamagedQuantity"`
	DistributorDamagedQuantity   int `json:"distributorDamagedQuantity"`
}

type createReportRequest struct {
	ReportType     string   `json:"reportType"`
	MarketplaceIDs []string `json:"marketplaceIds"`
	DataStartTime  string   `json:"dataStartTime"`
	DataEndTime    string   `json:"dataEndTime"`
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

// Report is the getReport response
type Report struct {
	ReportID         string `json:"reportId"`
	ProcessingStatus string `json:"processingStatus"`
	ReportDocumentID string `json:"reportDocumentId"`
}

// ReportDocument is the getReportDocument response
type ReportDocument struct {
	ReportDocumentID     string `json:"reportDocumentId"`
	URL                  string `json:"url"`
	CompressionAlgorithm string `json:"compressionAlgorithm,omitempty"`
}
