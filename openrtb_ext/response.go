package openrtb_ext

import "encoding/json"

// ExtBidResponse defines the contract for bidresponse.ext
type ExtBidResponse struct {
	Debug *ExtResponseDebug `json:"debug,omitempty"`
	// Errors defines the contract for bidresponse.ext.errors
	Errors map[BidderName][]ExtBidderMessage `json:"errors,omitempty"`
	// ResponseTimeMillis defines the contract for bidresponse.ext.responsetimemillis
	ResponseTimeMillis map[BidderName]int `json:"responsetimemillis,omitempty"`
	// Prebid defines the contract for bidresponse.ext.prebid
	Prebid *ExtResponsePrebid `json:"prebid,omitempty"`
}

// ExtResponseDebug defines the contract for bidresponse.ext.debug
type ExtResponseDebug struct {
	// HttpCalls defines the contract for bidresponse.ext.debug.httpcalls
	HttpCalls map[BidderName][]*ExtHttpCall `json:"httpcalls,omitempty"`
	// Request after resolution of stored requests and debug overrides
	ResolvedRequest json.RawMessage  `json:"resolvedrequest,omitempty"`
	Metrics         *ExtDebugMetrics `json:"metrics,omitempty"`
	Trace           *ExtDebugTrace   `json:"trace,omitempty"`
}

// ExtDebugMetrics defines the contract for bidresponse.ext.debug.metrics
type ExtDebugMetrics struct {
	BidsReceived         int                `json:"bidsreceived"`
	RedundantBidsDropped map[BidderName]int `json:"redundantbidsdropped,omitempty"`
	DealsLost            int                `json:"dealslost"`
}

// ExtDebugTrace defines the contract for bidresponse.ext.debug.trace
type ExtDebugTrace struct {
	Deals []ExtTraceDeal `json:"deals,omitempty"`
}

// ExtTraceDeal records a deal that lost an impression to another deal.
type ExtTraceDeal struct {
	ImpID  string `json:"impid"`
	DealID string `json:"dealid"`
	LostTo string `json:"lostto"`
}

// ExtResponsePrebid defines the contract for bidresponse.ext.prebid
type ExtResponsePrebid struct {
	AuctionTimestamp int64 `json:"auctiontimestamp,omitempty"`
}

// ExtBidderMessage defines an error object to be returned, consisting of a machine readable error code, and a human readable error message string.
type ExtBidderMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ExtHttpCall defines the contract for a bidresponse.ext.debug.httpcalls.{bidder}[i]
type ExtHttpCall struct {
	Uri            string              `json:"uri"`
	RequestBody    string              `json:"requestbody"`
	RequestHeaders map[string][]string `json:"requestheaders,omitempty"`
	ResponseBody   string              `json:"responsebody"`
	Status         int                 `json:"status"`
}
