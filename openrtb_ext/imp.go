package openrtb_ext

import "encoding/json"

// ExtImp defines the contract for bidrequest.imp[i].ext
type ExtImp struct {
	Prebid *ExtImpPrebid `json:"prebid,omitempty"`
}

// ExtImpPrebid defines the contract for bidrequest.imp[i].ext.prebid
type ExtImpPrebid struct {
	StoredRequest *ExtStoredRequest `json:"storedrequest,omitempty"`
	Options       *Options          `json:"options,omitempty"`
	// Bidder maps bidder names to their bidder-specific params.
	Bidder map[string]json.RawMessage `json:"bidder,omitempty"`
}

// ExtStoredRequest defines the contract for bidrequest.imp[i].ext.prebid.storedrequest
type ExtStoredRequest struct {
	ID string `json:"id"`
}

// Options defines the contract for bidrequest.imp[i].ext.prebid.options
type Options struct {
	EchoVideoAttrs bool `json:"echovideoattrs"`
}
