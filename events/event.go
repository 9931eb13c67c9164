package events

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// Required
	TemplateUrl        = "%v/event?t=%v&b=%v&a=%v"
	TypeParameter      = "t"
	BidIdParameter     = "b"
	AccountIdParameter = "a"

	// Optional
	BidderParameter      = "bidder"
	TimestampParameter   = "ts"
	FormatParameter      = "f"
	AnalyticsParameter   = "x"
	IntegrationParameter = "int"
	LineItemParameter    = "l"
)

// EventType enumerates the values of the t parameter
type EventType string

const (
	Win EventType = "win"
	Imp EventType = "imp"
)

// ResponseFormat enumerates the values of the f parameter
type ResponseFormat string

const (
	Blank ResponseFormat = "b"
	Image ResponseFormat = "i"
)

// Analytics enumerates the values of the x parameter
type Analytics string

const (
	Enabled  Analytics = "1"
	Disabled Analytics = "0"
)

// EventRequest describes one notification url.
type EventRequest struct {
	Type        EventType
	BidID       string
	AccountID   string
	Bidder      string
	Timestamp   int64
	Format      ResponseFormat
	Analytics   Analytics
	Integration string
	LineItemID  string
}

// EventRequestToUrl converts an EventRequest to an URL
func EventRequestToUrl(externalUrl string, request *EventRequest) string {
	s := fmt.Sprintf(TemplateUrl, externalUrl, request.Type, url.QueryEscape(request.BidID), url.QueryEscape(request.AccountID))

	return s + optionalParameters(request)
}

func optionalParameters(request *EventRequest) string {
	r := url.Values{}

	// timestamp
	if request.Timestamp > 0 {
		r.Add(TimestampParameter, strconv.FormatInt(request.Timestamp, 10))
	}

	// bidder
	if request.Bidder != "" {
		r.Add(BidderParameter, request.Bidder)
	}

	// format
	switch request.Format {
	case Blank, Image:
		r.Add(FormatParameter, string(request.Format))
	}

	//analytics
	switch request.Analytics {
	case Enabled, Disabled:
		r.Add(AnalyticsParameter, string(request.Analytics))
	}

	if request.Integration != "" {
		r.Add(IntegrationParameter, request.Integration)
	}

	if request.LineItemID != "" {
		r.Add(LineItemParameter, request.LineItemID)
	}

	opt := r.Encode()

	if opt != "" {
		return "&" + opt
	}

	return opt
}
