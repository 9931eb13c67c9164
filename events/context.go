package events

// EventsContext carries the auction-scoped event settings.
type EventsContext struct {
	// EnabledForAccount is set when the publisher account allows server side events.
	EnabledForAccount bool
	// EnabledForRequest is set when the request (or its channel) asked for events.
	EnabledForRequest  bool
	AuctionTimestampMs int64
	Integration        string
}
