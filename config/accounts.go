package config

// Account represents a publisher account configuration
type Account struct {
	ID            string `mapstructure:"id" json:"id"`
	EventsEnabled bool   `mapstructure:"events_enabled" json:"events_enabled"`
	// ChannelEvents turns events on for requests arriving through the named channel (web, app, amp...)
	// even when the request itself didn't ask for them.
	ChannelEvents      map[string]bool `mapstructure:"channel_events" json:"channel_events"`
	DebugAllow         bool            `mapstructure:"debug_allow" json:"debug_allow"`
	TruncateTargetAttr int             `mapstructure:"truncate_target_attr" json:"truncate_target_attr"`
	CacheTTL           DefaultTTLs     `mapstructure:"cache_ttl" json:"cache_ttl"`
}

// EventsEnabledForChannel reports whether the account enabled events for the channel.
func (a *Account) EventsEnabledForChannel(channel string) bool {
	if channel == "" {
		return false
	}
	return a.ChannelEvents[channel]
}
