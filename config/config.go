package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	validator "github.com/asaskevich/govalidator"
	"github.com/golang/glog"
	"github.com/prebid/auction-core/errortypes"
	"github.com/spf13/viper"
)

// Configuration specifies the static application config.
type Configuration struct {
	ExternalURL string `mapstructure:"external_url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	AdminPort   int    `mapstructure:"admin_port"`

	// StatusResponse is the body written by /status. An empty value answers 204.
	StatusResponse string `mapstructure:"status_response"`

	// GenerateBidID replaces bidder-supplied bid ids shorter than MinTrustedBidIDLength.
	GenerateBidID        bool `mapstructure:"generate_bid_id"`
	// GenerateRequestBidID sets bidresponse.seatbid[i].bid[j].ext.prebid.bidid on every bid.
	GenerateRequestBidID bool `mapstructure:"generate_request_bid_id"`

	CacheURL          Cache             `mapstructure:"cache"`
	ExtCacheURL       ExternalCache     `mapstructure:"external_cache"`
	Auction           Auction           `mapstructure:"auction"`
	AccountDefaults   Account           `mapstructure:"account_defaults"`
	Events            Events            `mapstructure:"events"`
	DeprecatedBidders map[string]string `mapstructure:"deprecated_bidders"`
	StoredVideo       StoredVideo       `mapstructure:"stored_video"`
	Metrics           Metrics           `mapstructure:"metrics"`
}

// Cache configures the Prebid Cache endpoint used to store bids.
type Cache struct {
	Scheme string `mapstructure:"scheme"`
	Host   string `mapstructure:"host"`
	Path   string `mapstructure:"path"`

	// A static timeout here is not ideal. This is a hack because we have some aggressive timelines for OpenRTB support.
	// This value specifies how much time the prebid server host expects a call to prebid cache to take.
	ExpectedTimeMillis int `mapstructure:"expected_millis"`

	// DefaultTTLs are the host level cache TTLs, applied when nothing more specific is known.
	DefaultTTLs DefaultTTLs `mapstructure:"default_ttl_seconds"`
}

// ExternalCache holds the cache location advertised to clients in targeting and cache asset urls.
type ExternalCache struct {
	Scheme string `mapstructure:"scheme"`
	Host   string `mapstructure:"host"`
	Path   string `mapstructure:"path"`
}

// DefaultTTLs holds cache TTLs in seconds, per media type.
type DefaultTTLs struct {
	Banner int `mapstructure:"banner" json:"banner"`
	Video  int `mapstructure:"video" json:"video"`
	Native int `mapstructure:"native" json:"native"`
	Audio  int `mapstructure:"audio" json:"audio"`
}

// Auction holds the host defaults for response resolution.
type Auction struct {
	CacheWinningBidsOnly bool `mapstructure:"cache_winning_bids_only"`
}

// Events configures server side event tracking.
type Events struct {
	// VASTModifyingBidders may have their VAST XML rewritten to carry an impression tracker.
	VASTModifyingBidders []string `mapstructure:"vast_modifying_bidders"`
}

// IsModifyingVASTAllowed returns true if the bidder's VAST XML may be rewritten.
func (e Events) IsModifyingVASTAllowed(bidder string) bool {
	for _, allowed := range e.VASTModifyingBidders {
		if allowed == bidder {
			return true
		}
	}
	return false
}

// GetBaseURL returns the Prebid Cache base url. Allows for protocol relative URL if scheme is empty.
func (cfg *Cache) GetBaseURL() string {
	scheme := strings.ToLower(cfg.Scheme)
	if strings.Contains(scheme, "https") {
		return fmt.Sprintf("https://%s", cfg.Host)
	}
	if strings.Contains(scheme, "http") {
		return fmt.Sprintf("http://%s", cfg.Host)
	}
	return fmt.Sprintf("//%s", cfg.Host)
}

// GetPutURL returns the url bids are POSTed to.
func (cfg *Cache) GetPutURL() string {
	if cfg.Path == "" {
		return cfg.GetBaseURL() + "/cache"
	}
	return cfg.GetBaseURL() + "/" + strings.TrimPrefix(cfg.Path, "/")
}

func (cfg *Configuration) validate() []error {
	var errs []error
	errs = cfg.CacheURL.validate(errs)
	errs = cfg.ExtCacheURL.validate(errs)
	errs = cfg.StoredVideo.validate(errs)
	errs = cfg.Metrics.validate(errs)
	if cfg.ExternalURL != "" && !validator.IsURL(cfg.ExternalURL) {
		errs = append(errs, fmt.Errorf("external_url %q is not a valid url", cfg.ExternalURL))
	}
	if cfg.AccountDefaults.TruncateTargetAttr < 0 {
		errs = append(errs, errors.New("account_defaults.truncate_target_attr must be non-negative"))
	}
	for oldName := range cfg.DeprecatedBidders {
		if oldName == "prebid" || oldName == "cache" {
			errs = append(errs, fmt.Errorf("deprecated_bidders.%s uses a reserved bidder name", oldName))
		}
	}
	return errs
}

func (cfg *Cache) validate(errs []error) []error {
	if cfg.Host == "" {
		return errs
	}
	if !validator.IsHost(hostname(cfg.Host)) {
		errs = append(errs, fmt.Errorf("cache.host %q must be a valid host", cfg.Host))
	}
	if cfg.Scheme != "" && cfg.Scheme != "http" && cfg.Scheme != "https" {
		errs = append(errs, fmt.Errorf("cache.scheme must be http or https, got %q", cfg.Scheme))
	}
	if cfg.ExpectedTimeMillis < 0 {
		errs = append(errs, errors.New("cache.expected_millis must be non-negative"))
	}
	return cfg.DefaultTTLs.validate("cache.default_ttl_seconds", errs)
}

func (cfg *ExternalCache) validate(errs []error) []error {
	if cfg.Host == "" {
		return errs
	}
	if !validator.IsHost(hostname(cfg.Host)) {
		errs = append(errs, fmt.Errorf("external_cache.host %q must be a valid host", cfg.Host))
	}
	if cfg.Path != "" && !strings.HasPrefix(cfg.Path, "/") {
		errs = append(errs, fmt.Errorf("external_cache.path %q must begin with /", cfg.Path))
	}
	return errs
}

func (ttls DefaultTTLs) validate(prefix string, errs []error) []error {
	if ttls.Banner < 0 || ttls.Video < 0 || ttls.Native < 0 || ttls.Audio < 0 {
		errs = append(errs, fmt.Errorf("%s values must be non-negative", prefix))
	}
	return errs
}

// hostname strips an optional port so host:port pairs pass IsHost.
func hostname(host string) string {
	if u, err := url.Parse("//" + host); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return host
}

// New uses viper to get our server configurations.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %v", err)
	}
	glog.Infof("Resolved configuration: external_url=%s port=%d admin_port=%d cache.host=%s stored_video.backend=%s",
		c.ExternalURL, c.Port, c.AdminPort, c.CacheURL.Host, c.StoredVideo.Backend)
	if errs := c.validate(); len(errs) > 0 {
		return &c, errortypes.NewAggregateErrors("validation errors", errs)
	}
	return &c, nil
}

// SetupViper sets the default config values and env bindings used by New.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/config")
	}

	v.SetDefault("external_url", "http://localhost:8000")
	v.SetDefault("host", "")
	v.SetDefault("port", 8000)
	v.SetDefault("admin_port", 6060)
	v.SetDefault("status_response", "")
	v.SetDefault("generate_bid_id", false)
	v.SetDefault("generate_request_bid_id", false)

	v.SetDefault("cache.scheme", "")
	v.SetDefault("cache.host", "")
	v.SetDefault("cache.path", "/cache")
	v.SetDefault("cache.expected_millis", 10)
	v.SetDefault("cache.default_ttl_seconds.banner", 300)
	v.SetDefault("cache.default_ttl_seconds.video", 1500)
	v.SetDefault("cache.default_ttl_seconds.native", 300)
	v.SetDefault("cache.default_ttl_seconds.audio", 300)
	v.SetDefault("external_cache.scheme", "")
	v.SetDefault("external_cache.host", "")
	v.SetDefault("external_cache.path", "")

	v.SetDefault("auction.cache_winning_bids_only", false)

	v.SetDefault("account_defaults.id", "")
	v.SetDefault("account_defaults.events_enabled", false)
	v.SetDefault("account_defaults.debug_allow", true)
	v.SetDefault("account_defaults.truncate_target_attr", 20)
	v.SetDefault("account_defaults.cache_ttl.banner", 0)
	v.SetDefault("account_defaults.cache_ttl.video", 0)
	v.SetDefault("account_defaults.cache_ttl.native", 0)
	v.SetDefault("account_defaults.cache_ttl.audio", 0)

	v.SetDefault("events.vast_modifying_bidders", []string{})
	v.SetDefault("deprecated_bidders", map[string]string{})

	v.SetDefault("stored_video.backend", "none")
	v.SetDefault("stored_video.timeout_ms", 50)
	v.SetDefault("stored_video.postgres.dbname", "")
	v.SetDefault("stored_video.postgres.host", "")
	v.SetDefault("stored_video.postgres.port", 0)
	v.SetDefault("stored_video.postgres.user", "")
	v.SetDefault("stored_video.postgres.password", "")
	v.SetDefault("stored_video.postgres.query", "SELECT id, impData FROM stored_imps WHERE id in %ID_LIST%")
	v.SetDefault("stored_video.redis.addr", "")
	v.SetDefault("stored_video.redis.password", "")
	v.SetDefault("stored_video.redis.db", 0)
	v.SetDefault("stored_video.redis.key_prefix", "stored_imp:")
	v.SetDefault("stored_video.http.endpoint", "")
	v.SetDefault("stored_video.in_memory_cache.size_bytes", 0)
	v.SetDefault("stored_video.in_memory_cache.ttl_seconds", 0)

	v.SetDefault("metrics.influxdb.host", "")
	v.SetDefault("metrics.influxdb.database", "")
	v.SetDefault("metrics.influxdb.measurement", "prebid")
	v.SetDefault("metrics.influxdb.username", "")
	v.SetDefault("metrics.influxdb.password", "")
	v.SetDefault("metrics.influxdb.align_timestamps", false)
	v.SetDefault("metrics.influxdb.metric_send_interval", 20)
	v.SetDefault("metrics.prometheus.port", 0)
	v.SetDefault("metrics.prometheus.namespace", "")
	v.SetDefault("metrics.prometheus.subsystem", "")

	v.SetEnvPrefix("PBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		if err := v.ReadInConfig(); err != nil {
			glog.Warningf("No config file read, using defaults and environment: %v", err)
		}
	}
}
