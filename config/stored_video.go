package config

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
)

// StoredVideo configures where stored imps are loaded from when a request asks to echo video attributes.
type StoredVideo struct {
	// Backend is one of "none", "postgres", "redis" or "http".
	Backend   string `mapstructure:"backend"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	// Postgres should be populated if Stored Imps should be loaded from a Postgres database.
	Postgres PostgresConfig `mapstructure:"postgres"`
	// Redis should be populated if Stored Imps should be loaded with MGET from Redis.
	Redis RedisConfig `mapstructure:"redis"`
	// HTTP should be populated if Stored Imps should be loaded from a remote endpoint over HTTP.
	HTTP HTTPFetcherConfig `mapstructure:"http"`
	// InMemoryCache fronts the backend when its size is positive.
	InMemoryCache InMemoryCache `mapstructure:"in_memory_cache"`
}

type HTTPFetcherConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type RedisConfig struct {
	// host:port address.
	Addr string `mapstructure:"addr"`
	// Optional password. Must match the password specified in the
	// requirepass server configuration option.
	Password string `mapstructure:"password"`
	// Database to be selected after connecting to the server.
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type InMemoryCache struct {
	// Size of the cache before we evict objects
	Size int `mapstructure:"size_bytes"`
	// TTL of the cache entries
	TTL int `mapstructure:"ttl_seconds"`
}

// PostgresConfig configures the Postgres connection for Stored Imps
type PostgresConfig struct {
	Database string `mapstructure:"dbname"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	// QueryTemplate is the Postgres Query which can be used to fetch stored imps from the database.
	// It is a Template, rather than a full Query, because a single auction may reference multiple Stored Imps.
	//
	// In the simplest case, this could be something like:
	//   SELECT id, impData FROM stored_imps WHERE id in %ID_LIST%
	//
	// The MakeQuery function will transform this query into:
	//   SELECT id, impData FROM stored_imps WHERE id in ($1, $2, $3, ...)
	QueryTemplate string `mapstructure:"query"`
}

// ConnString returns a lib/pq connection string.
func (cfg *PostgresConfig) ConnString() string {
	buffer := bytes.NewBuffer(nil)

	if cfg.Host != "" {
		buffer.WriteString("host=")
		buffer.WriteString(cfg.Host)
		buffer.WriteString(" ")
	}

	if cfg.Port > 0 {
		buffer.WriteString("port=")
		buffer.WriteString(strconv.Itoa(cfg.Port))
		buffer.WriteString(" ")
	}

	if cfg.Username != "" {
		buffer.WriteString("user=")
		buffer.WriteString(cfg.Username)
		buffer.WriteString(" ")
	}

	if cfg.Password != "" {
		buffer.WriteString("password=")
		buffer.WriteString(cfg.Password)
		buffer.WriteString(" ")
	}

	if cfg.Database != "" {
		buffer.WriteString("dbname=")
		buffer.WriteString(cfg.Database)
		buffer.WriteString(" ")
	}

	buffer.WriteString("sslmode=disable")
	return buffer.String()
}

// MakeQuery builds a query which can fetch numIDs Stored Imps.
func (cfg *PostgresConfig) MakeQuery(numIDs int) string {
	if numIDs < 0 {
		glog.Errorf("MakeQuery() called with %d ids. This should never happen.", numIDs)
		numIDs = 0
	}
	return strings.Replace(cfg.QueryTemplate, "%ID_LIST%", makeIdList(numIDs), -1)
}

func makeIdList(numIDs int) string {
	// Any empty list like "()" is illegal in Postgres. A (NULL) is the next best thing,
	// though, since `id IN (NULL)` is valid for all "id" column types, and evaluates to an empty set.
	if numIDs == 0 {
		return "(NULL)"
	}

	final := bytes.NewBuffer(make([]byte, 0, 2+4*numIDs))
	final.WriteString("(")
	for i := 1; i < numIDs; i++ {
		final.WriteString("$")
		final.WriteString(strconv.Itoa(i))
		final.WriteString(", ")
	}
	final.WriteString("$")
	final.WriteString(strconv.Itoa(numIDs))
	final.WriteString(")")

	return final.String()
}

func (cfg *StoredVideo) validate(errs []error) []error {
	switch cfg.Backend {
	case "", "none":
	case "postgres":
		if !strings.Contains(cfg.Postgres.QueryTemplate, "%ID_LIST%") {
			errs = append(errs, errors.New("stored_video.postgres.query must contain %ID_LIST%"))
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			errs = append(errs, errors.New("stored_video.redis.addr must be set when the redis backend is used"))
		}
	case "http":
		if !isValidURL(cfg.HTTP.Endpoint) {
			errs = append(errs, fmt.Errorf("stored_video.http.endpoint %q must be a valid url", cfg.HTTP.Endpoint))
		}
	default:
		errs = append(errs, fmt.Errorf("stored_video.backend %q is not one of none, postgres, redis, http", cfg.Backend))
	}
	if cfg.TimeoutMS <= 0 {
		errs = append(errs, errors.New("stored_video.timeout_ms must be positive"))
	}
	if cfg.InMemoryCache.Size < 0 || cfg.InMemoryCache.TTL < 0 {
		errs = append(errs, errors.New("stored_video.in_memory_cache values must be non-negative"))
	}
	return errs
}
