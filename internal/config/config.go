// Package config loads resolver configuration from environment variables.
//
// Every option has a FLAGD_* environment variable and a default, matching the
// flagd client configuration contract. Values supplied through functional
// options at construction time always win over the environment; Load only
// establishes the environment-derived baseline.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ResolverType selects which backend the provider resolves flags through.
type ResolverType string

const (
	ResolverRPC       ResolverType = "RPC"
	ResolverREST      ResolverType = "REST"
	ResolverInProcess ResolverType = "IN-PROCESS"
	ResolverFile      ResolverType = "FILE"
)

// CacheType selects the resolution cache's eviction policy.
type CacheType string

const (
	CacheLRU      CacheType = "lru"
	CacheMem      CacheType = "mem"
	CacheDisabled CacheType = "disabled"
)

const (
	defaultHost                = "localhost"
	defaultPortRPC             = 8013
	defaultPortSync            = 8015
	defaultDeadline            = 500 * time.Millisecond
	defaultStreamDeadline      = 600 * time.Second
	defaultRetryBackoff        = time.Second
	defaultRetryBackoffMax     = 120 * time.Second
	defaultRetryGracePeriod    = 5
	defaultOfflinePollInterval = 5 * time.Second
	defaultMaxCacheSize        = 1000
	defaultCacheTTL            = 60 * time.Second
	defaultLogLevel            = "info"
)

// Config holds the runtime configuration for a flagdgo provider instance.
type Config struct {
	Host       string
	Port       int
	TargetURI  string
	Resolver   ResolverType
	TLS        bool
	CertPath   string
	SocketPath string

	Deadline       time.Duration
	StreamDeadline time.Duration

	RetryBackoff     time.Duration
	RetryBackoffMax  time.Duration
	RetryGracePeriod int

	Selector string

	SourceConfigurationPath string
	OfflinePollInterval     time.Duration

	Cache        CacheType
	MaxCacheSize int
	CacheTTL     time.Duration

	LogLevel string
}

// Load reads configuration from FLAGD_* environment variables, applying
// defaults where a variable is absent. The returned Config has a port
// default appropriate to the resolver type (8015 for IN-PROCESS sync,
// 8013 otherwise) unless FLAGD_PORT is explicitly set.
func Load() (Config, error) {
	resolver := ResolverType(strings.ToUpper(envOrDefault("FLAGD_RESOLVER", string(ResolverRPC))))
	switch resolver {
	case ResolverRPC, ResolverREST, ResolverInProcess, ResolverFile:
	default:
		return Config{}, fmt.Errorf("FLAGD_RESOLVER: unknown resolver type %q", resolver)
	}

	defaultPort := defaultPortRPC
	if resolver == ResolverInProcess {
		defaultPort = defaultPortSync
	}

	port, err := intOrDefault("FLAGD_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}

	tls, err := boolOrDefault("FLAGD_TLS", false)
	if err != nil {
		return Config{}, err
	}

	deadline, err := durationMillisOrDefault("FLAGD_DEADLINE_MS", defaultDeadline)
	if err != nil {
		return Config{}, err
	}

	streamDeadline, err := durationMillisOrDefault("FLAGD_STREAM_DEADLINE_MS", defaultStreamDeadline)
	if err != nil {
		return Config{}, err
	}

	retryBackoff, err := durationMillisOrDefault("FLAGD_RETRY_BACKOFF_MS", defaultRetryBackoff)
	if err != nil {
		return Config{}, err
	}

	retryBackoffMax, err := durationMillisOrDefault("FLAGD_RETRY_BACKOFF_MAX_MS", defaultRetryBackoffMax)
	if err != nil {
		return Config{}, err
	}

	retryGracePeriod, err := intOrDefault("FLAGD_RETRY_GRACE_PERIOD", defaultRetryGracePeriod)
	if err != nil {
		return Config{}, err
	}
	if retryGracePeriod < 0 {
		return Config{}, errors.New("FLAGD_RETRY_GRACE_PERIOD must be >= 0")
	}

	offlinePoll, err := durationMillisOrDefault("FLAGD_OFFLINE_POLL_MS", defaultOfflinePollInterval)
	if err != nil {
		return Config{}, err
	}

	cache := CacheType(strings.ToLower(envOrDefault("FLAGD_CACHE", string(CacheLRU))))
	switch cache {
	case CacheLRU, CacheMem, CacheDisabled:
	default:
		return Config{}, fmt.Errorf("FLAGD_CACHE: unknown cache type %q", cache)
	}

	maxCacheSize, err := intOrDefault("FLAGD_MAX_CACHE_SIZE", defaultMaxCacheSize)
	if err != nil {
		return Config{}, err
	}
	if maxCacheSize <= 0 {
		return Config{}, errors.New("FLAGD_MAX_CACHE_SIZE must be > 0")
	}

	cacheTTL, err := durationSecondsOrDefault("FLAGD_CACHE_TTL", defaultCacheTTL)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Host:                    envOrDefault("FLAGD_HOST", defaultHost),
		Port:                    port,
		TargetURI:               os.Getenv("FLAGD_TARGET_URI"),
		Resolver:                resolver,
		TLS:                     tls,
		CertPath:                os.Getenv("FLAGD_SERVER_CERT_PATH"),
		SocketPath:              os.Getenv("FLAGD_SOCKET_PATH"),
		Deadline:                deadline,
		StreamDeadline:          streamDeadline,
		RetryBackoff:            retryBackoff,
		RetryBackoffMax:         retryBackoffMax,
		RetryGracePeriod:        retryGracePeriod,
		Selector:                os.Getenv("FLAGD_SOURCE_SELECTOR"),
		SourceConfigurationPath: os.Getenv("FLAGD_OFFLINE_FLAG_SOURCE_PATH"),
		OfflinePollInterval:     offlinePoll,
		Cache:                   cache,
		MaxCacheSize:            maxCacheSize,
		CacheTTL:                cacheTTL,
		LogLevel:                envOrDefault("FLAGD_LOG_LEVEL", defaultLogLevel),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intOrDefault(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func boolOrDefault(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func durationMillisOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must be >= 0", key)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func durationSecondsOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be > 0", key)
	}
	return time.Duration(n) * time.Second, nil
}
