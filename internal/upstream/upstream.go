// Package upstream translates the FLAGD_TARGET_URI / host / port configuration
// contract into a concrete dial endpoint and request authority, following
// the same host/port/envoy conventions as the flagd client libraries.
package upstream

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matt-riley/flagdgo/internal/config"
)

const (
	defaultInProcessPort = 8015
	defaultRPCPort       = 8013
)

// Endpoint is the resolved dial target for a sync or resolver connection.
type Endpoint struct {
	// Network is "tcp" or "unix".
	Network string
	// Address is the dial address: "host:port" for tcp, a filesystem path
	// for unix.
	Address string
	// Authority is the value used for the gRPC :authority pseudo-header /
	// HTTP Host header, letting envoy-style targets route on a logical
	// service name distinct from the dial address.
	Authority string
	// TLS indicates the endpoint should be dialed over TLS.
	TLS bool
}

// Build resolves cfg's target configuration into an Endpoint. resolver
// selects the in-process-vs-RPC default port used when neither a scheme nor
// an explicit port is given.
func Build(cfg config.Config) (Endpoint, error) {
	target := strings.TrimSpace(cfg.TargetURI)

	if cfg.SocketPath != "" {
		return Endpoint{Network: "unix", Address: cfg.SocketPath}, nil
	}

	if target == "" {
		return hostPort(cfg, cfg.Host, cfg.Port)
	}

	switch {
	case strings.HasPrefix(target, "envoy://"):
		return envoyTarget(cfg, target)
	case strings.HasPrefix(target, "http://"):
		return schemeTarget(cfg, target, false)
	case strings.HasPrefix(target, "https://"):
		return schemeTarget(cfg, target, true)
	case strings.HasPrefix(target, "unix://"):
		return Endpoint{Network: "unix", Address: strings.TrimPrefix(target, "unix://")}, nil
	default:
		return bareTarget(cfg, target)
	}
}

func schemeTarget(cfg config.Config, target string, tls bool) (Endpoint, error) {
	hostport := strings.TrimPrefix(strings.TrimPrefix(target, "https://"), "http://")
	hostport = strings.TrimSuffix(hostport, "/")
	if hostport == "" {
		return Endpoint{}, fmt.Errorf("upstream: empty host in target %q", target)
	}
	return Endpoint{
		Network:   "tcp",
		Address:   hostport,
		Authority: hostport,
		TLS:       tls || cfg.TLS,
	}, nil
}

// envoyTarget handles "envoy://host:port/service": the dial address is
// http(s)://host:port, and the logical service name becomes the authority
// used for request routing, cooperating with L7 service mesh setups that
// route on :authority rather than the physical address.
func envoyTarget(cfg config.Config, target string) (Endpoint, error) {
	rest := strings.TrimPrefix(target, "envoy://")
	hostport, service, found := strings.Cut(rest, "/")
	if !found || hostport == "" || service == "" {
		return Endpoint{}, fmt.Errorf("upstream: malformed envoy target %q, want envoy://host:port/service", target)
	}
	return Endpoint{
		Network:   "tcp",
		Address:   hostport,
		Authority: service,
		TLS:       cfg.TLS,
	}, nil
}

// bareTarget handles "host:port" and bare "host" forms, applying the
// resolver-appropriate default port when one isn't given explicitly.
func bareTarget(cfg config.Config, target string) (Endpoint, error) {
	if host, port, ok := strings.Cut(target, ":"); ok {
		if _, err := strconv.Atoi(port); err != nil {
			return Endpoint{}, fmt.Errorf("upstream: invalid port in target %q: %w", target, err)
		}
		return Endpoint{
			Network:   "tcp",
			Address:   host + ":" + port,
			Authority: host,
			TLS:       cfg.TLS,
		}, nil
	}
	return hostPort(cfg, target, 0)
}

func hostPort(cfg config.Config, host string, port int) (Endpoint, error) {
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		if cfg.Resolver == config.ResolverInProcess {
			port = defaultInProcessPort
		} else {
			port = defaultRPCPort
		}
	}
	return Endpoint{
		Network:   "tcp",
		Address:   host + ":" + strconv.Itoa(port),
		Authority: host,
		TLS:       cfg.TLS,
	}, nil
}

// DialTarget renders e as the string form grpc.NewClient / net.Dial expect:
// "host:port" for tcp, "unix:<path>" for unix domain sockets.
func (e Endpoint) DialTarget() string {
	if e.Network == "unix" {
		return "unix:" + e.Address
	}
	return e.Address
}
