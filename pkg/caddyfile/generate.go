package caddyfile

import (
	"fmt"
	"strings"
	"time"
)

// Route is one service endpoint to publish: requests for
// {Service}.{domain} are proxied to UpstreamHost:UpstreamPort.
type Route struct {
	Service      string
	UpstreamHost string
	UpstreamPort int
}

// Options are the per-run routing options shared by all routes.
type Options struct {
	// Domain is the base domain; hostnames are {service}.{Domain}.
	Domain string

	// EnableTLS emits internal-CA TLS for every site. When false no TLS
	// directive appears and auto-HTTPS is switched off globally.
	EnableTLS bool

	// CORSOrigins are the allowed origins. Empty means the permissive
	// local development set.
	CORSOrigins []string

	// Active health check parameters for every upstream.
	HealthPath     string
	HealthInterval time.Duration
	HealthTimeout  time.Duration
	HealthRetries  int

	// GatewayService, when set, additionally routes the bare base
	// domain to that service's upstream.
	GatewayService string
}

// Default routing options
const (
	DefaultDomain         = "local.dev"
	DefaultHealthPath     = "/health"
	DefaultHealthInterval = 10 * time.Second
	DefaultHealthTimeout  = 5 * time.Second
	DefaultHealthRetries  = 3
)

// defaultCORSOrigins is the permissive local-development set used when
// no origins are configured.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
}

func (o Options) withDefaults() Options {
	if o.Domain == "" {
		o.Domain = DefaultDomain
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = defaultCORSOrigins
	}
	if o.HealthPath == "" {
		o.HealthPath = DefaultHealthPath
	}
	if o.HealthInterval == 0 {
		o.HealthInterval = DefaultHealthInterval
	}
	if o.HealthTimeout == 0 {
		o.HealthTimeout = DefaultHealthTimeout
	}
	if o.HealthRetries == 0 {
		o.HealthRetries = DefaultHealthRetries
	}
	return o
}

// Generate renders the full proxy configuration for the given routes.
// Route order is preserved, so the same input yields byte-identical
// output. Pure: writing the result and reloading the proxy are the
// caller's responsibility.
func Generate(routes []Route, opts Options) string {
	opts = opts.withDefaults()

	doc := &Document{}
	doc.Blocks = append(doc.Blocks, globalBlock(opts))

	for _, route := range routes {
		doc.Blocks = append(doc.Blocks, siteBlock(route, opts))
	}

	if opts.GatewayService != "" {
		for _, route := range routes {
			if route.Service == opts.GatewayService {
				doc.Blocks = append(doc.Blocks, gatewayBlock(route, opts))
				break
			}
		}
	}

	return doc.Render()
}

func globalBlock(opts Options) Block {
	block := Block{}
	if opts.EnableTLS {
		block.Directives = append(block.Directives, Directive{Name: "local_certs"})
	} else {
		block.Directives = append(block.Directives, Directive{Name: "auto_https", Args: []string{"off"}})
	}
	return block
}

func siteBlock(route Route, opts Options) Block {
	hostname := fmt.Sprintf("%s.%s", route.Service, opts.Domain)
	key := hostname
	if !opts.EnableTLS {
		key = "http://" + hostname
	}

	block := Block{Keys: []string{key}}
	block.Directives = append(block.Directives, reverseProxy(route, opts), corsHeaders(opts))

	if opts.EnableTLS {
		block.Directives = append(block.Directives, Directive{Name: "tls", Args: []string{"internal"}})
	}

	return block
}

// gatewayBlock routes the bare base domain to the designated service.
func gatewayBlock(route Route, opts Options) Block {
	key := opts.Domain
	if !opts.EnableTLS {
		key = "http://" + opts.Domain
	}

	block := Block{Keys: []string{key}}
	block.Directives = append(block.Directives, reverseProxy(route, opts))

	if opts.EnableTLS {
		block.Directives = append(block.Directives, Directive{Name: "tls", Args: []string{"internal"}})
	}

	return block
}

func reverseProxy(route Route, opts Options) Directive {
	upstream := fmt.Sprintf("%s:%d", route.UpstreamHost, route.UpstreamPort)

	return Directive{
		Name: "reverse_proxy",
		Args: []string{upstream},
		Children: []Directive{
			{Name: "health_uri", Args: []string{opts.HealthPath}},
			{Name: "health_interval", Args: []string{opts.HealthInterval.String()}},
			{Name: "health_timeout", Args: []string{opts.HealthTimeout.String()}},
			{Name: "lb_retries", Args: []string{fmt.Sprintf("%d", opts.HealthRetries)}},
		},
	}
}

func corsHeaders(opts Options) Directive {
	return Directive{
		Name: "header",
		Children: []Directive{
			{Name: "Access-Control-Allow-Origin", Args: []string{strings.Join(opts.CORSOrigins, ", ")}},
			{Name: "Access-Control-Allow-Methods", Args: []string{"GET, POST, PUT, PATCH, DELETE, OPTIONS"}},
			{Name: "Access-Control-Allow-Headers", Args: []string{"Content-Type, Authorization"}},
			{Name: "Access-Control-Allow-Credentials", Args: []string{"true"}},
		},
	}
}
