package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ProxyMode selects how the harvester reaches the search provider.
type ProxyMode string

const (
	// ProxyFree tries the free proxy pool first, then the Tor relay.
	ProxyFree ProxyMode = "free"
	// ProxyTor uses only the local Tor relay.
	ProxyTor ProxyMode = "tor"
	// ProxyNone connects directly without a proxy.
	ProxyNone ProxyMode = "none"
)

// ProxyConfig holds settings for proxy acquisition.
type ProxyConfig struct {
	HTTPConfig `yaml:",inline"`

	// Mode is one of free, tor, or none (default free).
	Mode ProxyMode `json:"mode" yaml:"mode"`

	// ListURL is the free proxy list to fetch. HTML tables and plain
	// host:port lists are both accepted.
	ListURL string `json:"list_url" yaml:"list_url"`

	// CheckURL is fetched through each candidate to verify it works.
	CheckURL string `json:"check_url" yaml:"check_url"`

	// ProbeTimeout bounds a single candidate check (default 8s).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout"`

	// ProbeLimit is the number of candidates probed per setup (default 40).
	ProbeLimit int `json:"probe_limit" yaml:"probe_limit"`

	// ProbeConcurrency is the number of probes in flight (default 8).
	ProbeConcurrency int `json:"probe_concurrency" yaml:"probe_concurrency"`

	// TorAddr is the SOCKS5 relay address (default 127.0.0.1:9050).
	TorAddr string `json:"tor_addr" yaml:"tor_addr"`

	// DisableTor skips the Tor fallback when the free pool fails.
	DisableTor bool `json:"disable_tor" yaml:"disable_tor"`
}

// HarvestConfig holds settings for one harvest run beyond the search request.
type HarvestConfig struct {
	// Provider names the search backend: arxiv, google_scholar, openalex, or semantic_scholar.
	Provider string `json:"provider" yaml:"provider"`

	// ProviderURL replaces the provider's public endpoint, for mirrors.
	ProviderURL string `json:"provider_url,omitempty" yaml:"provider_url,omitempty"`

	// ItemDelayMin and ItemDelayMax bound the pause after every yielded item (default 2s-5s).
	ItemDelayMin time.Duration `json:"item_delay_min" yaml:"item_delay_min"`
	ItemDelayMax time.Duration `json:"item_delay_max" yaml:"item_delay_max"`

	// RetryDelayMin and RetryDelayMax bound the pause before a retry (default 5s-15s).
	RetryDelayMin time.Duration `json:"retry_delay_min" yaml:"retry_delay_min"`
	RetryDelayMax time.Duration `json:"retry_delay_max" yaml:"retry_delay_max"`
}
