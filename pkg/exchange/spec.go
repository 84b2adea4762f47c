package exchange

import (
	"time"

	"github.com/betbot/xchange/pkg/nonce"
)

// Specification selects and configures one exchange. Zero-valued fields are
// filled in from the exchange's default specification by Merge.
type Specification struct {
	Name        string
	Description string

	SSLURI    string // authenticated API base
	PublicURI string // public market data base, if different
	Host      string

	APIKey    string
	SecretKey string
	Username  string

	NoncePrecision *nonce.Precision
	Timeout        time.Duration

	// RetryCount is how many times a failed read-only call is repeated.
	// nil takes the adapter default; 0 disables retries.
	RetryCount *int
	ProxyURL   string

	// RateLimit caps requests per second across the exchange. 0 uses the
	// adapter's default.
	RateLimit int

	// Params carries exchange-specific settings.
	Params map[string]string
}

// Merge returns s with every empty field taken from defaults.
func (s Specification) Merge(defaults Specification) Specification {
	out := s
	if out.Name == "" {
		out.Name = defaults.Name
	}
	if out.Description == "" {
		out.Description = defaults.Description
	}
	if out.SSLURI == "" {
		out.SSLURI = defaults.SSLURI
	}
	if out.PublicURI == "" {
		out.PublicURI = defaults.PublicURI
	}
	if out.Host == "" {
		out.Host = defaults.Host
	}
	if out.APIKey == "" {
		out.APIKey = defaults.APIKey
	}
	if out.SecretKey == "" {
		out.SecretKey = defaults.SecretKey
	}
	if out.Username == "" {
		out.Username = defaults.Username
	}
	if out.NoncePrecision == nil {
		out.NoncePrecision = defaults.NoncePrecision
	}
	if out.Timeout == 0 {
		out.Timeout = defaults.Timeout
	}
	if out.RetryCount == nil {
		out.RetryCount = defaults.RetryCount
	}
	if out.ProxyURL == "" {
		out.ProxyURL = defaults.ProxyURL
	}
	if out.RateLimit == 0 {
		out.RateLimit = defaults.RateLimit
	}
	if len(defaults.Params) > 0 {
		merged := make(map[string]string, len(defaults.Params)+len(out.Params))
		for k, v := range defaults.Params {
			merged[k] = v
		}
		for k, v := range out.Params {
			merged[k] = v
		}
		out.Params = merged
	}
	return out
}

// Precision returns the configured nonce precision or fallback.
func (s Specification) Precision(fallback nonce.Precision) nonce.Precision {
	if s.NoncePrecision != nil {
		return *s.NoncePrecision
	}
	return fallback
}

// Retries returns the configured retry count, 0 when unset.
func (s Specification) Retries() int {
	if s.RetryCount == nil || *s.RetryCount < 0 {
		return 0
	}
	return *s.RetryCount
}

// HasCredentials reports whether signed calls can be attempted.
func (s Specification) HasCredentials() bool {
	return s.SecretKey != "" && (s.APIKey != "" || s.Username != "")
}

// PrecisionPtr is a helper for building specifications inline.
func PrecisionPtr(p nonce.Precision) *nonce.Precision {
	return &p
}

func IntPtr(n int) *int {
	return &n
}
