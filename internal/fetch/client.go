package fetch

import (
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/gemstall/gemstall/internal/version"
)

// Shared HTTP transport tunings: long-lived connections with centralized
// timeouts, reused by every downloader.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   100,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// headerTransport stamps the fixed identifying headers onto every outgoing
// request. Gem servers use them for observability only; they carry no
// cache or control semantics.
type headerTransport struct {
	base     http.RoundTripper
	command  string
	platform string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Gemstall-Platform", t.platform)
	req.Header.Set("X-Gemstall-Command", t.command)
	return t.base.RoundTrip(req)
}

// NewClient returns the shared http.Client used for all gem server
// requests. command names the invoking operation (e.g. "install") and is
// reported to the server alongside the host platform.
func NewClient(command string, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &headerTransport{
			base:     defaultTransport.Clone(),
			command:  command,
			platform: runtime.GOOS + "/" + runtime.GOARCH,
		},
	}
}
