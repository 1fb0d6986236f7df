package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/logging"
)

// CreateTransferClient creates the client used for streaming uploads and
// downloads. It shares proxy handling with ConfigureHTTPClient but has no
// overall timeout: a transfer is bounded by its task's context instead.
//
// HTTP/2 is attempted unless DISABLE_HTTP2=true is set or a proxy is in use
// (proxies commonly break multiplexed streams mid-transfer); FORCE_HTTP2=true
// overrides the proxy rule.
func CreateTransferClient(cfg config.ProxyConfig, logger *logging.Logger) (*nethttp.Client, error) {
	baseClient, err := ConfigureHTTPClient(config.ProxyConfig{
		Mode:     cfg.Mode,
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		NoProxy:  cfg.NoProxy,
	}, "", logger)
	if err != nil {
		return nil, err
	}

	tr, ok := baseClient.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a Negotiator; leave it as configured.
		baseClient.Timeout = 0
		return baseClient, nil
	}

	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || (cfg.ProxyActive(envHasProxy()) && os.Getenv("FORCE_HTTP2") != "true") {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	baseClient.Transport = tr
	baseClient.Timeout = 0

	return baseClient, nil
}

func envHasProxy() bool {
	return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
		os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
}
