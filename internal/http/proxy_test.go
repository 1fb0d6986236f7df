package http

import (
	nethttp "net/http"
	"net/url"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/easyfiletransfer/eft/internal/config"
	"github.com/easyfiletransfer/eft/internal/logging"
)

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name       string
		noProxy    string
		target     string
		wantBypass bool
	}{
		{"empty list always proxies", "", "https://files.example.com/", false},
		{"wildcard domain", "*.example.com", "https://files.example.com/", true},
		{"exact domain matches subdomain", "example.com", "https://files.example.com/", true},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3:8080/", true},
		{"non-matching host", "*.internal.corp,10.0.0.0/8", "https://files.example.com/", false},
		{"multiple patterns", "*.example.com, 192.168.0.0/16", "http://192.168.1.100/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxyFunc := proxyFuncWithBypass(proxyURL, tt.noProxy, logging.Nop())
			req, _ := nethttp.NewRequest("GET", tt.target, nil)
			result, err := proxyFunc(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBypass && result != nil {
				t.Errorf("expected bypass (nil) for %s, got %v", tt.target, result)
			}
			if !tt.wantBypass {
				if result == nil {
					t.Fatalf("expected proxy for %s, got nil (bypass)", tt.target)
				}
				if result.Host != "proxy.corp:8080" {
					t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
				}
			}
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	u := buildProxyURL(config.ProxyConfig{Host: "proxy.local"})
	if u.Host != "proxy.local:8080" {
		t.Errorf("expected default port 8080, got %s", u.Host)
	}
	if u.User != nil {
		t.Error("no credentials expected without user and password")
	}

	u = buildProxyURL(config.ProxyConfig{Host: "proxy.local", Port: 3128, User: "bob"})
	if u.User != nil {
		t.Error("user without password must not be embedded")
	}

	u = buildProxyURL(config.ProxyConfig{Host: "proxy.local", Port: 3128, User: "bob", Password: "pw"})
	if u.User == nil || u.User.Username() != "bob" {
		t.Errorf("expected embedded user bob, got %v", u.User)
	}
}

func TestConfigureHTTPClientModes(t *testing.T) {
	client, err := ConfigureHTTPClient(config.ProxyConfig{}, "", nil)
	if err != nil {
		t.Fatalf("no-proxy: %v", err)
	}
	if tr := client.Transport.(*nethttp.Transport); tr.Proxy != nil {
		t.Error("no-proxy mode must not set a proxy func")
	}

	client, err = ConfigureHTTPClient(config.ProxyConfig{Mode: "ntlm", Host: "proxy.local"}, "", nil)
	if err != nil {
		t.Fatalf("ntlm: %v", err)
	}
	if _, ok := client.Transport.(ntlmssp.Negotiator); !ok {
		t.Errorf("ntlm mode should wrap the transport, got %T", client.Transport)
	}

	client, err = ConfigureHTTPClient(config.ProxyConfig{Mode: "basic"}, "", nil)
	if err != nil {
		t.Fatalf("basic without host: %v", err)
	}
	if tr := client.Transport.(*nethttp.Transport); tr.Proxy != nil {
		t.Error("basic mode without host should fall back to a direct connection")
	}

	if _, err := ConfigureHTTPClient(config.ProxyConfig{Mode: "socks9"}, "", nil); err == nil {
		t.Error("expected error for unsupported proxy mode")
	}
}

func TestCreateTransferClientHasNoTimeout(t *testing.T) {
	client, err := CreateTransferClient(config.ProxyConfig{}, nil)
	if err != nil {
		t.Fatalf("CreateTransferClient failed: %v", err)
	}
	if client.Timeout != 0 {
		t.Errorf("transfer client must not have an overall timeout, got %v", client.Timeout)
	}
	tr := client.Transport.(*nethttp.Transport)
	if !tr.DisableCompression {
		t.Error("expected compression disabled for transfers")
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		cfg  config.ProxyConfig
		want bool
	}{
		{config.ProxyConfig{Mode: "basic", User: "bob"}, true},
		{config.ProxyConfig{Mode: "ntlm", User: "bob"}, true},
		{config.ProxyConfig{Mode: "basic", User: "bob", Password: "pw"}, false},
		{config.ProxyConfig{Mode: "system", User: "bob"}, false},
		{config.ProxyConfig{Mode: "basic"}, false},
	}
	for _, tt := range tests {
		if got := NeedsProxyPassword(tt.cfg); got != tt.want {
			t.Errorf("NeedsProxyPassword(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}
