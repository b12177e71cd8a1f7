package fetcher

import (
	"crypto/tls"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// StealthConfig configures fingerprint overrides injected into browser pages.
type StealthConfig struct {
	Language            string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        int
}

// DefaultStealthConfig mimics a Windows desktop Chrome, matching the default user agent.
func DefaultStealthConfig() *StealthConfig {
	return &StealthConfig{
		Language:            "en-US",
		Platform:            "Win32",
		HardwareConcurrency: 4 + rand.Intn(13), // 4-16 cores
		DeviceMemory:        8,
	}
}

// StealthJS returns JavaScript evaluated on every new document before page scripts.
func (sc *StealthConfig) StealthJS() string {
	return fmt.Sprintf(`
Object.defineProperty(navigator, 'platform', { get: () => '%s' });
Object.defineProperty(navigator, 'language', { get: () => '%s' });
Object.defineProperty(navigator, 'languages', { get: () => ['%s', 'en'] });
Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d });
Object.defineProperty(navigator, 'deviceMemory', { get: () => %d });
Object.defineProperty(navigator, 'webdriver', { get: () => false });

window.chrome = window.chrome || {
	runtime: { onMessage: { addListener: () => {} }, sendMessage: () => {} },
	loadTimes: () => ({}),
	csi: () => ({}),
};

const originalQuery = window.navigator.permissions.query;
window.navigator.permissions.query = (parameters) => (
	parameters.name === 'notifications' ?
		Promise.resolve({ state: Notification.permission }) :
		originalQuery(parameters)
);
`, sc.Platform, sc.Language, sc.Language, sc.HardwareConcurrency, sc.DeviceMemory)
}

// browserHeaders are the request headers a desktop Chrome sends on navigation.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip, deflate, br",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Ch-Ua":                 `"Chromium";v="120", "Not?A_Brand";v="8", "Google Chrome";v="120"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"Windows"`,
}

// TLSTransport is an http.RoundTripper that fills in browser-like headers
// and negotiates TLS with a browser-like cipher suite order.
type TLSTransport struct {
	inner   *http.Transport
	headers map[string]string
}

// NewTLSTransport builds the transport. Extra headers override the defaults.
func NewTLSTransport(extra map[string]string, insecure bool, maxIdle int, idleTimeout time.Duration) *TLSTransport {
	headers := make(map[string]string, len(browserHeaders)+len(extra))
	for k, v := range browserHeaders {
		headers[k] = v
	}
	for k, v := range extra {
		headers[http.CanonicalHeaderKey(k)] = v
	}

	tlsCfg := randomTLSConfig()
	tlsCfg.InsecureSkipVerify = insecure

	return &TLSTransport{
		inner: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:     tlsCfg,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        maxIdle,
			MaxIdleConnsPerHost: max(maxIdle/2, 1),
			IdleConnTimeout:     idleTimeout,
			DisableCompression:  true, // decompressReader handles gzip, deflate and br
		},
		headers: headers,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *TLSTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return t.inner.RoundTrip(req)
}

// CloseIdleConnections lets http.Client.CloseIdleConnections reach the inner transport.
func (t *TLSTransport) CloseIdleConnections() { t.inner.CloseIdleConnections() }

// randomTLSConfig picks a Chrome-like or Firefox-like cipher order.
func randomTLSConfig() *tls.Config {
	cipherSuites := [][]uint16{
		{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
		{
			tls.TLS_AES_128_GCM_SHA256,
			tls.TLS_CHACHA20_POLY1305_SHA256,
			tls.TLS_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		},
	}

	return &tls.Config{
		CipherSuites: cipherSuites[rand.Intn(len(cipherSuites))],
		MinVersion:   tls.VersionTLS12,
		MaxVersion:   tls.VersionTLS13,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
			tls.CurveP384,
		},
	}
}
