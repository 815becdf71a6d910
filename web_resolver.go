package ddns

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultIPv4Service = "https://4.ipw.cn"
	DefaultIPv6Service = "https://6.ipw.cn"

	// lookupTimeout bounds each echo request, including when the caller passed context.Background
	// and the http client has no timeout of its own.
	lookupTimeout = 10 * time.Second

	maxBodySize = 1 << 10
)

// WebResolver constructs a resolver which asks an external web service for the "public" address.
//
// Each family has its own service, since a dual-stack host would otherwise get
// whichever family the connection happened to use.
// An empty URL selects DefaultIPv4Service or DefaultIPv6Service.
//
// A service must answer "2xx" with the address as the response body.
// Surrounding whitespace is trimmed, but the address itself is not validated.
func WebResolver(v4URL, v6URL string) (Resolver, error) {
	endpoints := defaultEndpoints()
	for family, raw := range map[Family]string{IPv4: v4URL, IPv6: v6URL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: error parsing %s service URL: %w", ErrConfig, family, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%w: %s service URL must be http or https; got %q", ErrConfig, family, raw)
		}
		endpoints[family] = u
	}
	return &webResolver{endpoints: endpoints}, nil
}

func defaultEndpoints() map[Family]*url.URL {
	v4, _ := url.Parse(DefaultIPv4Service)
	v6, _ := url.Parse(DefaultIPv6Service)
	return map[Family]*url.URL{IPv4: v4, IPv6: v6}
}

type webResolver struct {
	httpClient *http.Client
	endpoints  map[Family]*url.URL
}

// Resolve implements ddns.Resolver.
//
// Every failure wraps ErrAddressUnavailable; the cause is only informational.
func (wr *webResolver) Resolve(ctx context.Context, family Family) (string, error) {
	u, ok := wr.endpoints[family]
	if !ok {
		return "", fmt.Errorf("%w: no lookup service for ip version %s", ErrAddressUnavailable, family)
	}
	addr, err := wr.lookup(ctx, u)
	if err != nil {
		return "", fmt.Errorf("%w: %s lookup via %s: %w", ErrAddressUnavailable, family, u.Host, err)
	}
	return addr, nil
}

func (wr *webResolver) lookup(ctx context.Context, u *url.URL) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("http request returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}
	addr := strings.TrimSpace(string(body))
	if addr == "" {
		return "", fmt.Errorf("empty response body")
	}
	return addr, nil
}
