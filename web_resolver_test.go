package ddns_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ddns "github.com/Travis-Britz/cloudflare-ddns"
	"github.com/Travis-Britz/cloudflare-ddns/internal/fakestore"
)

func echoServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cache-Control") != "no-cache" {
			t.Errorf("Expected Cache-Control: no-cache; got %q", r.Header.Get("Cache-Control"))
		}
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup(t *testing.T) {
	v4 := echoServer(t, http.StatusOK, "203.0.113.9\n")
	v6 := echoServer(t, http.StatusOK, "  2001:db8::9  ")
	wr, err := ddns.WebResolver(v4.URL, v6.URL)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}

	addr, err := wr.Resolve(context.Background(), ddns.IPv4)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := "203.0.113.9", addr; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}

	addr, err = wr.Resolve(context.Background(), ddns.IPv6)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := "2001:db8::9", addr; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupIsNotValidated(t *testing.T) {
	srv := echoServer(t, http.StatusOK, "not an address")
	wr, err := ddns.WebResolver(srv.URL, "")
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	addr, err := wr.Resolve(context.Background(), ddns.IPv4)
	if err != nil {
		t.Fatalf("Request failed: %s", err)
	}
	if expected, got := "not an address", addr; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "203.0.113.9"},
		{"redirect status", http.StatusNotModified, ""},
		{"empty body", http.StatusOK, ""},
		{"whitespace body", http.StatusOK, " \r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := echoServer(t, tt.status, tt.body)
			wr, err := ddns.WebResolver(srv.URL, "")
			if err != nil {
				t.Fatalf("WebResolver failed: %s", err)
			}
			addr, err := wr.Resolve(context.Background(), ddns.IPv4)
			if !errors.Is(err, ddns.ErrAddressUnavailable) {
				t.Fatalf("Expected address unavailable; got %q, %v", addr, err)
			}
		})
	}
}

func TestLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	wr, err := ddns.WebResolver(srv.URL, "")
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = wr.Resolve(ctx, ddns.IPv4)
	if !errors.Is(err, ddns.ErrAddressUnavailable) {
		t.Fatalf("Expected address unavailable; got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Expected lookup to give up with the context; took %s", elapsed)
	}
}

func TestWebResolverRejectsBadURL(t *testing.T) {
	for _, u := range []string{"ftp://example.com/ip", "://bad"} {
		if _, err := ddns.WebResolver(u, ""); !errors.Is(err, ddns.ErrConfig) {
			t.Fatalf("Expected config error for %q; got %v", u, err)
		}
	}
}

func TestWebResolverUsesHTTPClient(t *testing.T) {
	var used bool
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		used = true
		return http.DefaultTransport.RoundTrip(r)
	})}
	srv := echoServer(t, http.StatusOK, "203.0.113.9")
	wr, err := ddns.WebResolver(srv.URL, "")
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}

	c, err := ddns.New(zone, []ddns.ManagedRecord{homeA},
		ddns.UsingRecordStore(fakestore.New(zone)),
		ddns.UsingResolver(wr),
		ddns.UsingHTTPClient(hc),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	if err := c.RunDDNS(context.Background()); err != nil {
		t.Fatalf("RunDDNS failed: %s", err)
	}
	if !used {
		t.Fatalf("Expected the registered http client to be used for lookups")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestUsingWebResolver(t *testing.T) {
	srv := echoServer(t, http.StatusOK, "203.0.113.9\n")
	store := fakestore.New(zone)
	c, err := ddns.New(zone, []ddns.ManagedRecord{homeA},
		ddns.UsingRecordStore(store),
		ddns.UsingWebResolver(srv.URL, ""),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	if err := c.RunDDNS(context.Background()); err != nil {
		t.Fatalf("RunDDNS failed: %s", err)
	}
	r, ok := store.Lookup(homeA.Name, homeA.Kind)
	if !ok {
		t.Fatalf("Expected %s to be created", homeA.Name)
	}
	if expected, got := "203.0.113.9", r.Content; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}

	if _, err := ddns.New(zone, []ddns.ManagedRecord{homeA},
		ddns.UsingRecordStore(store),
		ddns.UsingWebResolver("ftp://example.com", ""),
	); err == nil {
		t.Fatalf("Expected error for an invalid endpoint")
	}
}
