package ddns_test

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	ddns "github.com/Travis-Britz/cloudflare-ddns"
	"github.com/Travis-Britz/cloudflare-ddns/internal/fakestore"
)

func ExampleNew() {
	records := []ddns.ManagedRecord{
		{Name: "home.example.com", Kind: ddns.KindA, TTL: 1, Family: ddns.IPv4},
		{Name: "home.example.com", Kind: ddns.KindAAAA, TTL: 1, Family: ddns.IPv6},
	}
	c, err := ddns.New("example.com", records,
		ddns.UsingCloudflare(ddns.TokenAuth{Token: os.Getenv("CLOUDFLARE_API_TOKEN")}),
		ddns.WithLogger(slog.Default()),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	// run once:
	err = c.RunDDNS(context.Background())
	if err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleWebResolver() {
	// I'm not vouching for these services, but they do return the IP of the client connection.
	// If possible, run your own and provide the URL here instead.
	r, err := ddns.WebResolver("https://ipv4.icanhazip.com/", "https://ipv6.icanhazip.com/")
	if err != nil {
		log.Fatalf("error creating resolver: %s", err)
	}
	c, err := ddns.New("example.com",
		[]ddns.ManagedRecord{{Name: "dynamic-ip.example.com", Kind: ddns.KindA, TTL: 1, Family: ddns.IPv4}},
		ddns.UsingCloudflare(ddns.TokenAuth{Token: os.Getenv("CLOUDFLARE_API_TOKEN")}),
		ddns.UsingResolver(r),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}
	err = c.RunDDNS(context.Background())
	if err != nil {
		log.Fatalf("ddns update failed: %s", err)
	}
}

func ExampleScheduler() {
	c, err := ddns.New("example.com",
		[]ddns.ManagedRecord{{Name: "dynamic-ip.example.com", Kind: ddns.KindA, TTL: 1, Family: ddns.IPv4}},
		ddns.UsingCloudflare(ddns.KeyAuth{Email: os.Getenv("CLOUDFLARE_EMAIL"), Key: os.Getenv("CLOUDFLARE_API_KEY")}),
	)
	if err != nil {
		log.Fatalf("error creating ddns client: %s", err)
	}

	// run every 5 minutes and stop after an hour:
	s, err := ddns.NewScheduler(5*time.Minute, slog.Default())
	if err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Hour)
	defer cancel()
	s.Run(ctx, c)
}

func ExampleResolverFunc() {
	fn := func(ctx context.Context, family ddns.Family) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(10 * time.Millisecond): // simulating some lookup method
		}
		if family == ddns.IPv6 {
			return "2001:db8::10", nil
		}
		return "203.0.113.10", nil
	}
	addr, _ := ddns.ResolverFunc(fn).Resolve(context.Background(), ddns.IPv4)
	fmt.Println(addr)
	// Output: 203.0.113.10
}

func ExampleClient_Reconcile() {
	store := fakestore.New("example.com",
		ddns.RemoteRecord{Name: "home.example.com", Kind: ddns.KindA, Content: "203.0.113.1", TTL: 1},
	)
	resolver, _ := ddns.FromString("203.0.113.9")
	c, err := ddns.New("example.com",
		[]ddns.ManagedRecord{
			{Name: "home.example.com", Kind: ddns.KindA, TTL: 1, Family: ddns.IPv4},
			{Name: "vpn.example.com", Kind: ddns.KindA, TTL: 1, Family: ddns.IPv4},
			{Name: "home.example.com", Kind: ddns.KindAAAA, TTL: 1, Family: ddns.IPv6},
		},
		ddns.UsingRecordStore(store),
		ddns.UsingResolver(resolver),
	)
	if err != nil {
		log.Fatal(err)
	}

	report := c.Reconcile(context.Background())
	for _, o := range report.Outcomes {
		fmt.Printf("%s %s: %s\n", o.Record.Kind, o.Record.Name, o.Action)
	}
	// Output:
	// A home.example.com: updated
	// A vpn.example.com: created
	// AAAA home.example.com: failed
}
