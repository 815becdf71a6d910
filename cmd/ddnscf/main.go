package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	ddns "github.com/Travis-Britz/cloudflare-ddns"
	"github.com/gofrs/flock"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type options struct {
	configPath  string
	force       bool
	checkOnly   bool
	interval    int
	ip          string
	iface       string
	nameserver  string
	metricsAddr string
	lockFile    string

	logLevel   string
	logNoColor bool
	logNoTime  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "ddnscf",
		Short: "Keep Cloudflare DNS records pointed at this host's public address",
		Long: "ddnscf looks up the current public address of this host and creates or updates the configured\n" +
			"Cloudflare A and AAAA records to match. Without --interval it runs a single pass.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         o.run,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&o.configPath, "config", "c", "config.json", "Path to the JSON or YAML configuration file")
	pf.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&o.logNoColor, "log-no-color", false, "Disable colors in log output")
	pf.BoolVar(&o.logNoTime, "log-no-time", false, "Disable timestamps in log output")

	f := cmd.Flags()
	f.BoolVar(&o.force, "force", false, "Update records even when their content already matches")
	f.BoolVar(&o.checkOnly, "check-only", false, "Only report the current address, do not change any record")
	f.IntVar(&o.interval, "interval", 0, "Run repeatedly, starting a pass every `seconds`")
	f.StringVar(&o.ip, "ip", "", "Use this address instead of looking it up")
	f.StringVar(&o.iface, "interface", "", "Read the address from this network interface instead of an echo service")
	f.StringVar(&o.nameserver, "nameserver", "1.1.1.1:53", "DNS server queried for published values in check-only mode; empty disables")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address in repeating mode")
	f.StringVar(&o.lockFile, "lock-file", filepath.Join(os.TempDir(), "ddnscf.lock"), "Lock file preventing concurrent instances")
	cmd.MarkFlagsMutuallyExclusive("ip", "interface")

	cmd.AddCommand(newVerifyCmd(o))
	return cmd
}

func (o *options) run(cmd *cobra.Command, _ []string) error {
	logger, err := o.newLogger()
	if err != nil {
		return err
	}
	return o.runWithLogger(cmd.Context(), cmd.Flags().Changed("interval"), logger)
}

func (o *options) runWithLogger(ctx context.Context, repeat bool, logger *slog.Logger) error {
	cfg, err := ddns.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if err := verifyPermissions(o.configPath); err != nil {
		logger.Warn("configuration file contains credentials and is readable by others", "err", err)
	}

	addressSource, err := o.addressSource(cfg)
	if err != nil {
		return err
	}
	client, err := o.newClient(cfg, addressSource, logger)
	if err != nil {
		return fmt.Errorf("error creating ddns client: %w", err)
	}

	var job ddns.DDNSClient = client
	if o.checkOnly {
		job = ddns.RunFunc(client.RunCheck)
	} else {
		lock := flock.New(o.lockFile)
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("error acquiring lock %s: %w", o.lockFile, err)
		}
		if !locked {
			return fmt.Errorf("another ddnscf instance holds the lock %s", o.lockFile)
		}
		defer lock.Unlock()
	}

	if !repeat {
		return ddns.RunOnce(ctx, job)
	}

	scheduler, err := ddns.NewScheduler(time.Duration(o.interval)*time.Second, logger)
	if err != nil {
		return err
	}
	if o.metricsAddr != "" {
		go serveMetrics(ctx, o.metricsAddr, logger)
	}
	if err := scheduler.Run(ctx, job); !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolver selects the address source: a static address, a local interface, or the echo services.
// newClient builds a check-only client, which needs no credentials, or a reconciling client on Cloudflare.
func (o *options) newClient(cfg *ddns.Config, addressSource func(*ddns.Client) error, logger *slog.Logger) (*ddns.Client, error) {
	if o.checkOnly {
		return ddns.NewChecker(cfg.Cloudflare.ZoneName, cfg.ManagedRecords(),
			addressSource,
			ddns.WithLogger(logger),
			ddns.WithNameserver(o.nameserver),
		)
	}
	creds, err := cfg.Cloudflare.Credentials()
	if err != nil {
		return nil, err
	}
	return ddns.New(cfg.Cloudflare.ZoneName, cfg.ManagedRecords(),
		ddns.UsingCloudflare(creds),
		addressSource,
		ddns.WithLogger(logger),
		ddns.ForceUpdate(o.force),
		ddns.WithNameserver(o.nameserver),
	)
}

// addressSource selects --ip, --interface or the configured echo services, in that order.
func (o *options) addressSource(cfg *ddns.Config) (func(*ddns.Client) error, error) {
	switch {
	case o.ip != "":
		r, err := ddns.FromString(o.ip)
		if err != nil {
			return nil, err
		}
		return ddns.UsingResolver(r), nil
	case o.iface != "":
		return ddns.UsingResolver(ddns.InterfaceResolver(o.iface)), nil
	}
	return ddns.UsingWebResolver(cfg.IPEndpoints.V4, cfg.IPEndpoints.V6), nil
}

func (o *options) newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}

	var replaceAttr func(groups []string, attr slog.Attr) slog.Attr
	if o.logNoTime {
		replaceAttr = func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 && attr.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return attr
		}
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:       level,
		ReplaceAttr: replaceAttr,
		NoColor:     o.logNoColor || !term.IsTerminal(int(os.Stderr.Fd())),
	})), nil
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics listener failed", "addr", addr, "err", err)
	}
}

func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking config file permissions: %w", err)
	}

	perms := info.Mode().Perm()
	// 0400 is accepted too: secrets managers often mount files read-only.
	if perms != 0600 && perms != 0400 {
		return fmt.Errorf("expected file permissions \"-rw-------\" for \"%s\"; found \"%s\"", path, fs.FileMode(perms))
	}
	return nil
}
