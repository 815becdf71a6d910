package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	ddns "github.com/Travis-Britz/cloudflare-ddns"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const verifyTimeout = 10 * time.Second

func newVerifyCmd(o *options) *cobra.Command {
	var prompt bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the Cloudflare credentials are accepted",
		Long: "verify asks the Cloudflare API whether the configured credentials are valid.\n" +
			"API tokens must be active; email/key pairs must be able to read the account's user details.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := o.newLogger()
			if err != nil {
				return err
			}

			var creds ddns.Credentials
			if prompt {
				token, err := readToken(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				creds = ddns.TokenAuth{Token: token}
			} else {
				cfg, err := ddns.LoadConfig(o.configPath)
				if err != nil {
					return err
				}
				if creds, err = cfg.Cloudflare.Credentials(); err != nil {
					return err
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), verifyTimeout)
			defer cancel()
			logger.Info("verifying credentials", "type", fmt.Sprintf("%T", creds))
			if err := ddns.VerifyCredentials(ctx, creds); err != nil {
				return fmt.Errorf("credentials were not accepted: %w", err)
			}
			logger.Info("credentials verified successfully")
			return nil
		},
	}
	cmd.Flags().BoolVar(&prompt, "prompt", false, "Read an API token from the terminal instead of the configuration file")
	return cmd
}

func readToken(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("--prompt requires an interactive terminal")
	}
	fmt.Fprint(w, "Enter Cloudflare API Token: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("error reading from stdin: %w", err)
	}
	token := strings.TrimSpace(string(b))
	if token == "" {
		return "", errors.New("no token entered")
	}
	return token, nil
}
