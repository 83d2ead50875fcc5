// Package main provides tokengen, which issues ingestion tokens for vendor
// stations and gateways.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/stationhub/weatheraggregator/internal/auth"
	"github.com/stationhub/weatheraggregator/internal/config"
	"github.com/stationhub/weatheraggregator/internal/reading"
)

type output struct {
	Token     string    `json:"token"`
	ClientID  string    `json:"clientId"`
	Kinds     []string  `json:"kinds"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "tokengen:", err)
		}
		os.Exit(2)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	clientID := fs.String("client", "", "client id recorded as the token subject (required)")
	kinds := fs.String("kinds", "", "comma separated station types the client may push; empty allows all")
	ttl := fs.Duration("ttl", auth.DefaultTokenExpiry, "token lifetime")
	key := fs.String("key", cfg.Ingest.SigningKey, "signing key (default $INGEST_SIGNING_KEY)")
	issuer := fs.String("issuer", cfg.Ingest.Issuer, "token issuer")
	audience := fs.String("audience", cfg.Ingest.Audience, "token audience")
	asJSON := fs.Bool("json", false, "print token details as JSON")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key == "" {
		return errors.New("no signing key: set -key or INGEST_SIGNING_KEY")
	}

	allowed, err := parseKinds(*kinds)
	if err != nil {
		return err
	}

	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: *key,
		Issuer:     *issuer,
		Audience:   *audience,
	})

	token, expiresAt, err := tokens.IssueToken(*clientID, allowed, *ttl)
	if err != nil {
		return err
	}

	if !*asJSON {
		_, err = fmt.Fprintln(stdout, token)
		return err
	}

	names := make([]string, 0, len(allowed))
	for _, k := range allowed {
		names = append(names, string(k))
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output{Token: token, ClientID: *clientID, Kinds: names, ExpiresAt: expiresAt})
}

func parseKinds(s string) ([]reading.Kind, error) {
	var kinds []reading.Kind
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		kind, err := reading.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}
