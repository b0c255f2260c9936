// Command bb is a CLI client for the Beat Battle HTTP API.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ---- config/token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	UserID      string    `json:"user_id,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "beatbattle")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "beatbattle")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tf tokenFile) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(tokenPath(), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (run devtoken or save one with login)")
	}
	return tf.AccessToken, nil
}

// ---- http client ----

func loadTLS(caPath string, insecure bool) (*tls.Config, error) {
	if insecure {
		return &tls.Config{InsecureSkipVerify: true}, nil //nolint:gosec // dev flag
	}
	if caPath == "" {
		return nil, nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return &tls.Config{RootCAs: pool}, nil
}

func newHTTPClient(caPath string, insecure bool) (*http.Client, error) {
	tlsCfg, err := loadTLS(caPath, insecure)
	if err != nil {
		return nil, err
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		tr.TLSClientConfig = tlsCfg
	}
	return &http.Client{Transport: tr, Timeout: 30 * time.Second}, nil
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func usage() {
	fmt.Fprintf(os.Stderr, `bb CLI
Usage:
  bb -addr URL [-cacert file | -insecure] <cmd> [args]

Commands:
  version
  devtoken  -key <sign key> [-user <uuid>] [-ttl 24h]   (saves token)
  login     -token <jwt>                                 (saves token)
  wallet    [-ledger] [-limit n] [-offset n]
  battles   [-status s] [-type t] [-genre g] [-user uuid] [-limit n] [-offset n]
  battle    -id <uuid>
  create    -type beat|song -genre g -name n -track t -media ref [-fee n] [-duration 24h]
  join      -id <uuid> -name n -track t -media ref [-fee n]
  vote      -id <uuid> -side left|right
  challenge -to <uuid> -type beat|song -genre g -name n -track t -media ref [-msg text]
  accept    -id <uuid> -name n -track t -media ref
  decline   -id <uuid>
  pending   [-dir incoming|outgoing]
`)
	os.Exit(2)
}

// ---- main ----

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses global flags and dispatches to a subcommand.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	hc, err := newHTTPClient(*caPath, *insecure)
	if err != nil {
		fail(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app := &cli{base: *addr, http: hc, out: os.Stdout, token: loadToken}
	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			usage()
		}
		fail(err)
	}
}

func fail(err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "api error: status=%d code=%s msg=%s\n", apiErr.Status, apiErr.Code, apiErr.Message)
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
