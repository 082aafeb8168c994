// Command cronctl triggers background jobs on a running API server. It is
// what an external scheduler (system cron, a CI schedule) invokes.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

func main() {
	baseURL := flag.String("url", envOr("CRONCTL_URL", "http://localhost:8080"), "API base URL")
	job := flag.String("job", "", "Comma separated job names (default: all registered jobs)")
	secret := flag.String("secret", os.Getenv("CRON_SECRET"), "Cron bearer secret (default: $CRON_SECRET)")
	list := flag.Bool("list", false, "List registered jobs instead of running them")
	timeout := flag.Duration("timeout", 30*time.Minute, "Request timeout (a full batch with retries can run about 20m)")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "Error: a cron secret is required (-secret or $CRON_SECRET)")
		os.Exit(1)
	}

	req, err := buildRequest(*baseURL, *job, *list)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	status, body, err := send(req.WithContext(ctx), *secret)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(pretty(body))
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "cronctl: server answered %d %s\n", status, http.StatusText(status))
		os.Exit(1)
	}
}

// buildRequest picks the trigger route: one job uses the path form, several
// use the query form, none runs everything.
func buildRequest(baseURL, jobs string, list bool) (*http.Request, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid -url %q", baseURL)
	}

	if list {
		return http.NewRequest(http.MethodGet, base.String()+"/v1/cron/jobs", nil)
	}

	var names []string
	for _, n := range strings.Split(jobs, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	target := base.String() + "/v1/cron/jobs"
	switch len(names) {
	case 0:
	case 1:
		target += "/" + url.PathEscape(names[0])
	default:
		q := url.Values{"job": names}
		target += "?" + q.Encode()
	}
	return http.NewRequest(http.MethodPost, target, nil)
}

func send(req *http.Request, secret string) (int, []byte, error) {
	req.Header.Set("Authorization", "Bearer "+secret)
	req.Header.Set("Accept", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func pretty(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
