package culler

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Real-Fruit-Snacks/bookmark-manager/internal/urlnorm"
)

// Status represents the health status of a URL.
type Status int

const (
	Healthy     Status = iota // 2xx or 3xx response
	Dead                      // 404 or 410 Gone
	Unreachable               // timeout, DNS failure, connection refused, etc.
)

func (s Status) String() string {
	switch s {
	case Healthy:
		return "healthy"
	case Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// Target is one bookmark to check.
type Target struct {
	Key string // store key, carried through to the result
	URL string
}

// Result holds the check result for a single target.
type Result struct {
	Target
	Status     Status
	StatusCode int    // HTTP status code (0 if connection failed)
	Error      string // Error message for unreachable URLs
}

// OK reports whether the URL answered with a usable response.
func (r Result) OK() bool {
	return r.Status == Healthy
}

// ProgressFunc is called after each URL is checked.
// completed is the number of URLs checked so far, total is the total count.
type ProgressFunc func(completed, total int)

// Options tunes a check run.
type Options struct {
	Concurrency    int
	Timeout        time.Duration
	ExcludeDomains []string // 404s on these domains count as "possibly private" instead of dead
	OnProgress     ProgressFunc
	Client         *http.Client
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 5
	}
	if o.Concurrency > 10 {
		o.Concurrency = 10
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	return o
}

func newClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// Follow redirects but limit to 10
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// CheckURLs checks all targets with bounded concurrency and returns the
// results in input order. Cancelling ctx marks unchecked targets unreachable.
func CheckURLs(ctx context.Context, targets []Target, opts Options) []Result {
	if len(targets) == 0 {
		return nil
	}
	opts = opts.withDefaults()

	// Suppress noisy HTTP client logging (protocol errors, unsolicited responses, etc.)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	excludeMap := make(map[string]bool)
	for _, domain := range opts.ExcludeDomains {
		excludeMap[strings.ToLower(domain)] = true
	}

	client := opts.Client
	if client == nil {
		client = newClient(opts.Timeout)
	}

	results := make([]Result, len(targets))
	jobs := make(chan int, len(targets))
	var wg sync.WaitGroup

	var progressMu sync.Mutex
	completed := 0

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = checkURL(ctx, client, targets[idx], excludeMap)

				if opts.OnProgress != nil {
					progressMu.Lock()
					completed++
					opts.OnProgress(completed, len(targets))
					progressMu.Unlock()
				}
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

func checkURL(ctx context.Context, client *http.Client, target Target, excludeMap map[string]bool) Result {
	result := Result{Target: target}
	if ctx.Err() != nil {
		result.Status = Unreachable
		result.Error = "Cancelled"
		return result
	}

	// Try HEAD first (faster, less bandwidth)
	resp, err := do(ctx, client, http.MethodHead, target.URL)
	if err != nil || resp.StatusCode == http.StatusMethodNotAllowed {
		if resp != nil {
			resp.Body.Close()
		}
		// Some servers don't support HEAD
		resp, err = do(ctx, client, http.MethodGet, target.URL)
		if err != nil {
			result.Status = Unreachable
			result.Error = normalizeError(err.Error())
			return result
		}
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 400:
		result.Status = Healthy
	case resp.StatusCode == 404 || resp.StatusCode == 410:
		if isExcludedDomain(target.URL, excludeMap) {
			result.Status = Unreachable
			result.Error = "Possibly private (auth required)"
		} else {
			result.Status = Dead
			result.Error = http.StatusText(resp.StatusCode)
		}
	default:
		// 5xx, 403 and friends may be temporary or need auth
		result.Status = Unreachable
		result.Error = http.StatusText(resp.StatusCode)
	}

	return result
}

func do(ctx context.Context, client *http.Client, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "bm-linkcheck/1.0")
	return client.Do(req)
}

// isExcludedDomain checks if the URL's domain or a parent domain is excluded.
func isExcludedDomain(rawURL string, excludeMap map[string]bool) bool {
	host := urlnorm.Domain(rawURL)
	if host == "" {
		return false
	}
	if excludeMap[host] {
		return true
	}
	for domain := range excludeMap {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// normalizeError simplifies verbose error messages into readable categories.
func normalizeError(errStr string) string {
	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "no such host"):
		return "DNS failure"
	case strings.Contains(lower, "context deadline exceeded"),
		strings.Contains(lower, "timeout"):
		return "Timeout"
	case strings.Contains(lower, "context canceled"):
		return "Cancelled"
	case strings.Contains(lower, "connection refused"):
		return "Connection refused"
	case strings.Contains(lower, "certificate"):
		return "TLS/certificate error"
	case strings.Contains(lower, "network is unreachable"):
		return "Network unreachable"
	case strings.Contains(lower, "tls:"):
		return "TLS error"
	case strings.Contains(lower, "unsupported protocol scheme"):
		return "Unsupported scheme"
	default:
		return errStr
	}
}

// Checker checks one URL at a time.
type Checker struct {
	Timeout time.Duration
	Client  *http.Client
}

// CheckResult is the outcome of a single-URL check.
type CheckResult struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Check probes url and reports whether it is alive.
func (c Checker) Check(ctx context.Context, url string) CheckResult {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := c.Client
	if client == nil {
		client = newClient(timeout)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := checkURL(ctx, client, Target{URL: url}, nil)
	return CheckResult{OK: r.OK(), StatusCode: r.StatusCode, Error: r.Error}
}
