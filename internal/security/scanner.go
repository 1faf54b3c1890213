// Package security wraps the external `mcp-scanner` CLI (spec.md §4.4
// registration admission flow): run it as a subprocess with a
// timeout, strip ANSI escapes, locate and parse its JSON output, and
// classify the findings into a domain.SecurityScanResult.
package security

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mcp-registry/gateway/internal/domain"
)

// Config controls Scanner's invocation of the external mcp-scanner
// binary (spec.md §4.4, SUPPLEMENTED FEATURES: fail_open/fail_closed
// carried from the Python original's security_scanner.py).
type Config struct {
	Binary    string
	Analyzers string

	// MaxConcurrentScans sizes a token bucket (burst N, refilled at N
	// per second) that limits how fast scans may start. It does not
	// bound how many mcp-scanner subprocesses run at once. Non-positive
	// disables the limiter.
	MaxConcurrentScans int

	// FailOpen, when true, treats a scanner failure (timeout,
	// non-zero exit, unparsable output) as IsSafe=true rather than
	// IsSafe=false: the scan record still reports Failed=true, but
	// admission isn't blocked by an infrastructure problem distinct
	// from an actual unsafe verdict.
	FailOpen bool
}

// Scanner runs the mcp-scanner CLI against a target URL.
type Scanner struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter
}

func NewScanner(cfg Config, logger *zap.Logger) *Scanner {
	if cfg.Binary == "" {
		cfg.Binary = "mcp-scanner"
	}
	if cfg.Analyzers == "" {
		cfg.Analyzers = "yara,llm"
	}

	var limiter *rate.Limiter
	if cfg.MaxConcurrentScans > 0 {
		// Burst equals MaxConcurrentScans; the refill rate throttles
		// how quickly a new scan may start once the burst is spent.
		// Scans already running are not counted.
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxConcurrentScans), cfg.MaxConcurrentScans)
	}

	return &Scanner{cfg: cfg, logger: logger, limiter: limiter}
}

// Scan runs the scanner against targetURL with the given per-call
// timeout and returns a populated, not-yet-persisted scan result.
// Scanner failures (timeout, non-zero exit, unparsable output) return
// a result with Failed=true and IsSafe=cfg.FailOpen rather than an
// error: the caller decides admission policy from the result, per
// spec.md §4.4 ("failures are logged, or treated as a failed scan
// record").
func (s *Scanner) Scan(ctx context.Context, path, targetURL string, timeout time.Duration) *domain.SecurityScanResult {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return &domain.SecurityScanResult{
				ScanID:       uuid.NewString(),
				Path:         path,
				Timestamp:    time.Now().UTC(),
				Analyzers:    strings.Split(s.cfg.Analyzers, ","),
				Failed:       true,
				IsSafe:       s.cfg.FailOpen,
				ErrorMessage: fmt.Sprintf("waiting for scanner concurrency slot: %v", err),
			}
		}
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := &domain.SecurityScanResult{
		ScanID:    uuid.NewString(),
		Path:      path,
		Timestamp: time.Now().UTC(),
		Analyzers: strings.Split(s.cfg.Analyzers, ","),
	}

	cmd := exec.CommandContext(scanCtx, s.cfg.Binary,
		"--analyzers", s.cfg.Analyzers,
		"--raw",
		"remote",
		"--server-url", targetURL,
	)
	stdout, err := cmd.Output()
	if scanCtx.Err() != nil {
		result.Failed = true
		result.IsSafe = s.cfg.FailOpen
		result.ErrorMessage = fmt.Sprintf("security scan timed out after %s", timeout)
		s.logger.Warn("security scan timed out", zap.String("path", path), zap.Duration("timeout", timeout))
		return result
	}
	if err != nil {
		result.Failed = true
		result.IsSafe = s.cfg.FailOpen
		result.ErrorMessage = fmt.Sprintf("security scanner failed: %v", err)
		s.logger.Warn("security scanner process failed", zap.String("path", path), zap.Error(err))
		return result
	}

	findings, err := parseFindings(string(stdout))
	if err != nil {
		result.Failed = true
		result.IsSafe = s.cfg.FailOpen
		result.ErrorMessage = err.Error()
		s.logger.Warn("failed to parse scanner output", zap.String("path", path), zap.Error(err))
		return result
	}

	for _, f := range findings {
		switch domain.Severity(strings.ToLower(f.Severity)) {
		case domain.SeverityCritical:
			result.CriticalCount++
		case domain.SeverityHigh:
			result.HighCount++
		case domain.SeverityMedium:
			result.MediumCount++
		case domain.SeverityLow:
			result.LowCount++
		}
	}
	result.IsSafe = result.CriticalCount == 0 && result.HighCount == 0
	result.RawOutput = string(stdout)
	return result
}

// finding is one analyzer verdict entry in the scanner's JSON output.
type finding struct {
	Severity string `json:"severity"`
}

type toolResult struct {
	Findings map[string]finding `json:"findings"`
}

var ansiEscape = regexp.MustCompile("\x1b(?:[@-Z\\\\-_]|\\[[0-?]*[ -/]*[@-~])")

// arrayStart locates the first top-level JSON array in a line of
// scanner output that otherwise interleaves log lines before it.
var arrayStart = regexp.MustCompile(`(?m)^\s*\[`)

// parseFindings strips ANSI color codes from stdout, locates the
// first JSON array of tool results, and flattens every analyzer
// finding's severity.
func parseFindings(stdout string) ([]finding, error) {
	clean := ansiEscape.ReplaceAllString(stdout, "")

	loc := arrayStart.FindStringIndex(clean)
	if loc == nil {
		return nil, fmt.Errorf("no JSON array found in scanner output")
	}

	var results []toolResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(clean[loc[0]:])), &results); err != nil {
		return nil, fmt.Errorf("parsing scanner JSON output: %w", err)
	}

	var findings []finding
	for _, r := range results {
		for _, f := range r.Findings {
			findings = append(findings, f)
		}
	}
	return findings, nil
}
