package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wherewasi/wherewasi/internal/resilience"
)

const nagerBaseURL = "https://date.nager.at/api/v3"

// nagerHoliday is one entry of the Nager.Date PublicHolidays response.
type nagerHoliday struct {
	Date     string   `json:"date"` // YYYY-MM-DD
	Name     string   `json:"name"`
	Global   bool     `json:"global"` // true when the holiday applies country-wide
	Counties []string `json:"counties"`
}

// NagerProvider resolves holidays from the Nager.Date public API. It
// covers jurisdictions the embedded registry does not and needs no API
// key. Server-side failures are retried with backoff.
type NagerProvider struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.Policy
}

// NagerOption configures the NagerProvider.
type NagerOption func(*NagerProvider)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) NagerOption {
	return func(p *NagerProvider) {
		p.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) NagerOption {
	return func(p *NagerProvider) {
		p.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) NagerOption {
	return func(p *NagerProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetryPolicy overrides the backoff behavior for failed API calls.
func WithRetryPolicy(pol resilience.Policy) NagerOption {
	return func(p *NagerProvider) {
		p.retry = pol
	}
}

// NewNagerProvider creates a NagerProvider with the given options.
func NewNagerProvider(opts ...NagerOption) *NagerProvider {
	p := &NagerProvider{
		baseURL:    nagerBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		retry:      resilience.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NagerProvider) Name() string { return "nager" }

// Available implements Provider.
func (p *NagerProvider) Available() bool { return true }

// Resolve implements Provider.
func (p *NagerProvider) Resolve(ctx context.Context, j Jurisdiction, fromYear, toYear int) ([]time.Time, error) {
	var days []time.Time
	for year := fromYear; year <= toYear; year++ {
		yearDays, err := p.publicHolidays(ctx, j, year)
		if err != nil {
			return nil, err
		}
		days = append(days, yearDays...)
	}
	return days, nil
}

func (p *NagerProvider) publicHolidays(ctx context.Context, j Jurisdiction, year int) ([]time.Time, error) {
	return resilience.DoVal(ctx, p.retry, func(ctx context.Context) ([]time.Time, error) {
		return p.fetchYear(ctx, j, year)
	})
}

func (p *NagerProvider) fetchYear(ctx context.Context, j Jurisdiction, year int) ([]time.Time, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "holiday: nager rate limit")
	}

	reqURL := fmt.Sprintf("%s/PublicHolidays/%d/%s", p.baseURL, year, strings.ToUpper(j.State))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "holiday: nager build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "holiday: nager request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return nil, eris.Wrapf(ErrUnknownJurisdiction, "nager has no calendar for %q", j.State)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("holiday: nager returned status %d for %s %d", resp.StatusCode, j.State, year)
		if resilience.IsTransientStatus(resp.StatusCode) {
			return nil, resilience.Transient(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "holiday: nager read body")
	}

	var raw []nagerHoliday
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrap(err, "holiday: nager parse response")
	}

	// Nager scopes subdivision holidays with "DE-BY" style county codes.
	county := ""
	if j.Province != "" {
		county = strings.ToUpper(j.State) + "-" + strings.ToUpper(j.Province)
	}

	var days []time.Time
	for _, h := range raw {
		if !h.Global {
			if county == "" || !slices.Contains(h.Counties, county) {
				continue
			}
		}
		d, err := time.ParseInLocation(time.DateOnly, h.Date, time.UTC)
		if err != nil {
			zap.L().Warn("holiday: skipping malformed nager date",
				zap.String("date", h.Date),
				zap.String("name", h.Name),
			)
			continue
		}
		days = append(days, d)
	}
	return days, nil
}
