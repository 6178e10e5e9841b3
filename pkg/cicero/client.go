// Package cicero provides a client for the Cicero elected-official
// directory API.
package cicero

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://app.cicerodata.com/v3.1"

// Client looks up elected officials for a location.
type Client interface {
	// Lookup returns the location candidates matching a free-text address,
	// each with its serving officials. Zero candidates is not an error.
	Lookup(ctx context.Context, address string) (*LookupResult, error)
}

// LookupResult is the outcome of an official lookup.
type LookupResult struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one location interpretation of the searched address.
type Candidate struct {
	MatchAddr string     `json:"match_addr"`
	Officials []Official `json:"officials"`
}

// Official is a single provider record for an elected official.
type Official struct {
	ID             int64    `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Party          string   `json:"party"`
	PhotoOriginURL string   `json:"photo_origin_url"`
	WebFormURL     string   `json:"web_form_url"`
	EmailAddresses []string `json:"email_addresses"`
	ValidFrom      string   `json:"valid_from"`
	ValidTo        string   `json:"valid_to"`
	Office         Office   `json:"office"`
}

// Office describes the seat an official holds.
type Office struct {
	Title             string   `json:"title"`
	RepresentingCity  string   `json:"representing_city"`
	RepresentingState string   `json:"representing_state"`
	District          District `json:"district"`
	Chamber           Chamber  `json:"chamber"`
}

// District is the electoral district of an office.
type District struct {
	DistrictType string `json:"district_type"`
	Label        string `json:"label"`
}

// Chamber is the legislative body of an office.
type Chamber struct {
	Type       string `json:"type"`
	NameFormal string `json:"name_formal"`
}

// Name returns the official's display name.
func (o Official) Name() string {
	if o.FirstName == "" {
		return o.LastName
	}
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithMaxOfficials caps the number of officials requested per lookup.
func WithMaxOfficials(n int) Option {
	return func(c *httpClient) {
		c.maxOfficials = n
	}
}

// WithRateLimit sets the requests-per-second limit for directory calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type httpClient struct {
	apiKey       string
	baseURL      string
	maxOfficials int
	limiter      *rate.Limiter
	http         *http.Client
}

// NewClient creates a Cicero API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		maxOfficials: 200,
		limiter:      rate.NewLimiter(10, 10),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// lookupResponse mirrors the provider's nested envelope.
type lookupResponse struct {
	Response struct {
		Results struct {
			Candidates []Candidate `json:"candidates"`
		} `json:"results"`
	} `json:"response"`
}

func (c *httpClient) Lookup(ctx context.Context, address string) (*LookupResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "cicero: rate limit wait")
	}

	q := url.Values{}
	q.Set("search_loc", address)
	q.Set("max", fmt.Sprintf("%d", c.maxOfficials))
	q.Set("format", "json")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/official?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "cicero: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "cicero: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "cicero: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("cicero: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed lookupResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "cicero: unmarshal response")
	}

	return &LookupResult{Candidates: parsed.Response.Results.Candidates}, nil
}
