package windguru

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/kitewatch/wind-archive/internal/domain"
)

// Paths of the archive backend, relative to the base URL.
const (
	apiPath     = "/int/iapi.php"
	archivePath = "/ajax/ajax_archive.php"
	sessionPath = "/archive.php"
)

// defaultUserAgent mimics a desktop browser; the backend serves the archive
// form only to browser-looking clients.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:136.0) Gecko/20100101 Firefox/136.0"

// ErrLoginFailed is returned when the login API rejects the credentials.
var ErrLoginFailed = errors.New("login rejected")

// ErrNotAuthenticated is returned for archive calls made without valid
// credentials.
var ErrNotAuthenticated = errors.New("not authenticated")

// Client talks to the archive backend: login, spot search, and archive
// page fetches. It implements domain.SpotSearcher and pipeline.ArchiveFetcher.
type Client struct {
	baseURL    string
	httpClient *http.Client
	resilience resilience
	logger     *slog.Logger

	creds domain.Credentials
}

// NewClient creates an archive backend client. Credentials may be attached
// later via SetCredentials or obtained through Login.
func NewClient(baseURL string, timeout time.Duration, retries int, logger *slog.Logger) *Client {
	// The jar collects session and deviceid cookies during the login exchange.
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		resilience: newResilience("windguru", retries),
		logger:     logger,
	}
}

// SetCredentials attaches previously stored credentials to the client.
func (c *Client) SetCredentials(creds domain.Credentials) {
	c.creds = creds
}

// Credentials returns the credentials the client currently holds.
func (c *Client) Credentials() domain.Credentials {
	return c.creds
}

// Login authenticates with username and password and attaches the resulting
// credentials to the client.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Credentials, error) {
	// Visit the main page first so the server assigns a session.
	if err := c.touch(ctx, c.baseURL); err != nil {
		return domain.Credentials{}, fmt.Errorf("establish session: %w", err)
	}

	params := url.Values{
		"q":        {"wg_login"},
		"username": {username},
		"password": {password},
	}

	resp, err := c.get(ctx, c.baseURL+apiPath+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Credentials{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	var result loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.Credentials{}, fmt.Errorf("decode login response: %w", err)
	}

	if result.Return != "OK" {
		msg := result.Message
		if msg == "" {
			msg = "unknown reason"
		}
		return domain.Credentials{}, fmt.Errorf("%w: %s", ErrLoginFailed, msg)
	}

	creds := domain.Credentials{
		IDU:      result.Data.IDUser.String(),
		LoginMD5: result.Data.LoginMD5,
		LangC:    "en-",
	}

	// Pick up server-assigned cookies from the login exchange.
	if u, err := url.Parse(c.baseURL); err == nil && c.httpClient.Jar != nil {
		for _, cookie := range c.httpClient.Jar.Cookies(u) {
			switch cookie.Name {
			case "session":
				creds.Session = cookie.Value
			case "deviceid":
				creds.DeviceID = cookie.Value
			}
		}
	}

	c.creds = creds
	c.logger.Info("login succeeded", "idu", creds.IDU)
	return creds, nil
}

// ValidateSession checks that the attached credentials still open the
// archive page.
func (c *Client) ValidateSession(ctx context.Context) error {
	if !c.creds.Valid() {
		return ErrNotAuthenticated
	}
	resp, err := c.get(ctx, c.baseURL+sessionPath, c.creds.ToCookies())
	if err != nil {
		return fmt.Errorf("validate session: %w", err)
	}
	resp.Body.Close()
	return nil
}

// SearchSpots queries the autocomplete API for spots matching the query.
func (c *Client) SearchSpots(ctx context.Context, query string, limit int) (domain.SpotSearchResult, error) {
	params := url.Values{
		"q":             {"autocomplete_ss"},
		"type_info":     {"true"},
		"all":           {"0"},
		"latlon":        {"1"},
		"country":       {"1"},
		"favourite":     {"1"},
		"custom":        {"1"},
		"stations":      {"1"},
		"geonames":      {"40"},
		"spots":         {"1"},
		"priority_sort": {"1"},
		"query":         {query},
	}

	resp, err := c.get(ctx, c.baseURL+apiPath+"?"+params.Encode(), c.creds.ToCookies())
	if err != nil {
		return domain.SpotSearchResult{}, fmt.Errorf("spot search: %w", err)
	}
	defer resp.Body.Close()

	var payload suggestionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.SpotSearchResult{}, fmt.Errorf("decode spot search response: %w", err)
	}

	spots := make([]domain.Spot, 0, limit)
	for _, s := range payload.Suggestions {
		if len(spots) >= limit {
			break
		}
		id, err := s.Data.Int64()
		if err != nil || id <= 0 {
			continue
		}
		spot := domain.Spot{ID: int(id), Name: s.Value}
		// Names arrive as "Country - Spot"; split out the country prefix.
		if country, _, found := strings.Cut(s.Value, " - "); found {
			spot.Country = country
		}
		spots = append(spots, spot)
	}

	return domain.SpotSearchResult{
		Query: query,
		Spots: spots,
		Total: len(spots),
	}, nil
}

// FetchArchive retrieves the raw archive HTML for the request. The returned
// document is handed to the decoder untouched.
func (c *Client) FetchArchive(ctx context.Context, req domain.ArchiveRequest) (string, error) {
	if !c.creds.Valid() {
		return "", ErrNotAuthenticated
	}
	if err := req.Validate(); err != nil {
		return "", fmt.Errorf("archive request: %w", err)
	}

	form := url.Values{
		"date_from":     {req.From.Format("2006-01-02")},
		"date_to":       {req.To.Format("2006-01-02")},
		"step":          {fmt.Sprint(req.StepHours)},
		"min_use_hr":    {fmt.Sprint(req.MinUseHours)},
		"id_spot":       {fmt.Sprint(req.SpotID)},
		"id_model":      {fmt.Sprint(req.ModelID)},
		"id_stats_type": {""},
	}
	for _, v := range req.Variables {
		form.Add("arch_params[]", v)
	}

	resp, err := c.resilience.do(ctx, func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+archivePath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c.decorate(httpReq, c.creds.ToCookies())
		return httpReq, nil
	}, c.httpClient)
	if err != nil {
		return "", fmt.Errorf("fetch archive: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read archive response: %w", err)
	}
	return string(body), nil
}

// touch performs a fire-and-forget GET used to establish a session.
func (c *Client) touch(ctx context.Context, u string) error {
	resp, err := c.get(ctx, u, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// get performs a resilient GET with the standard headers and cookies.
func (c *Client) get(ctx context.Context, u string, cookies map[string]string) (*http.Response, error) {
	return c.resilience.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		c.decorate(req, cookies)
		return req, nil
	}, c.httpClient)
}

// decorate applies the browser headers and credential cookies.
func (c *Client) decorate(req *http.Request, cookies map[string]string) {
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Referer", c.baseURL)
	for name, value := range cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// Backend API response types.

type loginResponse struct {
	Return  string    `json:"return"`
	Message string    `json:"message"`
	Data    loginData `json:"data"`
}

type loginData struct {
	IDUser   json.Number `json:"id_user"`
	LoginMD5 string      `json:"login_md5"`
}

type suggestionsResponse struct {
	Suggestions []suggestion `json:"suggestions"`
}

type suggestion struct {
	Value string      `json:"value"`
	Data  json.Number `json:"data"`
}
