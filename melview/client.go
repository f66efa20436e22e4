package melview

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/brutella/hap/log"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	baseURL    = "https://api.melview.net/api"
	appVersion = "5.3.1330"
	authCookie = "auth"
)

var (
	// ErrAuth is returned when melview refuses the credentials
	ErrAuth = errors.New("melview: authentication failed")
	// ErrUnexpectedStatus wraps any non-200 response
	ErrUnexpectedStatus = errors.New("melview: unexpected status")
)

// Client talks to the melview cloud. It is safe for concurrent use.
type Client struct {
	email      string
	password   string
	base       string
	appVersion string
	httpClient *http.Client
	limiter    *rate.Limiter

	mu       sync.Mutex // serializes logins
	loggedIn bool
}

// Option tunes a Client
type Option func(*Client)

// WithBaseURL points the client at another endpoint, mostly for tests
func WithBaseURL(u string) Option {
	return func(c *Client) { c.base = u }
}

// WithRateLimit caps outbound requests per second; rps <= 0 disables the limiter
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request http timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New builds a client. It does not log in; the first request does.
func New(email, password string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	c := &Client{
		email:      email,
		password:   password,
		base:       baseURL,
		appVersion: appVersion,
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   10 * time.Second,
			Transport: &http.Transport{MaxIdleConns: 5, IdleConnTimeout: 30 * time.Second},
		},
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Login establishes the auth cookie
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	body := map[string]interface{}{
		"user":       c.email,
		"pass":       c.password,
		"appversion": c.appVersion,
	}

	raw, err := c.post(ctx, "login.aspx", body)
	if err != nil {
		if isAuthFailure(err) {
			return fmt.Errorf("%w: %s", ErrAuth, err.Error())
		}
		return fmt.Errorf("login: %w", err)
	}

	u, err := url.Parse(c.base)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == authCookie && ck.Value != "" {
			c.loggedIn = true
			log.Debug.Printf("melview login ok for %s", c.email)
			return nil
		}
	}

	c.loggedIn = false
	return fmt.Errorf("%w: no %s cookie in response (%s)", ErrAuth, authCookie, string(raw))
}

type building struct {
	Building string     `json:"building"`
	BID      string     `json:"bid"`
	Units    []roomUnit `json:"units"`
}

type roomUnit struct {
	Room   string `json:"room"`
	UnitID string `json:"unitid"`
}

// ListUnits returns every unit on the account, in building order
func (c *Client) ListUnits(ctx context.Context) ([]Unit, error) {
	raw, err := c.call(ctx, "rooms.aspx", map[string]interface{}{"unitid": "0"})
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	var buildings []building
	if err := json.Unmarshal(raw, &buildings); err != nil {
		return nil, fmt.Errorf("list units: decode: %w", err)
	}

	var units []Unit
	seen := make(map[string]struct{})
	for _, b := range buildings {
		for _, r := range b.Units {
			if _, ok := seen[r.UnitID]; ok {
				continue
			}
			seen[r.UnitID] = struct{}{}
			units = append(units, Unit{
				UnitID:   r.UnitID,
				Room:     r.Room,
				Building: b.Building,
			})
		}
	}
	return units, nil
}

// Capabilities fetches the static capability block of a unit
func (c *Client) Capabilities(ctx context.Context, unitID string) (*Capabilities, error) {
	raw, err := c.call(ctx, "unitcapabilities.aspx", map[string]interface{}{"unitid": unitID})
	if err != nil {
		return nil, fmt.Errorf("capabilities %s: %w", unitID, err)
	}

	var caps Capabilities
	if err := json.Unmarshal(raw, &caps); err != nil {
		return nil, fmt.Errorf("capabilities %s: decode: %w", unitID, err)
	}
	return &caps, nil
}

// Status polls the live state of a unit
func (c *Client) Status(ctx context.Context, unitID string) (*UnitState, error) {
	raw, err := c.call(ctx, "unitcommand.aspx", map[string]interface{}{"unitid": unitID, "v": 2})
	if err != nil {
		return nil, fmt.Errorf("status %s: %w", unitID, err)
	}

	var state UnitState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("status %s: decode: %w", unitID, err)
	}
	return &state, nil
}

// Send dispatches one command. The response body is discarded.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	body := map[string]interface{}{
		"unitid":   cmd.UnitID,
		"v":        2,
		"commands": cmd.Wire(),
	}
	if _, err := c.call(ctx, "unitcommand.aspx", body); err != nil {
		return fmt.Errorf("command %s: %w", cmd, err)
	}
	log.Debug.Printf("sent %s", cmd)
	return nil
}

// call logs in on demand and replays once if the session has expired
func (c *Client) call(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	raw, err := c.post(ctx, endpoint, body)
	if err == nil || !isAuthFailure(err) {
		return raw, err
	}

	log.Info.Printf("melview session expired, logging in again")
	c.mu.Lock()
	c.loggedIn = false
	err = c.login(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.post(ctx, endpoint, body)
}

func (c *Client) ensureLogin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	return c.login(ctx)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus.Error(), e.code, e.body)
}

func (e *statusError) Unwrap() error {
	return ErrUnexpectedStatus
}

func isAuthFailure(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusUnauthorized || se.code == http.StatusForbidden
	}
	return false
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "melview-homekit")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	return raw, nil
}
