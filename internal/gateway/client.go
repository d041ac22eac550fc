// Package gateway submits rendered messages to the carrier SMS gateway
// and canonicalizes phone numbers into the formats it accepts.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aozora-apps/sms-cli/internal/model"
)

// proxyEnvVars name the environment variables checked, in order, for an
// outbound proxy endpoint with embedded credentials.
var proxyEnvVars = []string{"SMS_PROXY_URL", "FIXIE_URL"}

// Options configures the gateway client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond caps the submission rate toward the gateway.
	RequestsPerSecond float64
}

// Client performs authenticated form-encoded submissions to the SMS
// gateway. A zero-value client is not usable; construct with New.
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	now     func() time.Time
}

// New creates a gateway client. An outbound proxy is taken from the
// environment when configured; its absence is not an error.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "sms-cli/1.0"
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 5
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxy := proxyFromEnv(); proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
		zap.L().Info("gateway: using outbound proxy", zap.String("host", proxy.Host))
	}

	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		now:     time.Now,
	}
}

func proxyFromEnv() *url.URL {
	for _, name := range proxyEnvVars {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			zap.L().Warn("gateway: ignoring malformed proxy url", zap.String("var", name), zap.Error(err))
			continue
		}
		return u
	}
	return nil
}

// Attempt is one raw gateway submission and its response.
type Attempt struct {
	Mobile string `json:"mobile"`
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// SendResult preserves every attempt; Final is the attempt whose
// response gets classified.
type SendResult struct {
	Attempts []Attempt
	Final    Attempt
	Retried  bool
}

// Send delivers one message to one number. The local format is tried
// first; when the gateway's response status is in the configured retry
// set the international format is tried exactly once more. Transport
// failures surface as a synthetic attempt with status 500 and the error
// text as body — Send itself never fails.
func (c *Client) Send(ctx context.Context, cfg model.SmsConfig, phone, message string) SendResult {
	digits := CanonicalDigits(phone)
	local := ToLocal(digits)

	first := c.postOnce(ctx, cfg, local, message)
	zap.L().Debug("gateway: attempt",
		zap.String("format", "local"),
		zap.Int("status", first.Status),
	)

	res := SendResult{Attempts: []Attempt{first}, Final: first}
	for _, code := range cfg.RetryCodes() {
		if first.Status != code {
			continue
		}
		alt := ToInternational(local)
		second := c.postOnce(ctx, cfg, alt, message)
		zap.L().Debug("gateway: retry with international format",
			zap.Int("status", second.Status),
		)
		res.Attempts = append(res.Attempts, second)
		res.Final = second
		res.Retried = true
		break
	}
	return res
}

func (c *Client) postOnce(ctx context.Context, cfg model.SmsConfig, mobile, message string) Attempt {
	attempt := Attempt{Mobile: mobile}

	if err := c.limiter.Wait(ctx); err != nil {
		attempt.Status = http.StatusInternalServerError
		attempt.Body = err.Error()
		return attempt
	}

	form := url.Values{}
	form.Set("mobilenumber", mobile)
	// The gateway cannot handle a literal ampersand in the text body.
	form.Set("smstext", strings.ReplaceAll(message, "&", "＆"))
	if cfg.UseDeliveryReport {
		form.Set("status", "1")
		form.Set("smsid", c.requestID())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		attempt.Status = http.StatusInternalServerError
		attempt.Body = err.Error()
		return attempt
	}
	req.SetBasicAuth(cfg.APIID, cfg.APIPassword)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Connection", "close")

	resp, err := c.http.Do(req)
	if err != nil {
		attempt.Status = http.StatusInternalServerError
		attempt.Body = err.Error()
		return attempt
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		attempt.Status = http.StatusInternalServerError
		attempt.Body = fmt.Sprintf("read response: %v", err)
		return attempt
	}

	attempt.Status = resp.StatusCode
	attempt.Body = string(body)
	return attempt
}

// requestID generates the delivery-report correlation id.
func (c *Client) requestID() string {
	return "REQ" + strconv.FormatInt(c.now().UnixMilli(), 10)
}
