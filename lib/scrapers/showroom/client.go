// client.go holds the session logic: building the http client, both login
// flows and the explicit session validity check.

package showroom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"orgassist-backend/lib/restyutil"
	"orgassist-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("scrapers/showroom")

var restyOutput restyutil.InstrumentOutput

// SetRestyInstrumentOutput dumps raw http traffic of every client created
// after the call. Debugging aid, leave unset in production.
func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyOutput = output
}

const DefaultBaseUrl = "https://www.showroom-live.com"

const (
	loginTokenPath    = "/"
	loginPath         = "/user/login"
	adminPath         = "/event/admin_organizer"
	approvePath       = "/event/organizer_approve"
	organizerHomePath = "/event/organizer"
)

// PendingMarker is the heading of the pending-approvals section on the
// organizer admin page. Its presence is the only reliable signal that the
// session is still authorized; status codes alone don't cut it since the
// site answers 200 on the login wall too.
const PendingMarker = "未承認のイベント参加申請"

var (
	ErrLoginRejected  = errors.New("login rejected, check credentials or page layout")
	ErrSessionExpired = errors.New("organizer session is expired or unauthorized")
	ErrFormNotFound   = errors.New("form not found")
	ErrTokenMissing   = errors.New("csrf token field missing")
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl when empty
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	// 2 requests max per second
	// max burst >= 2 just means that no requests will be dropped
	rateLimiter := rate.NewLimiter(2, 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "scrapers/showroom/http")
	restyutil.InstrumentClient(client, restyOutput)

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
	}
	return c, nil
}

func (c *Client) AdminUrl() string {
	admin := *c.BaseUrl
	admin.Path = adminPath
	return admin.String()
}

// csrfToken locates the first form whose action matches and reads its
// hidden csrf_token field. The two failure modes are reported distinctly:
// a missing form usually means we got redirected to a login wall, a
// missing field means the page layout changed under us.
func csrfToken(doc *goquery.Document, formAction string) (string, error) {
	form := doc.Find(fmt.Sprintf("form[action='%s']", formAction))
	if form.Length() == 0 {
		return "", fmt.Errorf("%w: action=%s", ErrFormNotFound, formAction)
	}
	token := form.First().Find("input[name=csrf_token]").AttrOr("value", "")
	if token == "" {
		return "", fmt.Errorf("%w: action=%s", ErrTokenMissing, formAction)
	}
	return token, nil
}

// LoginPassword performs the account_id/password flow: fetch the top page
// to pick up the login form's csrf token, post the login form, then probe
// the organizer admin page to confirm the session actually works. No step
// is retried, a single failure surfaces immediately.
func (c *Client) LoginPassword(ctx context.Context, accountId, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginPassword")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(loginTokenPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login token page")
		return fmt.Errorf("fetch login token page: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login token page")
		return fmt.Errorf("parse login token page: %w", err)
	}

	token, err := csrfToken(doc, loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract login token")
		return fmt.Errorf("extract login token: %w", err)
	}

	_, err = c.Http.R().
		SetContext(ctx).
		SetHeader("referer", c.BaseUrl.String()).
		SetFormData(map[string]string{
			"account_id": accountId,
			"password":   password,
			"csrf_token": token,
		}).
		Post(loginPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return fmt.Errorf("login request: %w", err)
	}

	err = c.CheckSession(ctx)
	if err != nil {
		span.SetStatus(codes.Error, ErrLoginRejected.Error())
		return fmt.Errorf("%w: %w", ErrLoginRejected, err)
	}
	return nil
}

// ParseCookieHeader parses a raw "name=value; name=value" cookie string.
// Malformed segments are skipped, not reported.
func ParseCookieHeader(raw string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, segment := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:  name,
			Value: strings.TrimSpace(value),
		})
	}
	return cookies
}

// SeedCookies loads a pre-captured browser cookie string into the jar.
// Nothing is fetched here, the session stays unvalidated until
// CheckSession is called.
func (c *Client) SeedCookies(raw string) {
	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, ParseCookieHeader(raw))
}

// CheckSession is the single authorization predicate: fetch the admin page
// and require both a 200 and the pending-approvals marker. It is used at
// establishment time and again on every scan, so a session that dies
// mid-run is detected instead of masquerading as "no pending work".
func (c *Client) CheckSession(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:CheckSession")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(adminPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch admin page")
		return fmt.Errorf("fetch admin page: %w", err)
	}
	if !sessionValid(res) {
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return ErrSessionExpired
	}
	return nil
}

func sessionValid(res *resty.Response) bool {
	return res.StatusCode() == http.StatusOK &&
		strings.Contains(res.String(), PendingMarker)
}
