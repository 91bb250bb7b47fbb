package showroom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"orgassist-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body>
<form action="/user/login" method="POST">
	<input type="hidden" name="csrf_token" value="login-token-123">
	<input name="account_id">
	<input name="password">
</form>
</body></html>`

func adminBody(rows string) string {
	return fmt.Sprintf(
		`<html><body><h2>%s</h2><table>%s</table></body></html>`,
		PendingMarker, rows,
	)
}

// newLoginServer fakes the three endpoints the password flow touches.
func newLoginServer(t testing.TB, accountId, password string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, loginPage)
	})
	mux.HandleFunc("POST /user/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("csrf_token") != "login-token-123" {
			t.Errorf("login posted without the csrf token from the login form")
		}
		if r.Header.Get("Referer") == "" {
			t.Errorf("login posted without a referer header")
		}
		if r.FormValue("account_id") == accountId && r.FormValue("password") == password {
			http.SetCookie(w, &http.Cookie{Name: "sr_id", Value: "session-ok", Path: "/"})
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
	mux.HandleFunc("GET /event/admin_organizer", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("sr_id")
		if err != nil || cookie.Value != "session-ok" {
			fmt.Fprint(w, `<html><body>login wall</body></html>`)
			return
		}
		fmt.Fprint(w, adminBody(""))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t testing.TB, baseUrl string) *Client {
	client, err := NewClient(ClientOptions{BaseUrl: baseUrl})
	require.NoError(t, err)
	return client
}

func TestLoginPassword(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	server := newLoginServer(t, "organizer", "hunter2")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := newTestClient(t, server.URL)
	err := client.LoginPassword(ctx, "organizer", "hunter2")
	require.NoError(t, err)

	// the predicate that passed at login keeps passing
	require.NoError(t, client.CheckSession(ctx))
}

func TestLoginPasswordRejected(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	server := newLoginServer(t, "organizer", "hunter2")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := newTestClient(t, server.URL)
	err := client.LoginPassword(ctx, "organizer", "wrong-password")
	require.ErrorIs(t, err, ErrLoginRejected)
}

func TestLoginTokenErrors(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	t.Run("form not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body>no login form here</body></html>`)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		err := client.LoginPassword(ctx, "organizer", "hunter2")
		require.ErrorIs(t, err, ErrFormNotFound)
	})

	t.Run("token field missing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body><form action="/user/login"><input name="account_id"></form></body></html>`)
		}))
		defer server.Close()

		client := newTestClient(t, server.URL)
		err := client.LoginPassword(ctx, "organizer", "hunter2")
		require.ErrorIs(t, err, ErrTokenMissing)
	})
}

func TestParseCookieHeader(t *testing.T) {
	cookies := ParseCookieHeader("sr_id=abc123; lang=ja; malformed segment; =orphan; trailing=ok ")
	require.Len(t, cookies, 3)
	require.Equal(t, "sr_id", cookies[0].Name)
	require.Equal(t, "abc123", cookies[0].Value)
	require.Equal(t, "lang", cookies[1].Name)
	require.Equal(t, "ja", cookies[1].Value)
	require.Equal(t, "trailing", cookies[2].Name)
	require.Equal(t, "ok", cookies[2].Value)

	require.Empty(t, ParseCookieHeader("garbage without pairs"))
}

func TestSeedCookies(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	client := newTestClient(t, "http://showroom.test")

	client.SeedCookies("sr_id=abc123; lang=ja; broken")

	target, err := url.Parse("http://showroom.test/")
	require.NoError(t, err)

	jarred := client.Http.GetClient().Jar.Cookies(target)
	require.Len(t, jarred, 2)
	byName := map[string]string{}
	for _, c := range jarred {
		byName[c.Name] = c.Value
	}
	require.Equal(t, map[string]string{
		"sr_id": "abc123",
		"lang":  "ja",
	}, byName)
}
