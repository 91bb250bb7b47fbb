package showroom

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orgassist-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func approvalRow(roomId, eventId, token, roomName, eventName string) string {
	labels := ""
	if roomName != "" {
		labels += fmt.Sprintf(`<td><a href="/room/profile?room_id=%s">%s</a></td>`, roomId, roomName)
	}
	if eventName != "" {
		labels += fmt.Sprintf(`<td><a href="/event/%s">%s</a></td>`, eventId, eventName)
	}
	inputs := ""
	if token != "" {
		inputs += fmt.Sprintf(`<input type="hidden" name="csrf_token" value="%s">`, token)
	}
	if roomId != "" {
		inputs += fmt.Sprintf(`<input type="hidden" name="room_id" value="%s">`, roomId)
	}
	if eventId != "" {
		inputs += fmt.Sprintf(`<input type="hidden" name="event_id" value="%s">`, eventId)
	}
	return fmt.Sprintf(
		`<tr>%s<td><form action="/event/organizer_approve" method="POST">%s<button>承認</button></form></td></tr>`,
		labels, inputs,
	)
}

func newAdminServer(t testing.TB, body string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestPendingApprovals(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	body := adminBody(
		approvalRow("111", "222", "token-a", "Alice Room", "Spring Fest") +
			approvalRow("333", "444", "", "Broken Room", "Broken Event") + // missing csrf_token
			approvalRow("555", "666", "token-b", "", "") + // no label anchors
			approvalRow("777", "", "token-c", "Other Room", "Other Event"), // missing event_id
	)
	server := newAdminServer(t, body)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := newTestClient(t, server.URL)
	pending, err := client.PendingApprovals(ctx)
	require.NoError(t, err)

	expected := []PendingApproval{
		{
			RoomId:    "111",
			EventId:   "222",
			CsrfToken: "token-a",
			RoomName:  "Alice Room",
			EventName: "Spring Fest",
		},
		{
			RoomId:    "555",
			EventId:   "666",
			CsrfToken: "token-b",
			RoomName:  UnknownRoom,
			EventName: UnknownEvent,
		},
	}
	diff := cmp.Diff(expected, pending)
	require.Empty(t, diff)

	// an unchanged page scans to a structurally identical list
	again, err := client.PendingApprovals(ctx)
	require.NoError(t, err)
	require.Equal(t, pending, again)
}

func TestPendingApprovalsEmpty(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	server := newAdminServer(t, adminBody(""))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := newTestClient(t, server.URL)
	pending, err := client.PendingApprovals(ctx)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestPendingApprovalsExpiredSession(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	server := newAdminServer(t, `<html><body>login wall</body></html>`)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := newTestClient(t, server.URL)
	_, err := client.PendingApprovals(ctx)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestApprove(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/showroom")
	defer cleanup()

	record := PendingApproval{
		RoomId:    "111",
		EventId:   "222",
		CsrfToken: "abc",
		RoomName:  "Alice Room",
		EventName: "Spring Fest",
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	newApproveServer := func(t testing.TB, redirectTo string) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("POST /event/organizer_approve", func(w http.ResponseWriter, r *http.Request) {
			if r.FormValue("csrf_token") != "abc" ||
				r.FormValue("room_id") != "111" ||
				r.FormValue("event_id") != "222" {
				t.Errorf("approve posted with wrong form fields: %v", r.Form)
			}
			if r.Header.Get("Referer") == "" {
				t.Errorf("approve posted without a referer header")
			}
			http.Redirect(w, r, redirectTo, http.StatusFound)
		})
		mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
			// both outcomes answer 200, only the redirect target differs
			fmt.Fprint(w, adminBody(""))
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return server
	}

	t.Run("redirect back to admin page", func(t *testing.T) {
		server := newApproveServer(t, "/event/admin_organizer")
		client := newTestClient(t, server.URL)

		outcome, err := client.Approve(ctx, record)
		require.NoError(t, err)
		require.Equal(t, Approved, outcome)
	})

	t.Run("redirect elsewhere is a rejection", func(t *testing.T) {
		// a path sharing the admin prefix must not count as success
		server := newApproveServer(t, "/event/admin_organizer_error")
		client := newTestClient(t, server.URL)

		outcome, err := client.Approve(ctx, record)
		require.Error(t, err)
		require.Equal(t, RejectedByServer, outcome)
	})

	t.Run("transport error", func(t *testing.T) {
		server := newApproveServer(t, "/event/admin_organizer")
		client := newTestClient(t, server.URL)
		server.Close()

		outcome, err := client.Approve(ctx, record)
		require.Error(t, err)
		require.Equal(t, RequestFailed, outcome)
	})
}
