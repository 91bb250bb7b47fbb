// approvals.go scrapes the organizer admin page for pending
// event-participation requests and submits individual approvals.

package showroom

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"orgassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	UnknownRoom  = "unknown room"
	UnknownEvent = "unknown event"
)

// PendingApproval is one organizer-side participation request awaiting
// action. CsrfToken is scoped to this specific form and assumed single-use,
// records are rebuilt from scratch on every scan and never reused across
// cycles.
type PendingApproval struct {
	RoomId    string
	EventId   string
	CsrfToken string

	// display labels only, they degrade to placeholders when the page is
	// missing the expected markup
	RoomName  string
	EventName string
}

// PendingApprovals fetches the admin page and parses every approval form
// on it, in document order. Forms missing any of the three required hidden
// fields are skipped individually. A page with no approval forms yields an
// empty slice, that's the common "nothing to do" outcome, not an error.
// A page that fails the session predicate yields ErrSessionExpired.
func (c *Client) PendingApprovals(ctx context.Context) ([]PendingApproval, error) {
	ctx, span := tracer.Start(ctx, "client:PendingApprovals")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(adminPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch admin page")
		return nil, fmt.Errorf("fetch admin page: %w", err)
	}
	if !sessionValid(res) {
		span.SetStatus(codes.Error, ErrSessionExpired.Error())
		return nil, ErrSessionExpired
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse admin page")
		return nil, fmt.Errorf("parse admin page: %w", err)
	}

	var pending []PendingApproval
	doc.Find(fmt.Sprintf("form[action='%s']", approvePath)).
		Each(func(i int, form *goquery.Selection) {
			record := PendingApproval{
				CsrfToken: form.Find("input[name=csrf_token]").AttrOr("value", ""),
				RoomId:    form.Find("input[name=room_id]").AttrOr("value", ""),
				EventId:   form.Find("input[name=event_id]").AttrOr("value", ""),
			}
			if record.CsrfToken == "" || record.RoomId == "" || record.EventId == "" {
				slog.WarnContext(
					ctx, "skipping malformed approval form",
					"index", i,
					"room_id", record.RoomId,
					"event_id", record.EventId,
				)
				return
			}

			record.RoomName, record.EventName = rowLabels(form)
			pending = append(pending, record)
		})

	span.SetAttributes(attribute.Int("pending_count", len(pending)))
	return pending, nil
}

// rowLabels digs through the table row containing the form for the room
// and event anchors used in operator-facing messages.
func rowLabels(form *goquery.Selection) (string, string) {
	roomName := UnknownRoom
	eventName := UnknownEvent

	row := form.Closest("tr")
	for _, a := range htmlutil.GetAnchors(row.Find("a")) {
		switch {
		case roomName == UnknownRoom && strings.Contains(a.Href, "/room/profile?room_id="):
			if a.Name != "" {
				roomName = a.Name
			}
		case eventName == UnknownEvent && strings.Contains(a.Href, "/event/"):
			if a.Name != "" {
				eventName = a.Name
			}
		}
	}

	return roomName, eventName
}

type Outcome int

const (
	// the approval was accepted, the service redirected back to the
	// admin page (or organizer home)
	Approved Outcome = iota
	// the http layer reported success but the final redirect target was
	// somewhere else, which is how the service signals a refused approval
	RejectedByServer
	// transport-level failure, nothing is known about the server's opinion
	RequestFailed
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case RejectedByServer:
		return "rejected-by-server"
	case RequestFailed:
		return "request-failed"
	}
	return "unknown"
}

// Approve submits a single approval form. Exactly one attempt, retrying is
// the caller's call since a stale csrf token needs a fresh scan anyway.
//
// Success is judged by the final post-redirect URL, not the status code:
// the service answers 200 either way and signals refusal by redirecting
// anywhere other than the admin page. The path is compared exactly to
// avoid prefix false-positives.
func (c *Client) Approve(ctx context.Context, record PendingApproval) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "client:Approve")
	defer span.End()

	span.SetAttributes(
		attribute.String("room_id", record.RoomId),
		attribute.String("event_id", record.EventId),
	)

	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("referer", c.AdminUrl()).
		SetFormData(map[string]string{
			"csrf_token": record.CsrfToken,
			"room_id":    record.RoomId,
			"event_id":   record.EventId,
		}).
		Post(approvePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "approve request failed")
		return RequestFailed, fmt.Errorf("approve request: %w", err)
	}

	final := res.RawResponse.Request.URL
	if final.Path != adminPath && final.Path != organizerHomePath {
		err := fmt.Errorf("unexpected redirect target: %s", final)
		span.RecordError(err)
		span.SetStatus(codes.Error, "approval rejected by server")
		return RejectedByServer, err
	}
	return Approved, nil
}
