package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestGetAnchors(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<table><tr>
			<td><a href="/room/profile?room_id=1">
				Room
				One
			</a></td>
			<td><a>no href</a></td>
			<td><a href="/event/foo">Event Foo</a></td>
		</tr></table>
	`))
	require.NoError(t, err)

	anchors := GetAnchors(doc.Find("a"))
	require.Equal(t, []Anchor{
		{Name: "Room One", Href: "/room/profile?room_id=1"},
		{Name: "Event Foo", Href: "/event/foo"},
	}, anchors)
}
