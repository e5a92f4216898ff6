package app

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/rohvvn/tubecast/internal/domain"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{-5, "00:00:00"},
		{65, "01:05"},
		{3599, "59:59"},
		{3725, "01:02:05"},
		{7200, "02:00:00"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds); got != tc.want {
			t.Fatalf("FormatDuration(%d): want %q, got %q", tc.seconds, tc.want, got)
		}
	}
}

func TestPublishDate_FromUploadDate(t *testing.T) {
	ep := domain.Episode{
		UploadDate: "20230115",
		AcquiredAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	want := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	if got := PublishDate(ep); !got.Equal(want) {
		t.Fatalf("publish date: want %v, got %v", want, got)
	}
}

func TestPublishDate_FallsBackToAcquiredAt(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	acquired := time.Date(2024, 6, 1, 13, 0, 0, 0, paris)

	for _, uploadDate := range []string{"", "not-a-date", "2023-01-15"} {
		ep := domain.Episode{UploadDate: uploadDate, AcquiredAt: acquired}
		got := PublishDate(ep)
		if !got.Equal(acquired) {
			t.Fatalf("UploadDate=%q: want acquisition time, got %v", uploadDate, got)
		}
		if got.Location() != time.UTC {
			t.Fatalf("UploadDate=%q: publish date must be UTC, got %v", uploadDate, got.Location())
		}
	}
}

// parsedFeed sert uniquement à relire le document généré; les préfixes de
// namespace ne survivent pas au round-trip encoding/xml, donc on matche sur
// les noms locaux.
type parsedFeed struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel struct {
		Title         string `xml:"title"`
		Link          string `xml:"link"`
		Description   string `xml:"description"`
		Language      string `xml:"language"`
		LastBuildDate string `xml:"lastBuildDate"`
		Items         []struct {
			Title   string `xml:"title"`
			PubDate string `xml:"pubDate"`
			GUID    struct {
				IsPermaLink string `xml:"isPermaLink,attr"`
				Value       string `xml:",chardata"`
			} `xml:"guid"`
			Enclosure struct {
				URL    string `xml:"url,attr"`
				Length int64  `xml:"length,attr"`
				Type   string `xml:"type,attr"`
			} `xml:"enclosure"`
		} `xml:"item"`
	} `xml:"channel"`
}

func TestBuildFeed(t *testing.T) {
	newer := domain.Episode{
		ID:              "ep2",
		Owner:           "alice",
		Fingerprint:     "bbbbbbbb",
		Title:           "Second Video",
		Description:     "desc two",
		Uploader:        "Chan",
		UploadDate:      "20240210",
		DurationSeconds: 3725,
		Filename:        "Second Video.mp3",
		FileSizeBytes:   2048,
		AcquiredAt:      time.Date(2024, 2, 11, 8, 0, 0, 0, time.UTC),
		AudioURL:        "http://127.0.0.1:8080/episode/alice/Second%20Video.mp3",
	}
	older := domain.Episode{
		ID:              "ep1",
		Owner:           "alice",
		Fingerprint:     "aaaaaaaa",
		Title:           "First Video",
		DurationSeconds: 65,
		Filename:        "First Video.mp3",
		FileSizeBytes:   1024,
		AcquiredAt:      time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC),
		AudioURL:        "http://127.0.0.1:8080/episode/alice/First%20Video.mp3",
	}

	info := OwnerFeedInfo("alice", "http://127.0.0.1:8080/feed/alice")
	out, err := BuildFeed(info, []domain.Episode{newer, older})
	if err != nil {
		t.Fatalf("BuildFeed: %v", err)
	}
	if !strings.HasPrefix(string(out), xml.Header) {
		t.Fatalf("feed must start with the XML declaration")
	}

	var feed parsedFeed
	if err := xml.Unmarshal(out, &feed); err != nil {
		t.Fatalf("unmarshal generated feed: %v", err)
	}

	if feed.Version != "2.0" {
		t.Fatalf("rss version: want 2.0, got %q", feed.Version)
	}
	if feed.Channel.Title != "alice's Personal Podcast" {
		t.Fatalf("channel title: got %q", feed.Channel.Title)
	}
	if len(feed.Channel.Items) != 2 {
		t.Fatalf("items: want 2, got %d", len(feed.Channel.Items))
	}
	// L'ordre fourni (plus récent d'abord) est préservé tel quel.
	if feed.Channel.Items[0].Title != "Second Video" || feed.Channel.Items[1].Title != "First Video" {
		t.Fatalf("item order not preserved: %q, %q", feed.Channel.Items[0].Title, feed.Channel.Items[1].Title)
	}

	item := feed.Channel.Items[0]
	if item.GUID.Value != "bbbbbbbb" || item.GUID.IsPermaLink != "false" {
		t.Fatalf("guid: got %+v", item.GUID)
	}
	if item.PubDate != time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC).Format(time.RFC1123Z) {
		t.Fatalf("pubDate: got %q", item.PubDate)
	}
	if item.Enclosure.URL != newer.AudioURL || item.Enclosure.Length != 2048 || item.Enclosure.Type != "audio/mpeg" {
		t.Fatalf("enclosure: got %+v", item.Enclosure)
	}

	// lastBuildDate reflète l'acquisition la plus récente.
	wantBuild := newer.AcquiredAt.Format(time.RFC1123Z)
	if feed.Channel.LastBuildDate != wantBuild {
		t.Fatalf("lastBuildDate: want %q, got %q", wantBuild, feed.Channel.LastBuildDate)
	}
}

func TestBuildFeed_EmptyIsValid(t *testing.T) {
	out, err := BuildFeed(GlobalFeedInfo("http://example.org"), nil)
	if err != nil {
		t.Fatalf("BuildFeed: %v", err)
	}
	var feed parsedFeed
	if err := xml.Unmarshal(out, &feed); err != nil {
		t.Fatalf("unmarshal empty feed: %v", err)
	}
	if feed.Channel.Title != "My YouTube Podcast" {
		t.Fatalf("channel title: got %q", feed.Channel.Title)
	}
	if len(feed.Channel.Items) != 0 {
		t.Fatalf("empty feed must have no items, got %d", len(feed.Channel.Items))
	}
	if feed.Channel.LastBuildDate == "" {
		t.Fatalf("empty feed still carries a lastBuildDate")
	}
}
