package app

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/rohvvn/tubecast/internal/domain"
)

// FeedInfo porte les champs de niveau channel d'un flux.
type FeedInfo struct {
	Title       string
	Description string
	Subtitle    string
	// Link est l'URL de fetch du flux lui-même (atom self).
	Link     string
	Language string
	Category string
	Author   string
}

// OwnerFeedInfo construit les champs channel d'un flux personnel.
func OwnerFeedInfo(owner, feedURL string) FeedInfo {
	return FeedInfo{
		Title:       fmt.Sprintf("%s's Personal Podcast", owner),
		Description: fmt.Sprintf("A personal podcast feed for %s", owner),
		Subtitle:    fmt.Sprintf("Videos curated by %s", owner),
		Link:        feedURL,
		Language:    "en",
		Category:    "Personal",
		Author:      owner,
	}
}

// GlobalFeedInfo construit les champs channel du flux global (mode CLI).
func GlobalFeedInfo(baseURL string) FeedInfo {
	return FeedInfo{
		Title:       "My YouTube Podcast",
		Description: "A podcast feed generated from YouTube videos",
		Subtitle:    "YouTube videos as podcast episodes",
		Link:        baseURL + "/rss.xml",
		Language:    "en",
		Category:    "Personal",
		Author:      "tubecast",
	}
}

type rssFeed struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	ITunesNS string     `xml:"xmlns:itunes,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string      `xml:"title"`
	Link           string      `xml:"link"`
	Description    string      `xml:"description"`
	Language       string      `xml:"language"`
	Category       string      `xml:"category"`
	LastBuildDate  string      `xml:"lastBuildDate,omitempty"`
	Generator      string      `xml:"generator"`
	ITunesAuthor   string      `xml:"itunes:author,omitempty"`
	ITunesSubtitle string      `xml:"itunes:subtitle,omitempty"`
	AtomLink       rssAtomLink `xml:"atom:link"`
	Items          []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link"`
	GUID           rssGUID      `xml:"guid"`
	PubDate        string       `xml:"pubDate"`
	Description    string       `xml:"description"`
	ITunesAuthor   string       `xml:"itunes:author,omitempty"`
	ITunesDuration string       `xml:"itunes:duration,omitempty"`
	Enclosure      rssEnclosure `xml:"enclosure"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// BuildFeed projette les épisodes fournis en document RSS podcast. Les
// épisodes sont rendus dans l'ordre reçu (les appelants fournissent du plus
// récemment acquis au plus ancien). Ne peut pas échouer pour une liste de
// records valides: tous les replis sont totaux.
func BuildFeed(info FeedInfo, episodes []domain.Episode) ([]byte, error) {
	lastBuild := time.Time{}
	for _, ep := range episodes {
		if ep.AcquiredAt.After(lastBuild) {
			lastBuild = ep.AcquiredAt.UTC()
		}
	}
	if lastBuild.IsZero() {
		lastBuild = time.Now().UTC()
	}

	feed := rssFeed{
		Version:  "2.0",
		AtomNS:   "http://www.w3.org/2005/Atom",
		ITunesNS: "http://www.itunes.com/dtds/podcast-1.0.dtd",
		Channel: rssChannel{
			Title:          info.Title,
			Link:           info.Link,
			Description:    info.Description,
			Language:       info.Language,
			Category:       info.Category,
			LastBuildDate:  lastBuild.Format(time.RFC1123Z),
			Generator:      "tubecast",
			ITunesAuthor:   info.Author,
			ITunesSubtitle: info.Subtitle,
			AtomLink: rssAtomLink{
				Href: info.Link,
				Rel:  "self",
				Type: "application/rss+xml",
			},
		},
	}

	for _, ep := range episodes {
		uploader := ep.Uploader
		if uploader == "" {
			uploader = domain.DefaultUploader
		}
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:          ep.Title,
			Link:           ep.AudioURL,
			GUID:           rssGUID{IsPermaLink: "false", Value: ep.Fingerprint},
			PubDate:        PublishDate(ep).Format(time.RFC1123Z),
			Description:    ep.Description,
			ITunesAuthor:   uploader,
			ITunesDuration: FormatDuration(ep.DurationSeconds),
			Enclosure: rssEnclosure{
				URL:    ep.AudioURL,
				Length: ep.FileSizeBytes,
				Type:   "audio/mpeg",
			},
		})
	}

	out, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// PublishDate résout la date de publication d'un épisode: date d'upload
// source (YYYYMMDD, minuit UTC) si valide, sinon date d'acquisition ramenée
// en UTC. Toujours timezone-aware.
func PublishDate(ep domain.Episode) time.Time {
	if ep.UploadDate != "" {
		if t, err := time.ParseInLocation("20060102", ep.UploadDate, time.UTC); err == nil {
			return t
		}
	}
	return ep.AcquiredAt.UTC()
}

// FormatDuration rend une durée en H:MM:SS, M:SS sous l'heure, et 00:00:00
// pour une durée nulle ou inconnue.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
