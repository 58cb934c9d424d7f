// Package rss provides the tool that reads a news RSS feed.
package rss

import (
	"context"
	"encoding/xml"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/values"
)

const (
	// ToolName is the name of the tool
	ToolName = "fetch_rss_feed"
	// URLEnvVarName is the environment variable with the feed URL
	URLEnvVarName = "RSS_FEED_URL"
	// DefaultFeedURL is the feed used when none is configured
	DefaultFeedURL = "https://feeds.feedburner.com/adb_news"
)

// Request is the input of the tool, it has no parameters
type Request struct{}

// Item is a single feed entry
type Item struct {
	Title       string `json:"Title" yaml:"Title"`
	Link        string `json:"Link" yaml:"Link"`
	Description string `json:"Description" yaml:"Description"`
	PubDate     string `json:"Publication Date" yaml:"Publication Date"`
}

// Items is the output of the tool
type Items []Item

type feed struct {
	Items []feedItem `xml:"channel>item"`
}

type feedItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// Tool fetches the RSS feed
type Tool struct {
	tools.Tool[Request, Items]

	url        string
	httpClient *http.Client
}

// New returns the tool, the feed URL is read from RSS_FEED_URL,
// or DefaultFeedURL is used if empty.
func New(url string, client *http.Client) *Tool {
	t := &Tool{
		url:        values.StringsCoalesce(url, os.Getenv(URLEnvVarName), DefaultFeedURL),
		httpClient: client,
	}
	t.Tool = tools.MustNew(ToolName,
		"Fetches the ADB news RSS feed and returns items with title, link, description, and publication date.",
		t.run)
	return t
}

func (t *Tool) run(ctx context.Context, _ *Request) (*Items, error) {
	text, err := llmutils.DownloadText(ctx, t.httpClient, t.url, 0)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to fetch RSS feed")
	}
	res, err := Parse([]byte(text))
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Parse returns the items of RSS document
func Parse(data []byte) (Items, error) {
	var f feed
	if err := xml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse RSS feed")
	}
	res := make(Items, 0, len(f.Items))
	for _, it := range f.Items {
		res = append(res, Item{
			Title:       strings.TrimSpace(it.Title),
			Link:        strings.TrimSpace(it.Link),
			Description: strings.TrimSpace(it.Description),
			PubDate:     strings.TrimSpace(it.PubDate),
		})
	}
	return res, nil
}
