// Package travel provides the tool that extracts travel locations from a request log.
package travel

import (
	"context"
	"net/http"
	"os"
	"regexp"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/pkg/llmutils"
	"github.com/effective-security/mcpchat/tools"
)

const (
	// ToolName is the name of the tool
	ToolName = "get_travel_locations"
	// URLEnvVarName is the environment variable with the log URL
	URLEnvVarName = "TRAVEL_LOCATIONS_URL"
)

var logPattern = regexp.MustCompile(`(?P<timestamp>\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) - .*GET .*lng=(?P<lng>[\d.]+)&lat=(?P<lat>[\d.]+)`)

// Request is the input of the tool, it has no parameters
type Request struct{}

// Location is a single parsed log entry
type Location struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Lng       string `json:"lng" yaml:"lng"`
	Lat       string `json:"lat" yaml:"lat"`
}

// Locations is the output of the tool
type Locations []Location

// Tool fetches the request log and returns visited locations
type Tool struct {
	tools.Tool[Request, Locations]

	url        string
	httpClient *http.Client
}

// New returns the tool, the log URL is read from TRAVEL_LOCATIONS_URL if empty
func New(url string, client *http.Client) *Tool {
	t := &Tool{
		url:        url,
		httpClient: client,
	}
	if t.url == "" {
		t.url = os.Getenv(URLEnvVarName)
	}
	t.Tool = tools.MustNew(ToolName,
		"Fetch travel locations from the log file and parse them into a structured format with timestamp, longitude and latitude.",
		t.run)
	return t
}

func (t *Tool) run(ctx context.Context, _ *Request) (*Locations, error) {
	if t.url == "" {
		return nil, errors.Newf("%s is not set", URLEnvVarName)
	}
	text, err := llmutils.DownloadText(ctx, t.httpClient, t.url, 0)
	if err != nil {
		return nil, errors.WithMessage(err, "unable to fetch logs")
	}
	res := ParseLog(text)
	return &res, nil
}

// ParseLog returns the locations found in the log text
func ParseLog(text string) Locations {
	res := Locations{}
	iTS := logPattern.SubexpIndex("timestamp")
	iLng := logPattern.SubexpIndex("lng")
	iLat := logPattern.SubexpIndex("lat")
	for _, m := range logPattern.FindAllStringSubmatch(text, -1) {
		res = append(res, Location{
			Timestamp: m[iTS],
			Lng:       m[iLng],
			Lat:       m[iLat],
		})
	}
	return res
}
