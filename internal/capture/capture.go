package capture

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akave-ai/returnall/internal/model"
)

// TimestampLayout is ISO-8601 with microseconds and the local zone offset.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Input holds the parts of an inbound request that end up in a RequestRecord.
type Input struct {
	Method string
	URL    string
	// PathVars are the router's named template variables.
	PathVars map[string]string
	// ExtraParams override PathVars entries with the same name.
	ExtraParams map[string]string
	// Wildcard is the raw matched suffix of a catch-all route; nil otherwise.
	Wildcard *string
	Query    url.Values
	Header   http.Header
	Host     string
	// RemoteAddr is the transport peer as "host:port". May be empty.
	RemoteAddr string
	// ClientHost replaces the host part of RemoteAddr when set
	// (e.g. resolved from proxy headers).
	ClientHost string
}

// Capturer builds RequestRecords. The zero value is not usable; call New.
type Capturer struct {
	newID func() string
	now   func() time.Time
}

// Option configures a Capturer.
type Option func(*Capturer)

// WithIDGenerator replaces the request id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Capturer) { c.newID = fn }
}

// WithClock replaces the timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(c *Capturer) { c.now = fn }
}

// New returns a Capturer issuing random UUID v4 ids and local wall-clock timestamps.
func New(opts ...Option) *Capturer {
	c := &Capturer{
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture builds the fixed part of a RequestRecord. It never fails: anything
// malformed is kept verbatim.
//
// Query parameters and headers are flattened to their last value; repeated
// keys are not preserved as lists.
func (c *Capturer) Capture(in Input) model.RequestRecord {
	rec := model.RequestRecord{
		RequestID:   c.newID(),
		Timestamp:   c.now().Format(TimestampLayout),
		Method:      in.Method,
		URL:         in.URL,
		PathParams:  make(map[string]string, len(in.PathVars)+len(in.ExtraParams)),
		QueryParams: flatten(in.Query),
		Headers:     flatten(in.Header),
		Client:      clientInfo(in.RemoteAddr, in.ClientHost),
	}

	for k, v := range in.PathVars {
		rec.PathParams[k] = v
	}
	for k, v := range in.ExtraParams {
		rec.PathParams[k] = v
	}

	if in.Wildcard != nil {
		path := *in.Wildcard
		parts := strings.Split(path, "/")
		rec.Path = &path
		rec.PathParts = parts
		for i, part := range parts {
			rec.PathParams[fmt.Sprintf("path_part_%d", i)] = part
		}
	}

	// net/http moves Host out of the header map.
	if _, ok := rec.Headers["Host"]; !ok && in.Host != "" {
		rec.Headers["Host"] = in.Host
	}

	return rec
}

func flatten(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, vs := range values {
		if len(vs) == 0 {
			continue
		}
		out[k] = vs[len(vs)-1]
	}
	return out
}

func clientInfo(remoteAddr, hostOverride string) model.ClientInfo {
	var info model.ClientInfo
	host, port, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		if host != "" {
			info.Host = &host
		}
		if p, err := strconv.Atoi(port); err == nil {
			info.Port = &p
		}
	}
	if hostOverride != "" {
		info.Host = &hostOverride
	}
	return info
}
