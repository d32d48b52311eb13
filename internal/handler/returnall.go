package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/returnall/internal/body"
	"github.com/akave-ai/returnall/internal/capture"
	"github.com/akave-ai/returnall/internal/logsink"
	"github.com/akave-ai/returnall/internal/metrics"
	"github.com/akave-ai/returnall/internal/observability"
	"github.com/akave-ai/returnall/internal/response"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// Route describes one capture endpoint.
type Route struct {
	Name        string
	Display     string
	Description string
	// LogMessage prefixes the request id in the sink entry.
	LogMessage string
	// Params names the fixed path segments after /returnAll, in order.
	Params   []string
	Wildcard bool
}

// Routes are the capture endpoints in registration order. The last entry
// catches every path the fixed routes do not match.
var Routes = []Route{
	{
		Name:        "returnAll",
		Display:     "/returnAll",
		Description: "returns everything about the request",
		LogMessage:  "Received request",
	},
	{
		Name:        "returnAll_with_path",
		Display:     "/returnAll/{path_param}",
		Description: "returnAll with one path parameter",
		LogMessage:  "Received path request",
		Params:      []string{"path_param"},
	},
	{
		Name:        "returnAll_with_two_params",
		Display:     "/returnAll/{param1}/{param2}",
		Description: "returnAll with two path parameters",
		LogMessage:  "Received two-param request",
		Params:      []string{"param1", "param2"},
	},
	{
		Name:        "returnAll_with_three_params",
		Display:     "/returnAll/{param1}/{param2}/{param3}",
		Description: "returnAll with three path parameters",
		LogMessage:  "Received three-param request",
		Params:      []string{"param1", "param2", "param3"},
	},
	{
		Name:        "returnAll_with_any_path",
		Display:     "/returnAll/{path:path}",
		Description: "returnAll with an arbitrary multi-level path",
		LogMessage:  "Received any-path request",
		Wildcard:    true,
	},
}

// wildcardParam is the template variable holding the raw suffix on the
// any-path route.
const wildcardParam = "path"

// Match picks the route for the suffix after "/returnAll/" and returns the
// template variables it binds. Exactly one to three non-empty segments select
// a fixed route; everything else falls through to the any-path route. An
// empty suffix is the bare /returnAll route.
func Match(suffix string) (Route, map[string]string) {
	if suffix == "" {
		return Routes[0], map[string]string{}
	}
	segments := strings.Split(suffix, "/")
	if !slices.Contains(segments, "") {
		for _, r := range Routes {
			if r.Wildcard || len(r.Params) == 0 || len(r.Params) != len(segments) {
				continue
			}
			vars := make(map[string]string, len(segments))
			for i, name := range r.Params {
				vars[name] = segments[i]
			}
			return r, vars
		}
	}
	return Routes[len(Routes)-1], map[string]string{wildcardParam: suffix}
}

type rootResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
	Version   string            `json:"version"`
}

// Root describes the service (GET /).
func Root(c echo.Context) error {
	endpoints := make(map[string]string, len(Routes))
	for _, r := range Routes {
		endpoints[r.Name] = fmt.Sprintf("%s (POST) - %s", r.Display, r.Description)
	}
	return c.JSON(http.StatusOK, rootResponse{
		Message:   "returnAll API service is running",
		Endpoints: endpoints,
		Version:   Version,
	})
}

// CaptureHandler echoes requests back and records them to the sink.
type CaptureHandler struct {
	Capturer *capture.Capturer
	Sink     logsink.Sink
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
	// Decompress undoes a supported Content-Encoding before interpretation.
	Decompress bool
	// TrustProxy takes the client host from echo's real-IP extraction.
	TrustProxy bool
}

// Register mounts the capture endpoints on e. Echo would let a trailing
// named parameter swallow deeper paths, so everything below /returnAll goes
// through one catch-all and is dispatched by Match.
func (h *CaptureHandler) Register(e *echo.Echo) {
	e.POST("/returnAll", h.Capture)
	e.POST("/returnAll/*", h.Capture)
}

// Capture echoes the request back and records it.
func (h *CaptureHandler) Capture(c echo.Context) error {
	route, vars := Match(c.Param("*"))
	req := c.Request()
	ctx := req.Context()

	raw, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		h.Logger.Error().Err(err).Str("route", route.Name).Msg("failed to read request body")
		return response.InternalError(c, "failed to read request body", err.Error())
	}

	payload, encoding := h.decode(raw, req.Header.Get(echo.HeaderContentEncoding))

	in := capture.Input{
		Method:      req.Method,
		URL:         requestURL(c),
		PathVars:    pathVars(c),
		ExtraParams: vars,
		Query:       c.QueryParams(),
		Header:      req.Header,
		Host:        req.Host,
		RemoteAddr:  req.RemoteAddr,
	}
	if route.Wildcard {
		p := vars[wildcardParam]
		in.Wildcard = &p
	}
	if h.TrustProxy {
		in.ClientHost = c.RealIP()
	}

	rec := h.Capturer.Capture(in)
	body.Interpret(payload).Apply(&rec)
	rec.BodyEncoding = string(encoding)

	h.Sink.Record(ctx, fmt.Sprintf("%s: %s", route.LogMessage, rec.RequestID), &rec)
	h.Metrics.ObserveCapture(route.Name, rec.IsValidJSON, len(payload))
	observability.Annotate(ctx, map[string]any{
		"request_id":    rec.RequestID,
		"route":         route.Name,
		"is_valid_json": rec.IsValidJSON,
	})

	return response.Captured(c, &rec)
}

func (h *CaptureHandler) decode(raw []byte, contentEncoding string) ([]byte, body.Encoding) {
	if !h.Decompress {
		return raw, body.EncodingNone
	}
	decoded, enc, err := body.Decode(raw, contentEncoding)
	if err != nil {
		h.Logger.Warn().Err(err).Str("encoding", string(enc)).Msg("interpreting undecodable body as-is")
		h.Metrics.ObserveDecodeFailure(string(enc))
		return raw, body.EncodingNone
	}
	return decoded, enc
}

// pathVars returns the named route parameters, leaving out the catch-all.
func pathVars(c echo.Context) map[string]string {
	names := c.ParamNames()
	values := c.ParamValues()
	vars := make(map[string]string, len(names))
	for i, name := range names {
		if name == "*" || i >= len(values) {
			continue
		}
		vars[name] = values[i]
	}
	return vars
}

func requestURL(c echo.Context) string {
	req := c.Request()
	uri := req.RequestURI
	if uri == "" {
		uri = req.URL.RequestURI()
	}
	return c.Scheme() + "://" + req.Host + uri
}
