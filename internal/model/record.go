package model

// ClientInfo is the peer address of a captured request.
// Both fields are null when the transport exposes no peer address.
type ClientInfo struct {
	Host *string `json:"host"`
	Port *int    `json:"port"`
}

// ErrorDetails pinpoints where a request body stopped being valid JSON.
// LineContent and Pointer are either both set or both nil.
type ErrorDetails struct {
	ErrorType   string  `json:"error_type"`
	Message     string  `json:"message"`
	Line        int     `json:"line"`
	Column      int     `json:"column"`
	Position    int     `json:"position"` // 0-based character offset
	ErrorChar   string  `json:"error_char"`
	LineContent *string `json:"line_content,omitempty"`
	Pointer     *string `json:"pointer,omitempty"`
}

// RequestRecord is everything captured about one inbound request.
// It is built once per request and only read afterwards.
type RequestRecord struct {
	RequestID    string            `json:"request_id"`
	Timestamp    string            `json:"timestamp"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Path         *string           `json:"path,omitempty"`       // wildcard routes only
	PathParts    []string          `json:"path_parts,omitempty"` // wildcard routes only
	PathParams   map[string]string `json:"path_params"`
	QueryParams  map[string]string `json:"query_params"`
	Headers      map[string]string `json:"headers"`
	Client       ClientInfo        `json:"client"`
	Body         any               `json:"body"`
	BodyEncoding string            `json:"body_encoding,omitempty"`
	IsValidJSON  bool              `json:"is_valid_json"`
	JSONError    string            `json:"json_error,omitempty"`
	OriginalBody string            `json:"original_body,omitempty"`
	ErrorDetails *ErrorDetails     `json:"error_details,omitempty"`
}

// CaptureResponse is the payload returned for every captured request.
type CaptureResponse struct {
	Message     string         `json:"message"`
	RequestInfo *RequestRecord `json:"request_info"`
	LogID       string         `json:"log_id"`
}

// NewCaptureResponse wraps rec in the success envelope.
func NewCaptureResponse(rec *RequestRecord) CaptureResponse {
	return CaptureResponse{
		Message:     "success",
		RequestInfo: rec,
		LogID:       rec.RequestID,
	}
}
