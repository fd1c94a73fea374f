package session

import (
	"mime"
	"net/http"
	"slices"
	"strings"
)

// ProtocolVersionHeader carries the negotiated MCP protocol version on every
// request after initialize.
const ProtocolVersionHeader = "Mcp-Protocol-Version"

// defaultProtocolVersion is assumed when a client omits the version header.
const defaultProtocolVersion = "2025-03-26"

// supportedProtocolVersions matches the versions the MCP SDK negotiates.
var supportedProtocolVersions = []string{
	"2025-11-25",
	"2025-06-18",
	"2025-03-26",
	"2024-11-05",
}

const (
	mimeJSON        = "application/json"
	mimeEventStream = "text/event-stream"
)

// headerError describes a request rejected for its headers.
type headerError struct {
	status  int
	message string
}

// checkHeaders applies the header rules of the SDK's StreamableHTTPHandler.
// DELETE only needs a supported protocol version.
func checkHeaders(r *http.Request) *headerError {
	if r.Method == http.MethodPost {
		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != mimeJSON {
			return &headerError{http.StatusUnsupportedMediaType, "Content-Type must be 'application/json'"}
		}
	}

	jsonOK, streamOK := acceptable(r.Header.Values("Accept"))
	switch r.Method {
	case http.MethodGet:
		if !streamOK {
			return &headerError{http.StatusBadRequest, "Accept must contain 'text/event-stream' for GET requests"}
		}
	case http.MethodPost:
		if !jsonOK || !streamOK {
			return &headerError{http.StatusBadRequest, "Accept must contain both 'application/json' and 'text/event-stream'"}
		}
	}

	version := r.Header.Get(ProtocolVersionHeader)
	if version == "" {
		version = defaultProtocolVersion
	}
	if !slices.Contains(supportedProtocolVersions, version) {
		return &headerError{
			http.StatusBadRequest,
			"Bad Request: Unsupported protocol version (supported versions: " +
				strings.Join(supportedProtocolVersions, ",") + ")",
		}
	}
	return nil
}

// acceptable reports whether the Accept values admit JSON and event-stream
// responses. Multiple Accept headers are merged.
func acceptable(values []string) (jsonOK, streamOK bool) {
	for _, v := range strings.Split(strings.Join(values, ","), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		switch mt {
		case mimeJSON, "application/*":
			jsonOK = true
		case mimeEventStream, "text/*":
			streamOK = true
		case "*/*":
			jsonOK, streamOK = true, true
		}
	}
	return jsonOK, streamOK
}
