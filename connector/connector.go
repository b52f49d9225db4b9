package connector

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Handshake constants.
const (
	ProtocolVersion   = "2.1"
	CodeServerKey     = "gwt.codesvr"
	DefaultCodeServer = "localhost:9997"
)

// Host is the page-side surface handed to a connector's Init.
type Host interface {
	// Href is the top-level page URL.
	Href() string

	// Disconnected is called by the connector when the code server drops
	// the link. It may be called from any goroutine and more than once.
	Disconnected()
}

// ConnectRequest carries the arguments of the connect handshake.
type ConnectRequest struct {
	URL             string
	SessionID       string
	CodeServer      string
	Module          string
	ProtocolVersion string
}

// Connector is a plugin capable of bridging the page to a code server.
type Connector interface {
	// Init binds the connector to the host. false means the connector is
	// not usable here.
	Init(ctx context.Context, host Host) (bool, error)

	// Connect opens the link. false is an explicit refusal.
	Connect(ctx context.Context, req ConnectRequest) (bool, error)

	// Disconnect closes the link.
	Disconnect(ctx context.Context) error
}

// Kind identifies where a connector was found.
type Kind uint8

const (
	KindNative Kind = iota
	KindObject
	KindEmbed
)

func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindObject:
		return "object"
	case KindEmbed:
		return "embed"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// CodeServer extracts the code server address from a page query string.
// The value runs from the key to the next '&' and is percent-decoded; a
// missing key or an undecodable value yields DefaultCodeServer.
func CodeServer(search string) string {
	key := CodeServerKey + "="
	idx := strings.Index(search, key)
	if idx < 0 {
		return DefaultCodeServer
	}
	value := search[idx+len(key):]
	if amp := strings.IndexByte(value, '&'); amp >= 0 {
		value = value[:amp]
	}
	decoded, err := url.PathUnescape(value)
	if err != nil {
		return DefaultCodeServer
	}
	return decoded
}

// HasQueryKey reports whether key= appears in the query string.
func HasQueryKey(search, key string) bool {
	return strings.Contains(search, key+"=")
}
