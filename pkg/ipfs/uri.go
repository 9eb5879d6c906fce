package ipfs

import (
	"regexp"
	"strings"
)

const (
	Scheme         = "ipfs://"
	DefaultGateway = "https://ipfs.io/ipfs/"
)

var gatewayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://ipfs\.io/ipfs/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`^https?://gateway\.pinata\.cloud/ipfs/([a-zA-Z0-9]+)`),
	regexp.MustCompile(`^https?://([a-z0-9]+)\.ipfs\.dweb\.link/?`),
}

func ToURI(cid string) string {
	return Scheme + cid
}

// ParseURI strips the ipfs:// scheme. Bare CIDs are returned unchanged.
func ParseURI(uri string) string {
	return strings.TrimPrefix(strings.TrimSpace(uri), Scheme)
}

// ToGatewayURL turns ipfs://cid into an HTTP URL under gateway.
// Values that are not ipfs:// URIs are returned as is.
func ToGatewayURL(uri, gateway string) string {
	if uri == "" || !strings.HasPrefix(uri, Scheme) {
		return uri
	}
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}
	return gateway + ParseURI(uri)
}

// FromGatewayURL recognises the common public gateways and returns ipfs://cid, or "".
func FromGatewayURL(url string) string {
	for _, p := range gatewayPatterns {
		if m := p.FindStringSubmatch(url); len(m) == 2 {
			return ToURI(m[1])
		}
	}
	return ""
}

// MediaType classifies a MIME type as image, video, audio or other.
func MediaType(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	case strings.HasPrefix(mime, "audio/"):
		return "audio"
	default:
		return "other"
	}
}
