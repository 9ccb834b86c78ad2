package rest

import (
	"regexp"
	"strings"
)

var majorParameter = regexp.MustCompile(`(?:channels|guilds|webhooks)/(\d{16,})`)

// MajorParameter returns the first id following channels/, guilds/ or
// webhooks/ in route, or "" when there is none. Requests that differ only in
// their major parameter have separate rate limits.
func MajorParameter(route string) string {
	if match := majorParameter.FindStringSubmatch(route); match != nil {
		return match[1]
	}
	return ""
}

// BucketKey groups requests that share a rate limit: the method and the
// route with every id except the major parameter replaced by :id.
func BucketKey(method, route string) string {
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}

	major := MajorParameter(route)
	segments := strings.Split(strings.Trim(route, "/"), "/")

	for i, segment := range segments {
		switch {
		case i > 0 && segments[i-1] == "reactions":
			segments[i] = ":reaction"
		case i > 0 && segment == major && (segments[i-1] == "channels" || segments[i-1] == "guilds" || segments[i-1] == "webhooks"):
			// kept
		case isID(segment):
			segments[i] = ":id"
		case i > 1 && segments[i-2] == "webhooks" && !isID(segment):
			segments[i] = ":token"
		}
	}

	return method + " /" + strings.Join(segments, "/")
}

func isID(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
