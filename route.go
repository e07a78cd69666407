package discover

import (
	"net/url"
	"strings"
)

// Route is the path pattern the controller is mounted on.
const Route = "/discover/:id?"

const routePrefix = "/discover"

// ParseRoute extracts the optional saved search id from a path.
// ok is false when path is not a discover route.
func ParseRoute(path string) (id string, ok bool) {
	if path == routePrefix || path == routePrefix+"/" {
		return "", true
	}
	rest, found := strings.CutPrefix(path, routePrefix+"/")
	if !found || strings.Contains(rest, "/") {
		return "", false
	}
	id, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return id, true
}

// RoutePath builds the path for a saved search id.
func RoutePath(id string) string {
	if id == "" {
		return routePrefix
	}
	return routePrefix + "/" + url.PathEscape(id)
}
