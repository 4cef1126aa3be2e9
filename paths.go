package rawrfetch

import (
	"fmt"
	"net/url"
	"strings"
)

func profilePath(service, id string) string {
	return fmt.Sprintf("/api/v1/%s/user/%s/profile", url.PathEscape(service), url.PathEscape(id))
}

func postsPath(service, id string, offset, limit int) string {
	return fmt.Sprintf("/api/v1/%s/user/%s/posts?o=%d&limit=%d", url.PathEscape(service), url.PathEscape(id), offset, limit)
}

func postPath(service, id, post string) string {
	return fmt.Sprintf("/api/v1/%s/user/%s/post/%s", url.PathEscape(service), url.PathEscape(id), url.PathEscape(post))
}

func recentPath(offset, limit int) string {
	return fmt.Sprintf("/api/v1/posts?o=%d&limit=%d", offset, limit)
}

func searchPath(query, service string) string {
	v := url.Values{"q": {query}}
	if service != "" {
		v.Set("service", service)
	}
	return "/api/v1/creators/search?" + v.Encode()
}

// hostURL joins a mirror host and a path. Hosts that already carry a scheme
// are used as-is.
func hostURL(scheme, host, path string) string {
	if strings.Contains(host, "://") {
		return strings.TrimSuffix(host, "/") + path
	}
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + host + path
}

func normalizeService(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}

func creatorKey(service, id string) string {
	return service + "/" + strings.TrimSpace(id)
}
