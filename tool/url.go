package tool

import (
	"fmt"
	"net/url"
	"strings"
)

// BuildDownloadURL builds the recipient-facing share link:
// <base>/download/<sessionId>?token=<publicToken>.
// The base host comes from config, never from ambient request state.
func BuildDownloadURL(baseURL, sessionId, publicToken string) (string, error) {
	base := strings.TrimRight(baseURL, "/")
	u, err := url.Parse(fmt.Sprintf("%s/download/%s", base, sessionId))
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %v", err)
	}
	q := url.Values{}
	q.Set("token", publicToken)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
