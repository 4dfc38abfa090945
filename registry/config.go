package registry

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidServer = errors.New("server must start with http:// or https://")

// Config holds the connection settings resolved from the command line.
type Config struct {
	Server   string
	Username string
	Password string
}

// ParseServer validates the scheme of raw and returns the API base URL,
// e.g. "http://host:5000" becomes "http://host:5000/v2/".
func ParseServer(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "", fmt.Errorf("%w: %q", ErrInvalidServer, raw)
	}
	return strings.TrimSuffix(raw, "/") + "/v2/", nil
}

// AuthToken returns the basic auth token, or "" when either credential is empty.
func (c Config) AuthToken() string {
	if c.Username == "" || c.Password == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
}
