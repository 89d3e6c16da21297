package httpapi

import "strings"

// Config defines HTTP API and UI settings.
type Config struct {
	Addr            string
	SessionCookie   string
	SessionTTLHours int
	// BaseURL and BasePath place the UI behind a reverse proxy.
	BaseURL     string
	BasePath    string
	MaxUploadMB int
}

func (c Config) maxUploadMB() int {
	if c.MaxUploadMB <= 0 {
		return 10
	}
	return c.MaxUploadMB
}

func (c Config) maxUploadBytes() int64 {
	return int64(c.maxUploadMB()) << 20
}

// mountPath is BasePath with a leading slash and no trailing slash; "" mounts
// at the root.
func (c Config) mountPath() string {
	path := strings.Trim(strings.TrimSpace(c.BasePath), "/")
	if path == "" {
		return ""
	}
	return "/" + path
}

// baseHref is the href of the page's <base> element, or "" when the UI is
// served from the root of its own origin.
func (c Config) baseHref() string {
	href := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") + c.mountPath()
	if href == "" {
		return ""
	}
	return href + "/"
}
