package reqctx

import (
	"strings"
)

// Agent holds the facets parsed out of a User-Agent header. Source always
// carries the raw header so nothing is lost when parsing comes up empty.
type Agent struct {
	Browser  string `json:"browser"`
	Version  string `json:"version"`
	OS       string `json:"os"`
	Platform string `json:"platform"`
	Source   string `json:"source"`
}

// browserTokens in detection order. Order matters: Chrome's UA contains
// "Safari", Edge's contains both, and most bots contain none.
var browserTokens = []struct {
	token, name string
}{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"samsungbrowser/", "Samsung Browser"},
	{"firefox/", "Firefox"},
	{"chrome/", "Chrome"},
	{"safari/", "Safari"},
	{"msie", "IE"},
	{"trident/", "IE"},
	{"curl/", "curl"},
	{"wget/", "wget"},
	{"python-requests/", "python-requests"},
	{"go-http-client/", "Go-http-client"},
}

var osTokens = []struct {
	token, name string
}{
	{"windows nt 10", "Windows 10"},
	{"windows nt 6.3", "Windows 8.1"},
	{"windows nt 6.1", "Windows 7"},
	{"windows", "Windows"},
	{"android", "Android"},
	{"iphone os", "iOS"},
	{"cpu os", "iOS"},
	{"mac os x", "macOS"},
	{"cros", "Chrome OS"},
	{"linux", "Linux"},
	{"freebsd", "FreeBSD"},
}

var platformTokens = []struct {
	token, name string
}{
	{"ipad", "iPad"},
	{"iphone", "iPhone"},
	{"android", "Android"},
	{"windows", "Microsoft Windows"},
	{"macintosh", "Apple Mac"},
	{"cros", "Chromebook"},
	{"linux", "Linux"},
}

// ParseAgent extracts coarse browser/OS/platform facets from a raw
// User-Agent string. Unknown values come back as "unknown"; the raw header
// is preserved in Source.
func ParseAgent(source string) Agent {
	a := Agent{
		Browser:  "unknown",
		Version:  "unknown",
		OS:       "unknown",
		Platform: "unknown",
		Source:   source,
	}
	lower := strings.ToLower(source)

	for _, b := range browserTokens {
		if idx := strings.Index(lower, b.token); idx >= 0 {
			a.Browser = b.name
			if v := versionAfter(source, idx+len(b.token)); v != "" {
				a.Version = v
			}
			break
		}
	}
	for _, o := range osTokens {
		if strings.Contains(lower, o.token) {
			a.OS = o.name
			break
		}
	}
	for _, p := range platformTokens {
		if strings.Contains(lower, p.token) {
			a.Platform = p.name
			break
		}
	}
	return a
}

// versionAfter reads a dotted version number starting at offset.
func versionAfter(s string, offset int) string {
	if offset >= len(s) {
		return ""
	}
	end := offset
	for end < len(s) {
		c := s[end]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		end++
	}
	return strings.Trim(s[offset:end], ".")
}
