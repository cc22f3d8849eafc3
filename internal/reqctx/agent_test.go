package reqctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAgent(t *testing.T) {
	t.Run("desktop Chrome on Windows", func(t *testing.T) {
		ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		a := ParseAgent(ua)

		assert.Equal(t, "Chrome", a.Browser)
		assert.Equal(t, "120.0.0.0", a.Version)
		assert.Equal(t, "Windows 10", a.OS)
		assert.Equal(t, "Microsoft Windows", a.Platform)
		assert.Equal(t, ua, a.Source)
	})

	t.Run("Firefox on Linux", func(t *testing.T) {
		a := ParseAgent("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")

		assert.Equal(t, "Firefox", a.Browser)
		assert.Equal(t, "121.0", a.Version)
		assert.Equal(t, "Linux", a.OS)
		assert.Equal(t, "Linux", a.Platform)
	})

	t.Run("Safari on iPhone", func(t *testing.T) {
		a := ParseAgent("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")

		assert.Equal(t, "Safari", a.Browser)
		assert.Equal(t, "iOS", a.OS)
		assert.Equal(t, "iPhone", a.Platform)
	})

	t.Run("Edge is detected before Chrome", func(t *testing.T) {
		a := ParseAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.61")

		assert.Equal(t, "Edge", a.Browser)
	})

	t.Run("curl", func(t *testing.T) {
		a := ParseAgent("curl/8.4.0")

		assert.Equal(t, "curl", a.Browser)
		assert.Equal(t, "8.4.0", a.Version)
	})

	t.Run("empty string yields unknown facets with preserved source", func(t *testing.T) {
		a := ParseAgent("")

		assert.Equal(t, "unknown", a.Browser)
		assert.Equal(t, "unknown", a.Version)
		assert.Equal(t, "unknown", a.OS)
		assert.Equal(t, "unknown", a.Platform)
		assert.Equal(t, "", a.Source)
	})
}
