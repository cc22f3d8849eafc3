package blocklist

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchIP(t *testing.T) {
	t.Run("exact address match", func(t *testing.T) {
		m := Compile([]string{"203.0.113.7"}, nil)
		assert.True(t, m.MatchIP("203.0.113.7"))
		assert.False(t, m.MatchIP("203.0.113.8"))
	})

	t.Run("CIDR range match", func(t *testing.T) {
		m := Compile([]string{"198.51.100.0/24"}, nil)
		assert.True(t, m.MatchIP("198.51.100.1"))
		assert.True(t, m.MatchIP("198.51.100.254"))
		assert.False(t, m.MatchIP("198.51.101.1"))
	})

	t.Run("IPv6 address match", func(t *testing.T) {
		m := Compile([]string{"2001:db8::1"}, nil)
		assert.True(t, m.MatchIP("2001:db8::1"))
		assert.False(t, m.MatchIP("2001:db8::2"))
	})

	t.Run("IPv4-mapped IPv6 matches its IPv4 form", func(t *testing.T) {
		m := Compile([]string{"203.0.113.7"}, nil)
		assert.True(t, m.MatchIP("::ffff:203.0.113.7"))
	})

	t.Run("unparseable entries compare literally", func(t *testing.T) {
		m := Compile([]string{"not-an-ip"}, nil)
		assert.True(t, m.MatchIP("not-an-ip"))
		assert.False(t, m.MatchIP("203.0.113.7"))
	})

	t.Run("empty list matches nothing", func(t *testing.T) {
		m := Compile(nil, nil)
		assert.False(t, m.MatchIP("203.0.113.7"))
		assert.True(t, m.Empty())
	})
}

func TestMatchUserAgent(t *testing.T) {
	t.Run("case-insensitive substring match", func(t *testing.T) {
		m := Compile(nil, []string{"curl", "python-requests"})
		assert.True(t, m.MatchUserAgent("curl/8.4.0"))
		assert.True(t, m.MatchUserAgent("CURL/8.4.0"))
		assert.True(t, m.MatchUserAgent("Python-Requests/2.31"))
		assert.False(t, m.MatchUserAgent("Mozilla/5.0"))
	})

	t.Run("fragment entries are normalized to lowercase", func(t *testing.T) {
		m := Compile(nil, []string{"GoogleBot"})
		assert.True(t, m.MatchUserAgent("Mozilla/5.0 (compatible; Googlebot/2.1)"))
	})

	t.Run("empty user agent never matches", func(t *testing.T) {
		m := Compile(nil, []string{"curl"})
		assert.False(t, m.MatchUserAgent(""))
	})

	t.Run("blank entries are dropped", func(t *testing.T) {
		m := Compile(nil, []string{"", "  "})
		assert.False(t, m.MatchUserAgent("anything"))
		assert.True(t, m.Empty())
	})
}

func TestListReplace(t *testing.T) {
	t.Run("replace swaps the active matcher", func(t *testing.T) {
		l := New([]string{"203.0.113.7"}, nil)
		require.True(t, l.Load().MatchIP("203.0.113.7"))

		l.Replace([]string{"198.51.100.22"}, []string{"curl"})

		m := l.Load()
		assert.False(t, m.MatchIP("203.0.113.7"))
		assert.True(t, m.MatchIP("198.51.100.22"))
		assert.True(t, m.MatchUserAgent("curl/7.0"))
	})

	t.Run("concurrent readers see a consistent matcher", func(t *testing.T) {
		l := New([]string{"203.0.113.7"}, []string{"curl"})

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 1000; j++ {
					m := l.Load()
					_ = m.MatchIP("203.0.113.7")
					_ = m.MatchUserAgent("curl/7.0")
				}
			}()
		}
		for j := 0; j < 100; j++ {
			l.Replace([]string{"198.51.100.22"}, []string{"wget"})
		}
		wg.Wait()
	})
}
