package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorseEncode(t *testing.T) {
	t.Run("classic distress signal", func(t *testing.T) {
		got, err := morseEncode("sos")
		require.NoError(t, err)
		assert.Equal(t, "... --- ...", got)
	})

	t.Run("case insensitive", func(t *testing.T) {
		upper, err := morseEncode("SOS")
		require.NoError(t, err)
		lower, err2 := morseEncode("sos")
		require.NoError(t, err2)
		assert.Equal(t, lower, upper)
	})

	t.Run("words separated by slash", func(t *testing.T) {
		got, err := morseEncode("hi yo")
		require.NoError(t, err)
		assert.Equal(t, ".... .. / -.-- ---", got)
	})

	t.Run("digits and punctuation", func(t *testing.T) {
		got, err := morseEncode("73!")
		require.NoError(t, err)
		assert.Equal(t, "--... ...-- -.-.--", got)
	})

	t.Run("untranslatable rune reports the rune", func(t *testing.T) {
		_, err := morseEncode("héllo")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "é")
	})
}

func TestMorseDecode(t *testing.T) {
	t.Run("decodes the distress signal", func(t *testing.T) {
		got, err := morseDecode("... --- ...")
		require.NoError(t, err)
		assert.Equal(t, "sos", got)
	})

	t.Run("slash restores word breaks", func(t *testing.T) {
		got, err := morseDecode(".... .. / -.-- ---")
		require.NoError(t, err)
		assert.Equal(t, "hi yo", got)
	})

	t.Run("unknown sequence fails", func(t *testing.T) {
		_, err := morseDecode("........")
		assert.Error(t, err)
	})

	t.Run("round trip", func(t *testing.T) {
		encoded, err := morseEncode("the quick brown fox 123")
		require.NoError(t, err)
		decoded, err := morseDecode(encoded)
		require.NoError(t, err)
		assert.Equal(t, "the quick brown fox 123", decoded)
	})
}

func TestMorseInvoke(t *testing.T) {
	m := NewMorse()

	t.Run("en produces an encode outcome", func(t *testing.T) {
		outcomes, ok := m.Invoke(context.Background(), Params{Encode: "sos"})
		require.True(t, ok)
		require.Len(t, outcomes, 1)
		assert.Equal(t, []Field{
			{Key: "input", Value: "sos"},
			{Key: "result", Value: "... --- ..."},
		}, outcomes[0].Fields)
	})

	t.Run("both en and de produce two outcomes in order", func(t *testing.T) {
		outcomes, ok := m.Invoke(context.Background(), Params{Encode: "e", Decode: "-"})
		require.True(t, ok)
		require.Len(t, outcomes, 2)
		assert.Equal(t, "e", outcomes[0].Fields[0].Value)
		assert.Equal(t, "-", outcomes[1].Fields[0].Value)
		assert.Equal(t, "t", outcomes[1].Fields[1].Value)
	})

	t.Run("encode failure lands in the result field", func(t *testing.T) {
		outcomes, ok := m.Invoke(context.Background(), Params{Encode: "héllo"})
		require.True(t, ok)
		require.Len(t, outcomes, 1)
		assert.Contains(t, outcomes[0].Fields[1].Value, "no morse translation")
	})

	t.Run("no relevant params is unrecognized", func(t *testing.T) {
		outcomes, ok := m.Invoke(context.Background(), Params{ID: "5"})
		assert.False(t, ok)
		assert.Empty(t, outcomes)
	})
}
