package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want map[string]any
		ok   bool
	}{
		{"plain", `{"korean":"물","english":"water"}`, map[string]any{"korean": "물", "english": "water"}, true},
		{"prose around", `Sure! Here it is: {"korean":"물"} Hope it helps.`, map[string]any{"korean": "물"}, true},
		{"fenced", "```json\n{\"korean\": \"물\"}\n```", map[string]any{"korean": "물"}, true},
		{"braces in strings", `{"note":"use } and { freely","k":"v"}`, map[string]any{"note": "use } and { freely", "k": "v"}, true},
		{"escaped quote", `{"note":"say \"hi\" }","k":1}`, map[string]any{"note": `say "hi" }`, "k": float64(1)}, true},
		{"nested", `x {"a":{"b":"c"}} y`, map[string]any{"a": map[string]any{"b": "c"}}, true},
		{"no object", "no json here", nil, false},
		{"unbalanced", `{"korean": "물"`, nil, false},
		{"invalid json", `{korean: 물}`, nil, false},
		{"empty", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractObject(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDecodeObject(t *testing.T) {
	var dst struct {
		Korean  string `json:"korean"`
		English string `json:"english"`
	}
	require.True(t, DecodeObject("Result:\n```\n{\"korean\":\"책\",\"english\":\"book\"}\n```", &dst))
	assert.Equal(t, "책", dst.Korean)
	assert.Equal(t, "book", dst.English)

	assert.False(t, DecodeObject("nothing", &dst))
}

func TestExtractArray(t *testing.T) {
	got, ok := ExtractArray(`Labels: ["noun", "particle", "verb"]`)
	require.True(t, ok)
	assert.Equal(t, []string{"noun", "particle", "verb"}, got)

	_, ok = ExtractArray(`[1, 2]`)
	assert.False(t, ok)

	_, ok = ExtractArray(`no array`)
	assert.False(t, ok)
}

func TestDecodeArray(t *testing.T) {
	var pairs []struct {
		Korean  string `json:"korean"`
		English string `json:"english"`
	}
	text := "Here you go:\n```json\n[{\"korean\":\"물 [물]\",\"english\":\"water\"},{\"korean\":\"불\",\"english\":\"fire\"}]\n```"
	require.True(t, DecodeArray(text, &pairs))
	require.Len(t, pairs, 2)
	assert.Equal(t, "물 [물]", pairs[0].Korean)
	assert.Equal(t, "fire", pairs[1].English)

	assert.False(t, DecodeArray(`{"korean":"물"}`, &pairs))
	assert.False(t, DecodeArray(`[{"korean":}]`, &pairs))
}
