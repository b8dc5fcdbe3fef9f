package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Options{
		CacheDir:   t.TempDir(),
		BaseURL:    srv.URL + "/translate_tts",
		SilenceURL: srv.URL + "/silence.mp3",
	})
	require.NoError(t, err)
	return client, &calls
}

func TestLangCode(t *testing.T) {
	cases := map[string]string{
		"ko-KR": "ko",
		"en-US": "en",
		"ja-JP": "ja",
		"fr":    "fr",
	}
	for in, want := range cases {
		assert.Equal(t, want, LangCode(in), in)
	}
}

func TestCacheKeyFormatsRate(t *testing.T) {
	assert.Equal(t, CacheKey("안녕", "ko-KR", 1), CacheKey("안녕", "ko-KR", 1.0))
	assert.NotEqual(t, CacheKey("안녕", "ko-KR", 1), CacheKey("안녕", "ko-KR", 0.6))
	assert.Len(t, CacheKey("x", "ko-KR", 1), 32)
}

func TestSynthesizeCachesAudio(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ko", r.URL.Query().Get("tl"))
		assert.Equal(t, "tw-ob", r.URL.Query().Get("client"))
		assert.Equal(t, "안녕하세요", r.URL.Query().Get("q"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	})

	ctx := context.Background()
	first, err := client.Synthesize(ctx, Request{Text: " 안녕하세요 "})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, CacheKey("안녕하세요", DefaultLang, DefaultRate)+".mp3", filepath.Base(first.Path))

	data, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(data))

	second, err := client.Synthesize(ctx, Request{Text: "안녕하세요", Lang: "ko-KR", Rate: 1})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.Synthesize(context.Background(), Request{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestSynthesizeUpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := client.Synthesize(context.Background(), Request{Text: "안녕"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	entries, err := os.ReadDir(client.cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestBatchConcatenatesPromptSilenceAndWord(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/silence.mp3" {
			_, _ = w.Write([]byte("_"))
			return
		}
		switch r.URL.Query().Get("tl") {
		case "en":
			assert.Equal(t, `How do you say "water"?`, r.URL.Query().Get("q"))
			_, _ = w.Write([]byte("E"))
		default:
			_, _ = w.Write([]byte("K"))
		}
	})

	delay := 2.0
	res, err := client.Batch(context.Background(), BatchRequest{
		Words:        []BatchWord{{Korean: "물", English: "water"}},
		DelaySeconds: &delay,
	})
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(res.Path), "batch_")

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "E__K", string(data))

	again, err := client.Batch(context.Background(), BatchRequest{
		Words:        []BatchWord{{Korean: "물", English: "water"}},
		DelaySeconds: &delay,
	})
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestBatchRequiresWords(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.Batch(context.Background(), BatchRequest{})
	assert.ErrorIs(t, err, ErrNoWords)
}

func TestBatchCapsWordCount(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("K"))
	})
	words := make([]BatchWord, MaxBatchWords+5)
	for i := range words {
		words[i] = BatchWord{Korean: "물"}
	}
	zero := 0.0
	res, err := client.Batch(context.Background(), BatchRequest{Words: words, DelaySeconds: &zero})
	require.NoError(t, err)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Len(t, data, MaxBatchWords)
	assert.Equal(t, int32(MaxBatchWords), atomic.LoadInt32(calls))
}

func TestBatchFailedSegmentIsNotCached(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "불" && failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("K"))
	})
	zero := 0.0
	req := BatchRequest{
		Words:        []BatchWord{{Korean: "물"}, {Korean: "불"}, {Korean: "흙"}},
		DelaySeconds: &zero,
	}

	_, err := client.Batch(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))

	entries, err := os.ReadDir(client.cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	failing.Store(false)
	res, err := client.Batch(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, int32(5), atomic.LoadInt32(calls))

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "KKK", string(data))
}
