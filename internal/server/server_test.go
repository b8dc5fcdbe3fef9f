package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/kopra/internal/completion"
	"github.com/verte-zerg/kopra/internal/generator"
	"github.com/verte-zerg/kopra/internal/model"
	"github.com/verte-zerg/kopra/internal/store"
	"github.com/verte-zerg/kopra/internal/tts"
)

type fakeChat struct {
	result completion.Result
	err    error
	prompt string
}

func (f *fakeChat) Complete(_ context.Context, prompt string) (completion.Result, error) {
	f.prompt = prompt
	return f.result, f.err
}

type fakeSpeech struct {
	dir   string
	err   error
	batch tts.BatchRequest
}

func (f *fakeSpeech) Synthesize(_ context.Context, req tts.Request) (tts.Result, error) {
	if f.err != nil {
		return tts.Result{}, f.err
	}
	path := filepath.Join(f.dir, "one.mp3")
	if err := os.WriteFile(path, []byte("ID3"+req.Text), 0o644); err != nil {
		return tts.Result{}, err
	}
	return tts.Result{Path: path}, nil
}

func (f *fakeSpeech) Batch(_ context.Context, req tts.BatchRequest) (tts.Result, error) {
	f.batch = req
	if f.err != nil {
		return tts.Result{}, f.err
	}
	path := filepath.Join(f.dir, "batch.mp3")
	if err := os.WriteFile(path, []byte("batch"), 0o644); err != nil {
		return tts.Result{}, err
	}
	return tts.Result{Path: path, Cached: true}, nil
}

type fixture struct {
	router http.Handler
	store  *store.Store
	chat   *fakeChat
	speech *fakeSpeech
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := store.Open(filepath.Join(t.TempDir(), "kopra.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	chat := &fakeChat{result: completion.Result{Response: "안녕", Model: "test-model", Usage: completion.Usage{TotalTokens: 3}}}
	speech := &fakeSpeech{dir: t.TempDir()}
	srv := New(Options{Store: st, Chat: chat, Generator: generator.New(chat, st), Speech: speech})
	return fixture{router: srv.Handler(), store: st, chat: chat, speech: speech}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChat(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/chat", map[string]string{"prompt": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[completion.Result](t, rec)
	assert.Equal(t, "안녕", got.Response)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, 3, got.Usage.TotalTokens)
	assert.Equal(t, "hi", f.chat.prompt)

	rec = f.do(t, http.MethodPost, "/api/chat", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.chat.err = errors.New("upstream down")
	rec = f.do(t, http.MethodPost, "/api/chat", map[string]string{"prompt": "hi"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "Failed to get response from Groq", body.Error)
	assert.Equal(t, "upstream down", body.Details)
}

func TestTTS(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tts", map[string]any{"text": "안녕"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "ID3안녕", rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/tts", map[string]any{"lang": "ko-KR"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text is required", decode[errorResponse](t, rec).Error)

	f.speech.err = errors.New("status 503")
	rec = f.do(t, http.MethodPost, "/api/tts", map[string]any{"text": "안녕"})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "Failed to generate TTS audio", body.Error)
	assert.Equal(t, "status 503", body.Details)
}

func TestTTSBatch(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/tts/batch", map[string]any{"words": []any{}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "words array is required", decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/tts/batch", map[string]any{
		"words":        []map[string]string{{"korean": "물", "english": "water"}},
		"delaySeconds": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.Len(t, f.speech.batch.Words, 1)
	require.NotNil(t, f.speech.batch.DelaySeconds)
	assert.Equal(t, 1.0, *f.speech.batch.DelaySeconds)
}

func TestCurriculumPhrases(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/curriculum-phrases/random", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No curriculum phrases found", decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases", map[string]any{"korean_text": "가요"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "korean_text and english_text are required", decode[errorResponse](t, rec).Error)

	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases", `{
		"korean_text": "저는 학교에 가요",
		"english_text": "I go to school",
		"blank_word_index": 2,
		"correct_answers": ["가요"],
		"word_types": ["pronoun", "noun", "verb"]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}](t, rec)
	require.True(t, created.Success)

	rec = f.do(t, http.MethodGet, "/api/curriculum-phrases", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Phrase](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, []int{2}, list[0].BlankWordIndices)
	assert.Equal(t, model.Answers{"가요"}, list[0].CorrectAnswers[0])

	id := strconv.FormatInt(created.ID, 10)
	rec = f.do(t, http.MethodPut, "/api/curriculum-phrases/"+id, `{
		"korean_text": "저는 집에 가요",
		"english_text": "I go home",
		"blank_word_indices": [1, 2],
		"correct_answers": [["집에", "집으로"], "가요"]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPut, "/api/curriculum-phrases/abc", map[string]string{"korean_text": "a", "english_text": "b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPut, "/api/curriculum-phrases/999", map[string]string{"korean_text": "a", "english_text": "b"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases/"+id+"/correct", map[string]any{"correct": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases/"+id+"/correct", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases/"+id+"/correct", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases/"+id+"/correct", map[string]any{"correct": "false"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases/"+id+"/correct", map[string]any{"correct": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/curriculum-phrases/"+id+"/correct", `{"correct":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p, err := f.store.GetPhrase(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "저는 집에 가요", p.KoreanText)
	assert.Equal(t, model.Answers{"집에", "집으로"}, p.CorrectAnswers[0])
	assert.Equal(t, 4, p.TimesCorrect)
	assert.Equal(t, 1, p.TimesIncorrect)

	rec = f.do(t, http.MethodGet, "/api/curriculum-phrases/random", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/curriculum-phrases/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/curriculum-phrases/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.SaveWord(ctx, model.Word{Type: model.WordNoun, Korean: "물", English: "water"})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/words/noun?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	words := decode[[]model.Word](t, rec)
	require.Len(t, words, 1)
	assert.Equal(t, "water", words[0].English)

	rec = f.do(t, http.MethodGet, "/api/words/bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/words/learning", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Word](t, rec), 1)

	rec = f.do(t, http.MethodPost, "/api/words/correct", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/words/correct", map[string]string{"word": "물"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["updated"])

	rec = f.do(t, http.MethodPost, "/api/words/check-learned", map[string]any{"word": "물", "threshold": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["learned"])

	rec = f.do(t, http.MethodPost, "/api/words/tags", map[string]any{"type": "adverbial", "korean": "물"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/words/tags", map[string]any{"type": "noun", "korean": "물", "is_favorite": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["updated"])

	rec = f.do(t, http.MethodGet, "/api/words/stats/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]model.WordTypeSummary](t, rec)
	assert.Equal(t, 1, summary["noun"].Count)
	assert.Equal(t, 2, summary["noun"].TotalSeen)
}

func TestModelSentence(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/model-sentence", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/model-sentence", map[string]string{"english": "I eat"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/model-sentence", map[string]string{"english": "I eat", "korean": "먹어요"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/model-sentence", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "먹어요", decode[model.ModelSentence](t, rec).Korean)

	rec = f.do(t, http.MethodDelete, "/api/model-sentence", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/model-sentence", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/conversations", map[string]any{"title": "empty"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/conversations", map[string]any{
		"title": "Greetings",
		"items": []map[string]string{{"korean": "안녕하세요", "english": "Hello"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	saved := decode[model.ConversationSet](t, rec)
	require.NotEmpty(t, saved.ID)

	rec = f.do(t, http.MethodGet, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sets := decode[[]model.ConversationSet](t, rec)
	require.Len(t, sets, 1)
	assert.Equal(t, "Greetings", sets[0].Title)

	rec = f.do(t, http.MethodDelete, "/api/conversations/"+saved.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/conversations/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := New(Options{})
	srv.engine.GET("/panic", func(*gin.Context) { panic("boom") })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[errorResponse](t, rec).Error)
}

func TestTranslate(t *testing.T) {
	f := newFixture(t)
	f.chat.result.Response = "  I go to school\n"

	rec := f.do(t, http.MethodPost, "/api/translate", map[string]string{"message": "학교에 가요"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]string](t, rec)
	assert.Equal(t, "I go to school", got["corrected"])
	assert.Contains(t, f.chat.prompt, "User message: 학교에 가요")

	rec = f.do(t, http.MethodPost, "/api/translate", map[string]string{"text": " "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text is required", decode[errorResponse](t, rec).Error)

	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{completion.ErrNoAPIKey, http.StatusInternalServerError, "GROQ_API_KEY is not configured"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "Groq request timed out"},
		{errors.New("rate limited"), http.StatusBadGateway, "Groq API error"},
	}
	for _, tc := range cases {
		f.chat.err = tc.err
		rec = f.do(t, http.MethodPost, "/api/translate", map[string]string{"text": "hello"})
		require.Equal(t, tc.status, rec.Code, tc.msg)
		assert.Equal(t, tc.msg, decode[errorResponse](t, rec).Error)
	}
}

func TestGenerateVariations(t *testing.T) {
	f := newFixture(t)
	f.chat.result.Response = `[{"korean":"저는 차를 마셨어요","english":"I drank tea"},{"korean":"저는 간식을 안 먹어요","english":"I don't eat snacks"}]`

	body := map[string]string{"korean": "저는 커피를 좋아해요", "english": "I like coffee"}
	rec := f.do(t, http.MethodPost, "/api/generate-variations", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[variationsResponse](t, rec)
	require.Len(t, got.Variations, 2)
	assert.Equal(t, model.SentencePair{Korean: "저는 차를 마셨어요", English: "I drank tea"}, got.Variations[0])
	assert.Contains(t, f.chat.prompt, "저는 커피를 좋아해요")

	rec = f.do(t, http.MethodPost, "/api/generate-variations", map[string]string{"korean": "저는 커피를 좋아해요"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Both english and korean sentences are required", decode[errorResponse](t, rec).Error)

	f.chat.result.Response = "no array here"
	rec = f.do(t, http.MethodPost, "/api/generate-variations", body)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to parse variations", decode[errorResponse](t, rec).Error)
}

func preflight(router http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	rec := preflight(f.router, "http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	rec = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	restricted := New(Options{Store: f.store, Chat: f.chat, Speech: f.speech, CORSOrigins: []string{"http://app.test"}}).Handler()
	rec = preflight(restricted, "http://app.test")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://app.test", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(restricted, "http://other.test")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestValidateCORSOrigins(t *testing.T) {
	require.NoError(t, ValidateCORSOrigins(nil))
	require.NoError(t, ValidateCORSOrigins([]string{"https://kopra.example"}))
	require.Error(t, ValidateCORSOrigins([]string{"kopra.example"}))
}

func TestTranslateWithoutGenerator(t *testing.T) {
	f := newFixture(t)
	router := New(Options{Store: f.store, Chat: f.chat, Speech: f.speech}).Handler()
	req := httptest.NewRequest(http.MethodPost, "/api/translate", bytes.NewReader([]byte(`{"text":"hi"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "GROQ_API_KEY is not configured", decode[errorResponse](t, rec).Error)
}
