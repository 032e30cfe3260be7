package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/recurrent/internal/checkpoint"
	"github.com/samcharles93/recurrent/internal/logger"
	"github.com/samcharles93/recurrent/internal/lstm"
	"github.com/samcharles93/recurrent/internal/vocab"
)

func newTestStore(t *testing.T, cfg ModelStoreConfig) *ModelStore {
	t.Helper()
	v := vocab.Build(vocab.SplitVocabulary("the cat sat on the mat ."))
	m, err := lstm.New(lstm.Config{VocabSize: v.Size(), HiddenSize: 4, ContextWindow: 2, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewModelStore(m, v, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestEcho(t *testing.T, store *ModelStore) *echo.Echo {
	t.Helper()
	server := NewServer(store, logger.Discard())
	e := echo.New()
	server.Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestModelInfo(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, newTestStore(t, ModelStoreConfig{}))
	rec := doJSON(t, e, http.MethodGet, "/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	info := decode[ModelInfo](t, rec)
	// [PAD] the cat sat on mat .
	if info.VocabSize != 7 || info.ContextWindow != 2 || info.InputSize != 14 || info.Backend != "cpu" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestPredict(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, newTestStore(t, ModelStoreConfig{}))
	rec := doJSON(t, e, http.MethodPost, "/v1/predict", `{"text":"the dog","top":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[PredictResponse](t, rec)
	if len(resp.Candidates) != 3 {
		t.Fatalf("got %d candidates", len(resp.Candidates))
	}
	if len(resp.Dropped) != 1 || resp.Dropped[0] != "dog" {
		t.Fatalf("dropped = %q", resp.Dropped)
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, newTestStore(t, ModelStoreConfig{}))
	rec := doJSON(t, e, http.MethodPost, "/v1/generate", `{"prompt":"the cat","max_tokens":4,"temperature":0.8,"seed":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[GenerateResponse](t, rec)
	if !strings.HasPrefix(resp.ID, "gen-") {
		t.Fatalf("id = %q", resp.ID)
	}
	if len(resp.Tokens) != 4 || resp.Usage.CompletionTokens != 4 || resp.Usage.PromptTokens != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	for _, id := range resp.Tokens {
		if id == vocab.PadID {
			t.Fatal("[PAD] was generated")
		}
	}

	again := decode[GenerateResponse](t, doJSON(t, e, http.MethodPost, "/v1/generate", `{"prompt":"the cat","max_tokens":4,"temperature":0.8,"seed":7}`))
	if again.Text != resp.Text {
		t.Fatalf("same seed produced %q and %q", resp.Text, again.Text)
	}
}

func TestTrainGrowsAndSaves(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := ModelStoreConfig{
		ModelPath: filepath.Join(dir, "model.json"),
		VocabPath: filepath.Join(dir, "vocab.txt"),
		Seed:      4,
	}
	store := newTestStore(t, cfg)
	e := newTestEcho(t, store)

	rec := doJSON(t, e, http.MethodPost, "/v1/train", `{"text":"the dog sat on the cat.","epochs":3,"learning_rate":0.05}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body=%s", rec.Code, rec.Body.String())
	}
	resp := decode[TrainResponse](t, rec)
	if !strings.HasPrefix(resp.ID, "train-") || len(resp.Losses) != 3 || !resp.Saved {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.AddedTokens != 1 || resp.VocabSize != 8 {
		t.Fatalf("added %d, vocab %d", resp.AddedTokens, resp.VocabSize)
	}

	info := decode[ModelInfo](t, doJSON(t, e, http.MethodGet, "/v1/model", ""))
	if info.VocabSize != 8 {
		t.Fatalf("model not replaced: vocab %d", info.VocabSize)
	}

	m, err := checkpoint.Load(cfg.ModelPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	v, err := vocab.Load(cfg.VocabPath)
	if err != nil {
		t.Fatal(err)
	}
	if m.VocabSize() != v.Size() || v.Size() != 8 {
		t.Fatalf("persisted model %d, vocab %d", m.VocabSize(), v.Size())
	}
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, newTestStore(t, ModelStoreConfig{}))
	tests := []struct {
		path string
		body string
		msg  string
	}{
		{"/v1/predict", ``, "empty"},
		{"/v1/predict", `{"text":"a","top":0}`, "top must be positive"},
		{"/v1/predict", `{"text":"a","bogus":1}`, "invalid JSON"},
		{"/v1/predict", `{"text":"a"} {}`, "trailing"},
		{"/v1/generate", `{"prompt":"a","max_tokens":-1}`, "max_tokens"},
		{"/v1/generate", `{"prompt":"a","top_p":1.5}`, "top_p"},
		{"/v1/generate", `{"prompt":"a","top_k":-2}`, "top_k"},
		{"/v1/train", `{"text":""}`, "text is required"},
		{"/v1/train", `{"text":"a","epochs":0}`, "epochs"},
		{"/v1/train", `{"text":"a","learning_rate":-1}`, "learning_rate"},
		{"/v1/train", `{"text":"## $$"}`, "no training windows"},
	}
	for _, tc := range tests {
		rec := doJSON(t, e, http.MethodPost, tc.path, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status %d body=%s", tc.path, tc.body, rec.Code, rec.Body.String())
			continue
		}
		body := decode[ErrorBody](t, rec)
		if body.Error.Type != "invalid_request_error" || !strings.Contains(body.Error.Message, tc.msg) {
			t.Errorf("%s %s: unexpected error %+v", tc.path, tc.body, body.Error)
		}
	}
}

func TestNewModelStoreRejectsMismatch(t *testing.T) {
	t.Parallel()

	v := vocab.Build([]string{"a"})
	m, err := lstm.New(lstm.Config{VocabSize: 3, HiddenSize: 2, ContextWindow: 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewModelStore(m, v, ModelStoreConfig{}); !errors.Is(err, lstm.ErrDimension) {
		t.Fatalf("err = %v, want ErrDimension", err)
	}
}

func TestStoreHonoursContext(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, ModelStoreConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := store.With(ctx, func(*lstm.Model, *vocab.Vocabulary) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Fatalf("err = %v, called = %v", err, called)
	}
}

func TestInvalidRequestUnwraps(t *testing.T) {
	t.Parallel()

	if err := newInvalidRequest("bad"); !errors.Is(err, ErrInvalidRequest) || err.Error() != "bad" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
		typ    string
	}{
		{newInvalidRequest("bad"), http.StatusBadRequest, "invalid_request_error"},
		{fmt.Errorf("encode: %w", vocab.ErrUnknownToken), http.StatusBadRequest, "invalid_request_error"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout_error"},
		{context.Canceled, http.StatusServiceUnavailable, "cancelled_error"},
		{errors.New("boom"), http.StatusInternalServerError, "server_error"},
	}
	for _, tt := range tests {
		status, typ := classify(tt.err)
		if status != tt.status || typ != tt.typ {
			t.Errorf("classify(%v) = %d %q, want %d %q", tt.err, status, typ, tt.status, tt.typ)
		}
	}
}

func TestUpdateKeepsPairWhenSaveFails(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := newTestStore(t, ModelStoreConfig{
		ModelPath: filepath.Join(blocker, "model.json"),
		VocabPath: filepath.Join(dir, "vocab.txt"),
	})

	var oldModel *lstm.Model
	var oldVocab *vocab.Vocabulary
	_ = store.With(context.Background(), func(m *lstm.Model, v *vocab.Vocabulary) error {
		oldModel, oldVocab = m, v
		return nil
	})

	saved, err := store.Update(context.Background(), func(m *lstm.Model, v *vocab.Vocabulary) (*lstm.Model, *vocab.Vocabulary, error) {
		nv := v.Clone()
		nv.Extend([]string{"dog"})
		nm, err := lstm.Grow(m, nv.Size(), 1)
		return nm, nv, err
	})
	if err == nil || saved {
		t.Fatalf("Update = %v, %v; want a save error", saved, err)
	}
	_ = store.With(context.Background(), func(m *lstm.Model, v *vocab.Vocabulary) error {
		if m != oldModel || v != oldVocab {
			t.Fatal("store swapped its pair although persisting failed")
		}
		return nil
	})
}
