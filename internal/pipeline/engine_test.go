package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/generation"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// tableEmbedder returns a preset vector per (task, text) and counts calls.
type tableEmbedder struct {
	mu      sync.Mutex
	vectors map[embedding.TaskType]map[string][]float32
	calls   int
}

func (e *tableEmbedder) Embed(ctx context.Context, text string, task embedding.TaskType) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	v, ok := e.vectors[task][text]
	if !ok {
		return nil, errors.Join(embedding.ErrEmbeddingFailure, errors.New("no vector for "+text))
	}
	return v, nil
}

func (e *tableEmbedder) Dimensions() int { return 2 }
func (e *tableEmbedder) Close() error    { return nil }

func newTableEmbedder() *tableEmbedder {
	return &tableEmbedder{vectors: map[embedding.TaskType]map[string][]float32{
		embedding.TaskDocument: {"A": {1, 0}, "B": {0, 1}},
		embedding.TaskQuery: {
			"about A": {1, 0},
			"about B": {0, 3},
			"nothing": {0, 0},
		},
	}}
}

type stubGenerator struct {
	resp    *generation.Response
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (*generation.Response, error) {
	g.prompts = append(g.prompts, prompt)
	return g.resp, g.err
}

func (g *stubGenerator) Close() error { return nil }

func textResponse(s string) *generation.Response {
	return &generation.Response{Candidates: []generation.Candidate{
		{Content: generation.Content{Parts: []generation.Part{{Text: s}}}},
	}}
}

func newEngine(t *testing.T, gen generation.Generator) (*Engine, *tableEmbedder, *storage.FileStore) {
	t.Helper()
	store := storage.NewFileStore(t.TempDir())
	emb := newTableEmbedder()
	return New(store, emb, gen), emb, store
}

func TestEngine_BuildThenAsk(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("B it is.")}
	e, _, store := newEngine(t, gen)
	ctx := context.Background()

	res, err := e.Build(ctx, "test", []string{"A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Persisted || res.Passages != 2 || res.Dimensions != 2 {
		t.Errorf("BuildResult = %+v", res)
	}
	if _, err := os.Stat(store.Path("test")); err != nil {
		t.Fatalf("index not written: %v", err)
	}

	ans, err := e.Ask(ctx, "test", "about B")
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Result.Found() || ans.Result.Text != "B it is." {
		t.Errorf("Result = %+v", ans.Result)
	}
	if ans.Match.Index != 1 || ans.Match.Score != 3 || ans.Key != "test" {
		t.Errorf("Match = %+v key=%s", ans.Match, ans.Key)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != answer.Prompt("about B", "B") {
		t.Errorf("prompts = %q", gen.prompts)
	}
}

func TestEngine_AboveThresholdNoCandidates(t *testing.T) {
	gen := &stubGenerator{resp: &generation.Response{}}
	e, _, _ := newEngine(t, gen)
	ctx := context.Background()
	if _, err := e.Build(ctx, "test", []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}

	ans, err := e.Ask(ctx, "test", "about A")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Match.Passage.Text != "A" || ans.Match.Score != 1 {
		t.Errorf("Match = %+v", ans.Match)
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "PASSAGE: A ") {
		t.Errorf("generator should be invoked with A, prompts = %q", gen.prompts)
	}
	if ans.Result.Kind != models.NotFound || ans.Result.Text != "" {
		t.Errorf("Result = %+v, want empty NotFound", ans.Result)
	}
}

func TestEngine_BelowThresholdApology(t *testing.T) {
	gen := &stubGenerator{resp: textResponse("unused")}
	e, _, _ := newEngine(t, gen)
	ctx := context.Background()
	if _, err := e.Build(ctx, "test", []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}

	ans, err := e.Ask(ctx, "test", "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Match.Index != 0 || ans.Match.Score != 0 {
		t.Errorf("expected first-max tie break to A with score 0, got %+v", ans.Match)
	}
	if ans.Result.Text != answer.Apology || ans.Result.Kind != models.NotFound {
		t.Errorf("Result = %+v", ans.Result)
	}
	if len(gen.prompts) != 0 {
		t.Error("generator must not be called")
	}
}

func TestEngine_CorruptIndexAbortsBeforeEmbedding(t *testing.T) {
	e, emb, store := newEngine(t, &stubGenerator{})
	if err := os.MkdirAll(store.Dir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path("test"), []byte(`{"foo":"bar"}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := e.Ask(context.Background(), "test", "about A")
	if !errors.Is(err, storage.ErrIndexCorrupt) {
		t.Fatalf("expected ErrIndexCorrupt, got %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times, want 0", emb.calls)
	}
}

func TestEngine_MissingIndexAborts(t *testing.T) {
	e, emb, _ := newEngine(t, &stubGenerator{})
	_, err := e.Ask(context.Background(), "absent", "about A")
	if !errors.Is(err, storage.ErrIndexLoadFailure) {
		t.Fatalf("expected ErrIndexLoadFailure, got %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times, want 0", emb.calls)
	}
}

func TestEngine_EmptyIndex(t *testing.T) {
	e, _, _ := newEngine(t, &stubGenerator{})
	ctx := context.Background()
	if _, err := e.Build(ctx, "empty", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Ask(ctx, "empty", "about A"); !errors.Is(err, vector.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestEngine_BuildFailureIsAllOrNothing(t *testing.T) {
	e, _, store := newEngine(t, &stubGenerator{})
	_, err := e.Build(context.Background(), "test", []string{"A", "unknown"})
	if !errors.Is(err, embedding.ErrEmbeddingFailure) {
		t.Fatalf("expected ErrEmbeddingFailure, got %v", err)
	}
	if _, statErr := os.Stat(store.Path("test")); !os.IsNotExist(statErr) {
		t.Error("failed build must not write an index")
	}
}

func TestEngine_BuildWithMismatchedVectorsSavesNothing(t *testing.T) {
	e, emb, store := newEngine(t, &stubGenerator{})
	emb.vectors[embedding.TaskDocument]["C"] = []float32{}
	emb.vectors[embedding.TaskDocument]["D"] = []float32{1, 2, 3}
	for _, passages := range [][]string{{"A", "C"}, {"A", "D", "B"}} {
		_, err := e.Build(context.Background(), "test", passages)
		if !errors.Is(err, embedding.ErrEmbeddingFailure) {
			t.Fatalf("Build(%v) error = %v, want ErrEmbeddingFailure", passages, err)
		}
		if _, statErr := os.Stat(store.Path("test")); !os.IsNotExist(statErr) {
			t.Fatalf("Build(%v) wrote an index", passages)
		}
	}
}

func TestEngine_BuildRejectsBadKey(t *testing.T) {
	e, emb, _ := newEngine(t, &stubGenerator{})
	if _, err := e.Build(context.Background(), "../x", []string{"A"}); !errors.Is(err, storage.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("bad key should fail before embedding")
	}
}

// failingStore saves nothing and loads nothing.
type failingStore struct{ *storage.FileStore }

func (failingStore) Save(ctx context.Context, key string, index models.EmbeddingIndex) error {
	return errors.Join(storage.ErrIndexPersistFailure, errors.New("disk full"))
}

func (failingStore) Load(ctx context.Context, key string) (models.EmbeddingIndex, error) {
	return nil, storage.ErrIndexLoadFailure
}

func TestEngine_RunUsesInMemoryIndexWhenPersistFails(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(doc, []byte("A"), 0600); err != nil {
		t.Fatal(err)
	}
	gen := &stubGenerator{resp: textResponse("from memory")}
	e := New(failingStore{storage.NewFileStore(dir)}, newTableEmbedder(), gen)

	res, err := e.Run(context.Background(), "test", doc, "about A")
	if err != nil {
		t.Fatal(err)
	}
	if res.Build.Persisted || !errors.Is(res.Build.PersistErr, storage.ErrIndexPersistFailure) {
		t.Errorf("Build = %+v", res.Build)
	}
	if res.Answer.Result.Text != "from memory" || res.Answer.Key != "test" {
		t.Errorf("Answer = %+v", res.Answer)
	}
}

func TestEngine_RunReloadsPersistedIndex(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(doc, []byte("B"), 0600); err != nil {
		t.Fatal(err)
	}
	gen := &stubGenerator{resp: textResponse("ok")}
	e, _, _ := newEngine(t, gen)
	res, err := e.Run(context.Background(), "test", doc, "about B")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Build.Persisted || !res.Answer.Result.Found() {
		t.Errorf("Run = %+v / %+v", res.Build, res.Answer.Result)
	}
}

func TestEngine_AskValidatesQuestion(t *testing.T) {
	e, _, _ := newEngine(t, &stubGenerator{})
	if _, err := e.Ask(context.Background(), "test", "   "); err == nil {
		t.Error("expected error for blank question")
	}
}

func TestEngine_Status(t *testing.T) {
	e, _, store := newEngine(t, &stubGenerator{})
	ctx := context.Background()
	if _, err := e.Build(ctx, "test", []string{"A", "B"}); err != nil {
		t.Fatal(err)
	}
	e.diskPaths = []string{store.Dir()}

	st, err := e.Status(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	if st.Backend != "file" || st.Passages != 2 || st.Dimensions != 2 || len(st.Indexes) != 1 {
		t.Errorf("Status = %+v", st)
	}
	if st.DiskUsageBytes == 0 || st.Threshold != config.DefaultThreshold {
		t.Errorf("Status = %+v", st)
	}

	st, err = e.Status(ctx, "absent")
	if err != nil {
		t.Fatal(err)
	}
	if st.LoadError == "" {
		t.Error("missing key should set LoadError")
	}
}

func TestFromConfig_mock(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Embedding.Provider = "mock"
	cfg.Embedding.Dimensions = 16
	cfg.Generation.Provider = "noop"

	e, err := FromConfig(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	ctx := context.Background()
	if _, err := e.Build(ctx, "test", []string{"climate control", "shifting gears"}); err != nil {
		t.Fatal(err)
	}
	ans, err := e.Ask(ctx, "test", "how do I shift gears?")
	if err != nil {
		t.Fatal(err)
	}
	if ans.Result.Found() {
		t.Errorf("noop generator cannot produce an answer, got %+v", ans.Result)
	}
}
