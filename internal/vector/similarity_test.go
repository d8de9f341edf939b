package vector

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func emb(v ...float32) models.Embedding { return models.NewEmbedding(v) }

func TestInnerProduct(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float64
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float64{0, 1}, 0},
		{"identical unit", []float32{1, 0}, []float64{1, 0}, 1},
		{"not normalized", []float32{2, 3}, []float64{4, 5}, 23},
		{"negative", []float32{1, -1}, []float64{-1, 1}, -2},
		{"stored doubles", []float32{1, 0}, []float64{0.0123456789012345, 1}, 0.0123456789012345},
		{"length mismatch", []float32{1, 0}, []float64{1, 0, 0}, math.Inf(-1)},
		{"empty", nil, nil, math.Inf(-1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InnerProduct(tt.a, tt.b); got != tt.want {
				t.Errorf("InnerProduct() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScore_malformedIsNegInf(t *testing.T) {
	var malformed models.Passage
	if err := json.Unmarshal([]byte(`{"text":"x","embedding":{"values":"nope"}}`), &malformed); err != nil {
		t.Fatal(err)
	}
	var notObject models.Passage
	if err := json.Unmarshal([]byte(`{"text":"x","embedding":[1,2]}`), &notObject); err != nil {
		t.Fatal(err)
	}
	q := []float32{1, 0}
	for name, e := range map[string]models.Embedding{
		"non-numeric values": malformed.Embedding,
		"not an object":      notObject.Embedding,
		"empty":              emb(),
		"wrong length":       emb(1, 0, 0),
	} {
		if got := Score(q, e); !math.IsInf(got, -1) {
			t.Errorf("%s: Score() = %v, want -Inf", name, got)
		}
	}
}

func TestScore_NaNIsNegInf(t *testing.T) {
	q := []float32{float32(math.Inf(1)), 0}
	if got := Score(q, emb(0, 1)); !math.IsInf(got, -1) {
		t.Errorf("Score() = %v, want -Inf", got)
	}
}

func TestBest(t *testing.T) {
	index := models.EmbeddingIndex{
		{Text: "A", Embedding: emb(1, 0)},
		{Text: "B", Embedding: emb(0, 1)},
	}
	tests := []struct {
		name      string
		query     []float32
		wantIndex int
		wantScore float64
	}{
		{"best is A", []float32{1, 0}, 0, 1},
		{"best is B", []float32{0, 2}, 1, 2},
		{"tie goes to first", []float32{0, 0}, 0, 0},
		{"equal positive tie", []float32{1, 1}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Best(tt.query, index)
			if err != nil {
				t.Fatal(err)
			}
			if m.Index != tt.wantIndex || m.Score != tt.wantScore {
				t.Errorf("Best() = (%d, %v), want (%d, %v)", m.Index, m.Score, tt.wantIndex, tt.wantScore)
			}
			if m.Passage.Text != index[tt.wantIndex].Text {
				t.Errorf("passage = %q", m.Passage.Text)
			}
		})
	}
}

func TestBest_skipsMalformed(t *testing.T) {
	var bad models.Passage
	if err := json.Unmarshal([]byte(`{"text":"bad","embedding":null}`), &bad); err != nil {
		t.Fatal(err)
	}
	index := models.EmbeddingIndex{bad, {Text: "good", Embedding: emb(-1, -1)}}
	m, err := Best([]float32{1, 1}, index)
	if err != nil {
		t.Fatal(err)
	}
	if m.Index != 1 || m.Score != -2 {
		t.Errorf("Best() = (%d, %v), want (1, -2)", m.Index, m.Score)
	}
}

func TestBest_allMalformed(t *testing.T) {
	index := models.EmbeddingIndex{{Text: "x"}, {Text: "y"}}
	m, err := Best([]float32{1, 0}, index)
	if err != nil {
		t.Fatal(err)
	}
	if m.Index != 0 || !math.IsInf(m.Score, -1) {
		t.Errorf("Best() = (%d, %v), want (0, -Inf)", m.Index, m.Score)
	}
}

func TestBest_empty(t *testing.T) {
	if _, err := Best([]float32{1}, nil); !errors.Is(err, ErrEmptyIndex) {
		t.Errorf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestBest_deterministic(t *testing.T) {
	index := models.EmbeddingIndex{
		{Text: "a", Embedding: emb(0.5, 0.5)},
		{Text: "b", Embedding: emb(0.5, 0.5)},
		{Text: "c", Embedding: emb(0.5, 0.5)},
	}
	for i := 0; i < 20; i++ {
		m, _ := Best([]float32{1, 1}, index)
		if m.Index != 0 {
			t.Fatalf("run %d: picked %d, want 0", i, m.Index)
		}
	}
}

func TestScores(t *testing.T) {
	index := models.EmbeddingIndex{{Embedding: emb(1, 0)}, {Embedding: emb(0, 1)}, {}}
	got := Scores([]float32{1, 0}, index)
	if len(got) != 3 || got[0] != 1 || got[1] != 0 || !math.IsInf(got[2], -1) {
		t.Errorf("Scores() = %v", got)
	}
}

func TestL2Norm(t *testing.T) {
	if got := L2Norm([]float32{3, 4}); got != 5 {
		t.Errorf("L2Norm() = %v, want 5", got)
	}
}
