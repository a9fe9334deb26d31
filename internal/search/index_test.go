package search

import (
	"strings"
	"testing"
)

func TestTopK_RanksByOverlap(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "a", Title: "Groceries", Body: "milk eggs bread"},
		{ID: "b", Title: "Training", Body: "sunday long run pacing and fueling"},
		{ID: "c", Title: "Misc", Body: "long list of chores"},
	})

	res := idx.TopK("long run", 5)
	if len(res) != 2 {
		t.Fatalf("got %d results, want 2", len(res))
	}
	if res[0].ID != "b" || res[1].ID != "c" {
		t.Fatalf("order = %s, %s", res[0].ID, res[1].ID)
	}
	if res[0].Score <= res[1].Score {
		t.Fatalf("scores not descending: %v <= %v", res[0].Score, res[1].Score)
	}
}

func TestTopK_TitleBoost(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "body-hit", Title: "Untitled", Body: "marathon"},
		{ID: "title-hit", Title: "Marathon", Body: "notes"},
	})

	res := idx.TopK("marathon", 2)
	if len(res) != 2 {
		t.Fatalf("got %d results", len(res))
	}
	if res[0].ID != "title-hit" {
		t.Fatalf("title hit should rank first, got %s", res[0].ID)
	}
}

func TestTopK_DeterministicTieOrder(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "z", Title: "", Body: "alpha beta"},
		{ID: "a", Title: "", Body: "alpha beta"},
		{ID: "m", Title: "", Body: "alpha beta"},
	})

	for i := 0; i < 10; i++ {
		res := idx.TopK("alpha", 3)
		if len(res) != 3 {
			t.Fatalf("got %d results", len(res))
		}
		if res[0].ID != "a" || res[1].ID != "m" || res[2].ID != "z" {
			t.Fatalf("tie order not by id: %s %s %s", res[0].ID, res[1].ID, res[2].ID)
		}
	}
}

func TestTopK_Limits(t *testing.T) {
	docs := []Doc{
		{ID: "1", Body: "alpha"},
		{ID: "2", Body: "alpha"},
		{ID: "3", Body: "alpha"},
	}
	idx := NewIndex(docs)

	if res := idx.TopK("alpha", 2); len(res) != 2 {
		t.Fatalf("k=2 -> %d results", len(res))
	}
	// k <= 0 falls back to the default of 5.
	if res := idx.TopK("alpha", 0); len(res) != 3 {
		t.Fatalf("k=0 -> %d results", len(res))
	}
	if res := idx.TopK("", 5); res != nil {
		t.Fatalf("blank query -> %v", res)
	}
	if res := idx.TopK("zzz-no-match", 5); res != nil {
		t.Fatalf("no overlap -> %v", res)
	}
}

func TestTopK_SnippetTruncation(t *testing.T) {
	long := strings.Repeat("word ", 100)
	idx := NewIndex([]Doc{{ID: "1", Title: "t", Body: long}})

	res := idx.TopK("word", 1)
	if len(res) != 1 {
		t.Fatalf("got %d results", len(res))
	}
	if got := len([]rune(res[0].Snippet)); got != snippetMaxRunes+1 {
		t.Fatalf("snippet runes = %d, want %d plus ellipsis", got, snippetMaxRunes+1)
	}
	if !strings.HasSuffix(res[0].Snippet, "…") {
		t.Fatal("expected trailing ellipsis")
	}
}

func TestTokenize_UnicodeAware(t *testing.T) {
	toks := tokenize("Crème brûlée, 10k RUN!")
	for _, want := range []string{"crème", "brûlée", "run"} {
		if _, ok := toks[want]; !ok {
			t.Fatalf("missing token %q in %v", want, toks)
		}
	}
}

func TestNewIndex_SkipsEmptyDocs(t *testing.T) {
	idx := NewIndex([]Doc{
		{ID: "empty", Title: "", Body: "   "},
		{ID: "real", Title: "t", Body: "content"},
	})
	if res := idx.TopK("content", 5); len(res) != 1 || res[0].ID != "real" {
		t.Fatalf("unexpected results: %v", res)
	}
}
