// Package search provides a simple, deterministic, concurrency-safe in-memory
// keyword index over a user's notes. It is intentionally small and
// dependency-free:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// note's token set, with a small boost for title hits.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// Doc is one searchable note.
type Doc struct {
	ID    string
	Title string
	Body  string
}

// Result is a ranked note with its similarity score.
type Result struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

const (
	// titleBoost is added to the Jaccard score when any query token appears
	// in the note title.
	titleBoost = 0.15
	// snippetMaxRunes caps how much of a note body a Result carries.
	snippetMaxRunes = 200
)

type doc struct {
	id     string
	title  string
	body   string
	tokens map[string]struct{}
	tLen   int
	tTitle map[string]struct{}
}

type index struct {
	docs []doc
}

// NewIndex builds an immutable index over the given notes. Empty bodies are
// skipped.
func NewIndex(docs []Doc) Index {
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		toks := tokenize(d.Title + " " + d.Body)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{
			id:     d.ID,
			title:  d.Title,
			body:   d.Body,
			tokens: toks,
			tLen:   len(toks),
			tTitle: tokenize(d.Title),
		})
	}
	return &index{docs: out}
}

// TopK returns up to k best-matching notes by Jaccard similarity plus title
// boost. Notes with zero token overlap are omitted.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 5
	}
	qTokens := tokenize(q)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		d     *doc
		score float64
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for idx := range i.docs {
		d := &i.docs[idx]
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		score := float64(over) / union
		if overlap(qTokens, d.tTitle) > 0 {
			score += titleBoost
		}
		buf = append(buf, scored{d: d, score: score})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		return buf[a].d.id < buf[b].d.id
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{
			ID:      buf[n].d.id,
			Title:   buf[n].d.title,
			Snippet: snippet(buf[n].d.body),
			Score:   buf[n].score,
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

// snippet returns the leading portion of a body, cut at a rune boundary.
func snippet(body string) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= snippetMaxRunes {
		return body
	}
	return string(runes[:snippetMaxRunes]) + "…"
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
