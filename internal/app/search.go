package app

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/chriscorrea/bm25md"

	"github.com/chriscorrea/notecard/internal/card"
	"github.com/chriscorrea/notecard/internal/spinner"
	"github.com/chriscorrea/notecard/internal/tfidf"
)

// CardScore represents a card with its BM25md score and original index.
type CardScore struct {
	Text  string  // text content of the card
	Score float64 // BM25md score (higher = more relevant)
	Index int     // original index in the batch
}

// rankCards keeps the cards relevant to query, most relevant first. Cards
// with equal scores keep their batch order.
func rankCards(ctx context.Context, cards []CardResult, query string, quiet bool) []CardResult {
	texts := make([]string, len(cards))
	for i, c := range cards {
		texts[i] = c.OriginalContent
	}

	scored := performLexicalSearch(ctx, texts, query, quiet)
	ranked := make([]CardResult, 0, len(scored))
	for _, s := range scored {
		if s.Score <= 0 {
			break
		}
		c := cards[s.Index]
		c.Score = s.Score
		ranked = append(ranked, c)
	}
	return ranked
}

// performLexicalSearch sorts cards by relevance using BM25md field-weighted ranking
// ctx allows for cancellation of the spinner.
func performLexicalSearch(ctx context.Context, texts []string, searchQuery string, quiet bool) []CardScore {
	if len(texts) == 0 {
		return []CardScore{}
	}

	// display spinner for longer operations
	if !quiet && spinner.Enabled(os.Stderr) {
		sp := spinner.New(ctx, os.Stderr, "Searching cards...")
		sp.Start()
		defer sp.Stop()
	}

	// create BM25md corpus with default field weights and parameters
	corpus := bm25md.NewCorpus()

	// parse cards as markdown documents so headings weigh more than body text
	parser := bm25md.NewMarkdownFieldParser()
	for i, text := range texts {
		fields := parser.ParseDocument(text)
		doc := bm25md.Document{
			ID:       i,
			Fields:   fields,
			Original: text,
		}
		corpus.AddDocument(doc)
	}

	scored := make([]CardScore, 0, len(texts))
	for i, text := range texts {
		scored = append(scored, CardScore{
			Text:  text,
			Score: corpus.Score(searchQuery, i),
			Index: i,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// suggestTags fills SuggestedTags for recognized cards that carry no tags,
// ranking each card's terms by TF-IDF against the rest of the batch.
func suggestTags(cards []CardResult, n int) {
	texts := make([]string, len(cards))
	for i, c := range cards {
		texts[i] = c.Fields[card.FieldQuestion] + "\n" + c.Fields[card.FieldAnswer]
	}
	corpus := tfidf.NewCorpus(texts)

	for i := range cards {
		c := &cards[i]
		if !c.Success || strings.TrimSpace(c.Fields[card.FieldTags]) != "" {
			continue
		}
		if tags := corpus.TopTerms(i, n); len(tags) > 0 {
			c.SuggestedTags = tags
		}
	}
}
