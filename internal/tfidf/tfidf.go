// Package tfidf weighs the words of a flashcard against the rest of its deck.
//
// A Corpus is built once per batch. Term and document frequencies are
// computed up front, so scoring a query and ranking a card's own terms for
// tag suggestions are both lookups:
//   - Term Frequency (TF): how often a term appears in one card
//   - Inverse Document Frequency (IDF): how rare the term is across the deck
//
// Example:
//
//	corpus := tfidf.NewCorpus(cards)
//	tags := corpus.TopTerms(0, 3)
package tfidf

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Corpus holds the cards of a deck and their pre-calculated frequencies.
type Corpus struct {
	Documents       []string             // card text, in deck order
	TermFrequencies []map[string]float64 // TF per card
	DocFrequencies  map[string]int       // number of cards containing each term
	TotalDocuments  int
}

// NewCorpus analyzes every card once.
func NewCorpus(documents []string) *Corpus {
	corpus := &Corpus{
		Documents:       documents,
		TermFrequencies: make([]map[string]float64, len(documents)),
		DocFrequencies:  make(map[string]int),
		TotalDocuments:  len(documents),
	}
	if documents == nil {
		corpus.Documents = []string{}
	}

	for i, doc := range documents {
		tokens := tokenize(doc)
		corpus.TermFrequencies[i] = calculateTermFrequency(tokens)
		for term := range corpus.TermFrequencies[i] {
			corpus.DocFrequencies[term]++
		}
	}

	slog.Debug("Created TF-IDF corpus", "cards", len(documents), "terms", len(corpus.DocFrequencies))
	return corpus
}

// idf is ln(N/df); zero for terms every card shares or no card contains.
func (c *Corpus) idf(term string) float64 {
	df := c.DocFrequencies[term]
	if df == 0 {
		return 0
	}
	return math.Log(float64(c.TotalDocuments) / float64(df))
}

// Score sums the TF-IDF weight of every query term found in the card at
// docIndex. Out-of-range indexes and empty queries score 0.
func (c *Corpus) Score(query string, docIndex int) float64 {
	if docIndex < 0 || docIndex >= len(c.Documents) {
		slog.Debug("Invalid card index", "docIndex", docIndex, "cards", len(c.Documents))
		return 0
	}

	var total float64
	tf := c.TermFrequencies[docIndex]
	for _, term := range tokenize(query) {
		if w := tf[term] * c.idf(term); w > 0 {
			total += w
		}
	}
	return total
}

// stopWords never make useful tags
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "were": true,
	"what": true, "which": true, "when": true, "where": true, "who": true, "why": true,
	"how": true, "does": true, "this": true, "that": true, "with": true, "from": true,
	"its": true, "into": true, "not": true, "but": true, "can": true, "has": true,
	"have": true, "you": true, "your": true, "they": true, "their": true, "there": true,
	"about": true, "also": true, "than": true, "then": true, "them": true, "been": true,
	"answer": true, "question": true,
	"什么": true, "为什么": true, "怎么": true, "答案": true, "问题": true,
}

// TopTerms returns up to n terms of the card at docIndex, ranked by TF-IDF
// weight. A deck of one card ranks by term frequency alone. Ties are broken
// alphabetically.
func (c *Corpus) TopTerms(docIndex, n int) []string {
	if docIndex < 0 || docIndex >= len(c.Documents) || n <= 0 {
		return []string{}
	}

	type weighted struct {
		term   string
		weight float64
	}
	var terms []weighted
	for term, tf := range c.TermFrequencies[docIndex] {
		if stopWords[term] || strings.Trim(term, "0123456789_-") == "" {
			continue
		}
		w := tf
		if c.TotalDocuments > 1 {
			w = tf * c.idf(term)
		}
		if w > 0 {
			terms = append(terms, weighted{term, w})
		}
	}

	sort.Slice(terms, func(i, j int) bool {
		if terms[i].weight != terms[j].weight {
			return terms[i].weight > terms[j].weight
		}
		return terms[i].term < terms[j].term
	})

	out := make([]string, 0, n)
	for _, t := range terms {
		if len(out) == n {
			break
		}
		out = append(out, t.term)
	}
	slog.Debug("Ranked terms", "docIndex", docIndex, "candidates", len(terms), "returned", len(out))
	return out
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// tokenize lower-cases text and splits it into words. Markdown syntax falls
// away with the punctuation. Latin-script words shorter than three runes are
// dropped; a run of Han characters is kept from two runes on.
func tokenize(text string) []string {
	tokens := []string{}
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !isTokenRune(r) }) {
		field = strings.Trim(field, "-_")
		min := 3
		if r, _ := utf8.DecodeRuneInString(field); unicode.Is(unicode.Han, r) {
			min = 2
		}
		if utf8.RuneCountInString(field) >= min {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// calculateTermFrequency maps each term to count/total.
func calculateTermFrequency(tokens []string) map[string]float64 {
	counts := make(map[string]int)
	for _, token := range tokens {
		counts[token]++
	}

	freqs := make(map[string]float64, len(counts))
	for term, count := range counts {
		freqs[term] = float64(count) / float64(len(tokens))
	}
	return freqs
}
