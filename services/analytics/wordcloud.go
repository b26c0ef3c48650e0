package analytics

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rulebook-ai/backend/models"
)

// wordPattern matches lowercase word tokens after input normalization.
var wordPattern = regexp.MustCompile(`\b[a-z]+\b`)

// minWordLength drops short filler tokens that survive the stop list.
const minWordLength = 4

// stopWords are common English words excluded from the word cloud.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "from": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"should": {}, "could": {}, "may": {}, "might": {}, "must": {},
	"can": {}, "i": {}, "you": {}, "we": {}, "they": {}, "what": {},
	"when": {}, "where": {}, "why": {}, "how": {}, "which": {}, "who": {},
}

// BuildWordCloud tokenizes the questions and returns the most frequent
// meaningful words, capped at limit. Ties keep a stable alphabetical order.
func BuildWordCloud(questions []string, limit int) []models.WordCount {
	counts := make(map[string]int)

	for _, question := range questions {
		for _, word := range wordPattern.FindAllString(strings.ToLower(question), -1) {
			if _, stop := stopWords[word]; stop {
				continue
			}
			if len(word) < minWordLength {
				continue
			}
			counts[word]++
		}
	}

	words := make([]models.WordCount, 0, len(counts))
	for word, count := range counts {
		words = append(words, models.WordCount{Word: word, Count: count})
	}

	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})

	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}
