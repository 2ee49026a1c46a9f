package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"deepstudy/backend/pkg/logger"
	"go.uber.org/zap"
)

// Triple is a single subject-relation-object fact extracted from text.
// Triples are ephemeral: they feed graph persistence and mind-map layout
// but are never stored verbatim.
type Triple struct {
	Subject  string `json:"subject"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// surfacePattern pairs a binary split regex with a fixed relation label.
// Patterns are evaluated in order, independently per sentence.
type surfacePattern struct {
	re       *regexp.Regexp
	relation string
}

// The ordered cascade mirrors the most common Chinese surface forms:
// copula, membership, possession, inclusion, comparison, causation and
// composition.
var surfacePatterns = []surfacePattern{
	{regexp.MustCompile(`(.+?)是(.+)`), "是"},
	{regexp.MustCompile(`(.+?)属于(.+)`), "属于"},
	{regexp.MustCompile(`(.+?)有(.+)`), "有"},
	{regexp.MustCompile(`(.+?)包括(.+)`), "包括"},
	{regexp.MustCompile(`(.+?)等于(.+)`), "等于"},
	{regexp.MustCompile(`(.+?)大于(.+)`), "大于"},
	{regexp.MustCompile(`(.+?)小于(.+)`), "小于"},
	{regexp.MustCompile(`(.+?)导致(.+)`), "导致"},
	{regexp.MustCompile(`(.+?)产生(.+)`), "产生"},
	{regexp.MustCompile(`(.+?)由(.+)组成`), "由...组成"},
}

// sentenceSplit covers both full-width and half-width sentence terminators.
var sentenceSplit = regexp.MustCompile(`[。！？．.!?]`)

// Extractor turns raw answer text into deduplicated knowledge triples.
// It is deterministic and side-effect free; the zero-ish instance returned
// by New is safe for concurrent use.
type Extractor struct {
	logger *zap.Logger
}

// New creates a rule-based knowledge extractor
func New() *Extractor {
	return &Extractor{logger: logger.Named("extractor")}
}

// Extract parses text into an ordered, deduplicated sequence of triples.
// Malformed or empty input yields an empty slice, never an error.
func (e *Extractor) Extract(text string) []Triple {
	if strings.TrimSpace(text) == "" {
		return []Triple{}
	}

	var triples []Triple
	for _, sentence := range splitSentences(text) {
		triples = append(triples, extractFromSentence(sentence)...)
	}

	deduped := dedupe(triples)
	e.logger.Debug("Extracted knowledge triples",
		zap.Int("raw", len(triples)),
		zap.Int("unique", len(deduped)),
	)
	return deduped
}

// splitSentences splits text on sentence-terminal punctuation and drops
// empty fragments
func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// extractFromSentence applies every surface pattern to one sentence. A
// single sentence may yield several triples when multiple patterns match.
func extractFromSentence(sentence string) []Triple {
	var triples []Triple
	for _, p := range surfacePatterns {
		for _, m := range p.re.FindAllStringSubmatch(sentence, -1) {
			if len(m) < 3 {
				continue
			}
			subject := strings.TrimSpace(m[1])
			object := strings.TrimSpace(m[2])
			// Single runes are punctuation or particles, not concepts
			if utf8.RuneCountInString(subject) > 1 && utf8.RuneCountInString(object) > 1 {
				triples = append(triples, Triple{
					Subject:  subject,
					Relation: p.relation,
					Object:   object,
				})
			}
		}
	}
	return triples
}

// dedupe removes exact duplicates, preserving first-seen order
func dedupe(triples []Triple) []Triple {
	seen := make(map[Triple]struct{}, len(triples))
	unique := make([]Triple, 0, len(triples))
	for _, t := range triples {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	return unique
}
