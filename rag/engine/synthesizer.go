package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/log"
	"github.com/fahadazizz/knowledg-rag/rag"
)

// InsufficientEvidenceAnswer is returned verbatim when retrieval found
// nothing, without calling the model.
const InsufficientEvidenceAnswer = "I could not find relevant information in the knowledge base to answer this question."

const synthesisPrompt = `
Answer the question using ONLY the numbered evidence below. Cite the
evidence you use with bracketed numbers like [1]. If the evidence does
not fully answer the question, say what is known and what is not.

%sQuestion: %s

Evidence:
%s

Answer:`

// Answer is a synthesized response with its supporting evidence
type Answer struct {
	Text        string
	Citations   []string // evidence ids actually cited in the text
	EvidenceIDs []string // all evidence ids available to the synthesis
}

// Synthesizer writes the final answer from gathered evidence
type Synthesizer struct {
	llm    rag.LLM
	retry  *graph.RetryConfig
	logger log.Logger
}

// SynthesizerOption configures the Synthesizer
type SynthesizerOption func(*Synthesizer)

// WithSynthRetry sets the retry policy for generation calls
func WithSynthRetry(retry *graph.RetryConfig) SynthesizerOption {
	return func(s *Synthesizer) {
		s.retry = retry
	}
}

// WithSynthLogger sets the logger
func WithSynthLogger(logger log.Logger) SynthesizerOption {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// NewSynthesizer creates a new Synthesizer
func NewSynthesizer(llm rag.LLM, opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{
		llm:    llm,
		retry:  graph.DefaultRetryConfig(),
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize produces the answer. With no evidence it returns the
// fixed insufficient-evidence answer and does not call the model.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, evidence []rag.Evidence, history []rag.Turn) (*Answer, error) {
	if len(evidence) == 0 {
		return &Answer{Text: InsufficientEvidenceAnswer}, nil
	}

	prompt := fmt.Sprintf(synthesisPrompt, renderHistory(history), query, renderEvidence(evidence))

	var response string
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		response, genErr = s.llm.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rag.ErrSynthesis, err)
	}

	ids := make([]string, len(evidence))
	for i, ev := range evidence {
		ids[i] = ev.ID
	}

	return &Answer{
		Text:        strings.TrimSpace(response),
		Citations:   citedIDs(response, ids),
		EvidenceIDs: ids,
	}, nil
}

var citationRegex = regexp.MustCompile(`\[(\d+)\]`)

// citedIDs maps bracketed citation markers back to evidence ids,
// preserving first-mention order. An answer citing nothing resolvable
// falls back to all available ids.
func citedIDs(text string, ids []string) []string {
	var cited []string
	seen := make(map[string]bool)
	for _, m := range citationRegex.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(ids) {
			continue
		}
		id := ids[n-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		cited = append(cited, id)
	}
	if cited == nil {
		return append([]string(nil), ids...)
	}
	return cited
}

func renderHistory(history []rag.Turn) string {
	if len(history) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Conversation so far:\n")
	for _, turn := range history {
		fmt.Fprintf(&sb, "Q: %s\nA: %s\n", turn.Query, turn.Answer)
	}
	sb.WriteString("\n")
	return sb.String()
}
