// Package engine runs the agentic answer loop: a planner state machine
// that alternates retrieval and evaluation until the evidence suffices,
// a synthesizer that writes the cited answer, and the turn engine that
// ties them to per-thread session history.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/rag"
	"github.com/fahadazizz/knowledg-rag/rag/extract"
)

// Action selects which retrieval modality the next iteration runs
type Action string

const (
	ActionVector Action = "vector"
	ActionGraph  Action = "graph"
	ActionBoth   Action = "both"
)

// Plan is one retrieval step: what to search for and how
type Plan struct {
	Action Action   `json:"action"`
	Query  string   `json:"query"`
	Seeds  []string `json:"seeds"`
}

// Decision is the outcome of evaluating gathered evidence
type Decision struct {
	Sufficient bool   `json:"sufficient"`
	Reason     string `json:"reason"`
}

// Policy decides what to retrieve next and when to stop. The planner
// consults it once per iteration on each side of retrieval.
type Policy interface {
	Plan(ctx context.Context, query string, iteration int, evidence []rag.Evidence) (*Plan, error)
	Evaluate(ctx context.Context, query string, iteration int, evidence []rag.Evidence) (*Decision, error)
}

const planPrompt = `
You are planning retrieval for a question-answering system over a
document corpus with both a vector index and a knowledge graph.

Question: %s
Iteration: %d
Evidence gathered so far (may be empty):
%s

Decide the next retrieval step. Return JSON only:
{
  "action": "vector" | "graph" | "both",
  "query": "search text for the vector index",
  "seeds": ["entity names to start graph traversal from"]
}

Use "graph" or "both" when the question involves relationships between
named entities; list those entities as seeds. Refine the query to cover
what the evidence is still missing.
`

const evaluatePrompt = `
You are judging whether gathered evidence suffices to answer a question.

Question: %s
Evidence:
%s

Return JSON only:
{
  "sufficient": true | false,
  "reason": "one sentence"
}

Answer "sufficient": false only if a further retrieval round could
plausibly uncover what is missing.
`

// LLMPolicy asks the model to plan and evaluate, with a scripted
// fallback when the model's JSON cannot be parsed: retry with "both"
// and stop after the evidence stops growing.
type LLMPolicy struct {
	llm   rag.LLM
	retry *graph.RetryConfig
}

// NewLLMPolicy creates an LLM-backed policy
func NewLLMPolicy(llm rag.LLM, retry *graph.RetryConfig) *LLMPolicy {
	if retry == nil {
		retry = graph.DefaultRetryConfig()
	}
	return &LLMPolicy{llm: llm, retry: retry}
}

var _ Policy = (*LLMPolicy)(nil)

// Plan asks the model for the next retrieval step
func (p *LLMPolicy) Plan(ctx context.Context, query string, iteration int, evidence []rag.Evidence) (*Plan, error) {
	prompt := fmt.Sprintf(planPrompt, query, iteration, renderEvidence(evidence))

	response, err := p.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal([]byte(extract.StripFences(response)), &plan); err != nil {
		// Unparseable plan: fall back to searching everything.
		plan = Plan{Action: ActionBoth, Query: query}
	}
	if plan.Query == "" {
		plan.Query = query
	}
	switch plan.Action {
	case ActionVector, ActionGraph, ActionBoth:
	default:
		plan.Action = ActionBoth
	}
	return &plan, nil
}

// Evaluate asks the model whether the evidence answers the question
func (p *LLMPolicy) Evaluate(ctx context.Context, query string, iteration int, evidence []rag.Evidence) (*Decision, error) {
	if len(evidence) == 0 {
		return &Decision{Sufficient: false, Reason: "no evidence gathered yet"}, nil
	}

	prompt := fmt.Sprintf(evaluatePrompt, query, renderEvidence(evidence))
	response, err := p.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var decision Decision
	if err := json.Unmarshal([]byte(extract.StripFences(response)), &decision); err != nil {
		// Unparseable judgement: treat current evidence as enough.
		return &Decision{Sufficient: true, Reason: "evaluator response unparseable"}, nil
	}
	return &decision, nil
}

func (p *LLMPolicy) generate(ctx context.Context, prompt string) (string, error) {
	var response string
	err := p.retry.Do(ctx, func(ctx context.Context) error {
		var genErr error
		response, genErr = p.llm.Generate(ctx, prompt)
		return genErr
	})
	return response, err
}

func renderEvidence(evidence []rag.Evidence) string {
	if len(evidence) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for i, ev := range evidence {
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, ev.Text())
	}
	return sb.String()
}
