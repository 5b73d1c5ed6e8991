package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/fahadazizz/knowledg-rag/graph"
	"github.com/fahadazizz/knowledg-rag/log"
	"github.com/fahadazizz/knowledg-rag/rag"
	"github.com/fahadazizz/knowledg-rag/rag/retriever"
)

// DefaultMaxIterations caps how many retrieval rounds a planner runs
const DefaultMaxIterations = 3

// Phase is where the answer loop currently stands
type Phase string

const (
	PhasePlanning     Phase = "PLANNING"
	PhaseRetrieving   Phase = "RETRIEVING"
	PhaseEvaluating   Phase = "EVALUATING"
	PhaseSynthesizing Phase = "SYNTHESIZING"
	PhaseDone         Phase = "DONE"
	PhaseFailed       Phase = "FAILED"
)

// Stop reasons recorded on the planner state when the loop ends
const (
	StopSufficient   = "evidence judged sufficient"
	StopIterationCap = "iteration cap reached"
	StopNoProgress   = "no new evidence gathered"
)

// PlannerState is the shared state threaded through the planner graph
type PlannerState struct {
	Query      string
	History    []rag.Turn
	Iteration  int
	Phase      Phase
	Plan       *Plan
	Decision   *Decision
	Evidence   []rag.Evidence
	Answer     *Answer
	StopReason string

	// evidence count before the current retrieval, for progress checks
	priorCount int
}

type plannerSchema struct{}

func (plannerSchema) Init() any { return &PlannerState{} }

func (plannerSchema) Update(current, new any) (any, error) {
	if new == nil {
		return current, nil
	}
	state, ok := new.(*PlannerState)
	if !ok {
		return nil, fmt.Errorf("unexpected state type %T", new)
	}
	return state, nil
}

// Planner runs the plan/retrieve/evaluate loop and synthesizes the
// answer once the loop settles.
type Planner struct {
	policy        Policy
	vector        *retriever.VectorRetriever
	graphRet      *retriever.GraphRetriever
	synthesizer   *Synthesizer
	maxIterations int
	logger        log.Logger
	runnable      *graph.StateRunnable
}

// PlannerOption configures the Planner
type PlannerOption func(*Planner)

// WithMaxIterations sets the retrieval round cap
func WithMaxIterations(n int) PlannerOption {
	return func(p *Planner) {
		if n > 0 {
			p.maxIterations = n
		}
	}
}

// WithPlannerLogger sets the logger
func WithPlannerLogger(logger log.Logger) PlannerOption {
	return func(p *Planner) {
		p.logger = logger
	}
}

// NewPlanner wires the planner state machine
func NewPlanner(policy Policy, vector *retriever.VectorRetriever, graphRet *retriever.GraphRetriever, synthesizer *Synthesizer, opts ...PlannerOption) (*Planner, error) {
	p := &Planner{
		policy:        policy,
		vector:        vector,
		graphRet:      graphRet,
		synthesizer:   synthesizer,
		maxIterations: DefaultMaxIterations,
		logger:        log.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	g := graph.NewStateGraph()
	g.SetSchema(plannerSchema{})
	g.AddNode("plan", "decide the next retrieval step", p.planNode)
	g.AddNode("retrieve", "run the planned retrievals", p.retrieveNode)
	g.AddNode("evaluate", "judge whether evidence suffices", p.evaluateNode)
	g.AddNode("synthesize", "write the answer from gathered evidence", p.synthesizeNode)
	g.AddEdge("plan", "retrieve")
	g.AddEdge("retrieve", "evaluate")
	g.AddConditionalEdge("evaluate", p.nextAfterEvaluate)
	g.AddEdge("synthesize", graph.END)
	g.SetEntryPoint("plan")

	runnable, err := g.Compile()
	if err != nil {
		return nil, err
	}
	p.runnable = runnable
	return p, nil
}

// Run executes the loop for one query. The returned state carries the
// merged evidence, the synthesized answer and why the loop stopped; a
// non-nil error means the turn failed.
func (p *Planner) Run(ctx context.Context, query string, history []rag.Turn) (*PlannerState, error) {
	initial := &PlannerState{Query: query, History: history, Phase: PhasePlanning}

	final, err := p.runnable.Invoke(ctx, initial)
	if err != nil {
		return nil, err
	}

	state, ok := final.(*PlannerState)
	if !ok {
		return nil, fmt.Errorf("unexpected final state type %T", final)
	}
	return state, nil
}

func (p *Planner) planNode(ctx context.Context, s any) (any, error) {
	state := s.(*PlannerState)
	state.Phase = PhasePlanning
	state.Iteration++
	state.priorCount = len(state.Evidence)

	plan, err := p.policy.Plan(ctx, state.Query, state.Iteration, state.Evidence)
	if err != nil {
		return nil, fmt.Errorf("planning iteration %d: %w", state.Iteration, err)
	}
	state.Plan = plan
	p.logger.Debug("iteration %d plan: action=%s query=%q seeds=%v", state.Iteration, plan.Action, plan.Query, plan.Seeds)
	return state, nil
}

// retrieveNode runs the planned modalities concurrently and merges the
// results into the accumulated evidence.
func (p *Planner) retrieveNode(ctx context.Context, s any) (any, error) {
	state := s.(*PlannerState)
	state.Phase = PhaseRetrieving
	plan := state.Plan

	var (
		wg           sync.WaitGroup
		chunkResults []rag.Evidence
		pathResults  []rag.Evidence
		vectorErr    error
		graphErr     error
	)

	if plan.Action == ActionVector || plan.Action == ActionBoth {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chunkResults, vectorErr = p.vector.Retrieve(ctx, plan.Query)
		}()
	}
	if plan.Action == ActionGraph || plan.Action == ActionBoth {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seeds := plan.Seeds
			if len(seeds) == 0 {
				seeds = retriever.SeedsFromEvidence(state.Evidence)
			}
			pathResults, graphErr = p.graphRet.Retrieve(ctx, seeds)
		}()
	}
	wg.Wait()

	if vectorErr != nil {
		return nil, vectorErr
	}
	if graphErr != nil {
		return nil, graphErr
	}

	combined := append(append(state.Evidence, chunkResults...), pathResults...)
	state.Evidence = rag.MergeEvidence(combined)
	p.logger.Debug("iteration %d retrieved %d chunks, %d paths, %d total after merge",
		state.Iteration, len(chunkResults), len(pathResults), len(state.Evidence))
	return state, nil
}

func (p *Planner) evaluateNode(ctx context.Context, s any) (any, error) {
	state := s.(*PlannerState)
	state.Phase = PhaseEvaluating

	decision, err := p.policy.Evaluate(ctx, state.Query, state.Iteration, state.Evidence)
	if err != nil {
		return nil, fmt.Errorf("evaluating iteration %d: %w", state.Iteration, err)
	}
	state.Decision = decision
	return state, nil
}

func (p *Planner) synthesizeNode(ctx context.Context, s any) (any, error) {
	state := s.(*PlannerState)
	state.Phase = PhaseSynthesizing

	answer, err := p.synthesizer.Synthesize(ctx, state.Query, state.Evidence, state.History)
	if err != nil {
		return nil, err
	}
	state.Answer = answer
	state.Phase = PhaseDone
	return state, nil
}

// nextAfterEvaluate moves to synthesis on sufficiency, on the iteration
// cap or when an iteration produced nothing new; otherwise it loops
// back to planning. Hitting the cap is not a failure, synthesis
// proceeds with whatever was gathered.
func (p *Planner) nextAfterEvaluate(ctx context.Context, s any) string {
	state := s.(*PlannerState)

	switch {
	case state.Decision != nil && state.Decision.Sufficient:
		state.StopReason = StopSufficient
	case state.Iteration >= p.maxIterations:
		state.StopReason = StopIterationCap
		p.logger.Info("stopping after %d iterations: %v", state.Iteration, rag.ErrIterationCap)
	case len(state.Evidence) == state.priorCount && state.Iteration > 1:
		state.StopReason = StopNoProgress
	default:
		return "plan"
	}
	return "synthesize"
}
