package graph

import (
	"context"
	"fmt"
	"sync"
)

// StateGraph is a state machine whose nodes transform a shared state value.
// Nodes are connected by static edges or by conditional edges whose target
// is decided at runtime from the current state.
type StateGraph struct {
	nodes map[string]Node

	edges []Edge

	// conditionalEdges maps a "From" node to a function deriving the "To" node
	conditionalEdges map[string]func(ctx context.Context, state any) string

	entryPoint string

	// Schema defines the state structure and update logic
	Schema StateSchema
}

// NewStateGraph creates a new instance of StateGraph.
func NewStateGraph() *StateGraph {
	return &StateGraph{
		nodes:            make(map[string]Node),
		conditionalEdges: make(map[string]func(ctx context.Context, state any) string),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function
func (g *StateGraph) AddNode(name string, description string, fn func(ctx context.Context, state any) (any, error)) {
	g.nodes[name] = Node{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes
func (g *StateGraph) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime
func (g *StateGraph) AddConditionalEdge(from string, condition func(ctx context.Context, state any) string) {
	g.conditionalEdges[from] = condition
}

// SetEntryPoint sets the entry point node name for the state graph
func (g *StateGraph) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetSchema sets the state schema for the graph
func (g *StateGraph) SetSchema(schema StateSchema) {
	g.Schema = schema
}

// StateRunnable represents a compiled state graph that can be invoked
type StateRunnable struct {
	graph *StateGraph
}

// Compile compiles the state graph and returns a StateRunnable instance
func (g *StateGraph) Compile() (*StateRunnable, error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}

	return &StateRunnable{
		graph: g,
	}, nil
}

// Invoke executes the compiled state graph with the given input state
func (r *StateRunnable) Invoke(ctx context.Context, initialState any) (any, error) {
	state := initialState
	currentNodes := []string{r.graph.entryPoint}

	for len(currentNodes) > 0 {
		activeNodes := make([]string, 0, len(currentNodes))
		for _, node := range currentNodes {
			if node != END {
				activeNodes = append(activeNodes, node)
			}
		}
		currentNodes = activeNodes

		if len(currentNodes) == 0 {
			break
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		results, errorsList := r.executeNodesParallel(ctx, currentNodes, state)
		for _, err := range errorsList {
			if err != nil {
				return nil, err
			}
		}

		var err error
		state, err = r.mergeState(state, results)
		if err != nil {
			return nil, err
		}

		currentNodes, err = r.determineNextNodes(ctx, currentNodes, state)
		if err != nil {
			return nil, err
		}
	}

	return state, nil
}

// executeNodesParallel executes the current step's nodes in parallel and
// returns their results or errors
func (r *StateRunnable) executeNodesParallel(ctx context.Context, nodes []string, state any) ([]any, []error) {
	var wg sync.WaitGroup
	results := make([]any, len(nodes))
	errorsList := make([]error, len(nodes))

	for i, nodeName := range nodes {
		node, ok := r.graph.nodes[nodeName]
		if !ok {
			errorsList[i] = fmt.Errorf("%w: %s", ErrNodeNotFound, nodeName)
			continue
		}

		idx := i
		n := node
		name := nodeName

		safeGo(&wg, func() {
			res, err := n.Function(ctx, state)
			if err != nil {
				errorsList[idx] = fmt.Errorf("error in node %s: %w", name, err)
				return
			}
			results[idx] = res
		}, func(panicVal any) {
			errorsList[idx] = fmt.Errorf("panic in node %s: %v", name, panicVal)
		})
	}
	wg.Wait()
	return results, errorsList
}

// mergeState merges the processed results into the current state
func (r *StateRunnable) mergeState(currentState any, results []any) (any, error) {
	state := currentState
	if r.graph.Schema != nil {
		for _, res := range results {
			var err error
			state, err = r.graph.Schema.Update(state, res)
			if err != nil {
				return nil, fmt.Errorf("schema update failed: %w", err)
			}
		}
		return state, nil
	}

	if len(results) > 0 {
		state = results[len(results)-1]
	}
	return state, nil
}

// determineNextNodes determines the next nodes to execute based on static or conditional edges
func (r *StateRunnable) determineNextNodes(ctx context.Context, currentNodes []string, state any) ([]string, error) {
	nextNodesSet := make(map[string]bool)

	for _, nodeName := range currentNodes {
		nextNodeFn, hasConditional := r.graph.conditionalEdges[nodeName]
		if hasConditional {
			nextNode := nextNodeFn(ctx, state)
			if nextNode == "" {
				return nil, fmt.Errorf("conditional edge returned empty next node from %s", nodeName)
			}
			nextNodesSet[nextNode] = true
			continue
		}

		foundNext := false
		for _, edge := range r.graph.edges {
			if edge.From == nodeName {
				nextNodesSet[edge.To] = true
				foundNext = true
				// no break: fan-out via multiple edges from the same node
			}
		}

		if !foundNext {
			return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, nodeName)
		}
	}

	nextNodesList := make([]string, 0, len(nextNodesSet))
	for node := range nextNodesSet {
		nextNodesList = append(nextNodesList, node)
	}
	return nextNodesList, nil
}

// safeGo launches fn in a goroutine tracked by wg, routing panics to onPanic.
func safeGo(wg *sync.WaitGroup, fn func(), onPanic func(panicVal any)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				onPanic(rec)
			}
		}()
		fn()
	}()
}
