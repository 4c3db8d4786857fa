package graph

import (
	"context"
	"fmt"

	"github.com/avi3tal/flowgraph/pkg/state"
	"github.com/avi3tal/flowgraph/pkg/types"
)

// DefaultMaxIterations bounds a loop whose config omits the limit. It
// guards termination independently of the caller's until predicate.
const DefaultMaxIterations = 100

// LoopConfig configures a Loop construct.
type LoopConfig struct {
	// Until stops the loop once it returns true. Required.
	Until Condition

	// MaxIterations caps body executions regardless of Until. Defaults to
	// DefaultMaxIterations when zero or negative.
	MaxIterations int
}

// ParallelConfig configures a Parallel construct.
type ParallelConfig struct {
	Branches []*NodeDefinition
	Strategy types.MergeStrategy
}

// ifScope tracks one open If/Else region on the builder's scope stack.
type ifScope struct {
	decisionID string
	pred       Condition
	inElse     bool
	thenTail   string // last node of the then branch, "" when empty
	elseTail   string // last node of the else branch, "" when empty
}

// Builder assembles a workflow graph through a fluent chain. The first
// structural error sticks: later calls become no-ops and Compile returns
// it. A Builder is not safe for concurrent use.
type Builder struct {
	name      string
	nodes     map[string]*NodeDefinition
	order     []string
	edges     []Edge
	startID   string
	currentID string
	scopes    []*ifScope
	terminals map[string]bool
	handlerID string
	seq       int
	err       error
}

// NewBuilder creates an empty builder for a named graph.
func NewBuilder(name string) *Builder {
	return &Builder{
		name:      name,
		nodes:     make(map[string]*NodeDefinition),
		terminals: make(map[string]bool),
	}
}

// Err returns the first structural error encountered, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(op, node string, err error) *Builder {
	if b.err == nil {
		b.err = buildErr(op, node, err)
	}
	return b
}

func (b *Builder) nextSeq() int {
	b.seq++
	return b.seq
}

// register adds a node to the lookup table, rejecting duplicates.
func (b *Builder) register(op string, node *NodeDefinition) bool {
	if b.err != nil {
		return false
	}
	if node == nil {
		b.fail(op, "", ErrNilNode)
		return false
	}
	if node.ID == "" {
		b.fail(op, "", ErrEmptyNodeID)
		return false
	}
	if _, exists := b.nodes[node.ID]; exists {
		b.fail(op, node.ID, ErrDuplicateNode)
		return false
	}
	b.nodes[node.ID] = node
	b.order = append(b.order, node.ID)
	return true
}

func (b *Builder) addEdge(e Edge) {
	b.edges = append(b.edges, e)
}

// connect wires the cursor to id and advances. When the cursor sits on an
// open scope's decision node, the new edge becomes that scope's branch
// entry: guarded by the predicate for the then branch, unconditional with
// an "else" label for the else branch.
func (b *Builder) connect(op, id string) *Builder {
	if b.startID == "" {
		b.startID = id
		b.currentID = id
		return b
	}
	if b.currentID == "" {
		return b.fail(op, id, ErrNoCurrentNode)
	}

	edge := Edge{From: b.currentID, To: id}
	if sc := b.topScope(); sc != nil && b.currentID == sc.decisionID {
		if !sc.inElse && sc.thenTail == "" {
			edge.Condition = sc.pred
			edge.Label = LabelThen
		} else if sc.inElse && sc.elseTail == "" {
			edge.Label = LabelElse
		}
	}
	b.addEdge(edge)
	b.currentID = id
	b.trackBranchTail(id)
	return b
}

func (b *Builder) topScope() *ifScope {
	if len(b.scopes) == 0 {
		return nil
	}
	return b.scopes[len(b.scopes)-1]
}

// trackBranchTail records the cursor as the open scope's branch tail so
// EndIf knows where each branch ends.
func (b *Builder) trackBranchTail(id string) {
	sc := b.topScope()
	if sc == nil {
		return
	}
	if sc.inElse {
		sc.elseTail = id
	} else {
		sc.thenTail = id
	}
}

// Start sets the graph's sole start node.
func (b *Builder) Start(node *NodeDefinition) *Builder {
	if b.err != nil {
		return b
	}
	if b.startID != "" {
		return b.fail("Start", b.startID, ErrStartAlreadySet)
	}
	if !b.register("Start", node) {
		return b
	}
	b.startID = node.ID
	b.currentID = node.ID
	return b
}

// Then registers node and chains it after the current node. The first
// Then on an empty builder makes node the start.
func (b *Builder) Then(node *NodeDefinition) *Builder {
	if b.err != nil {
		return b
	}
	if !b.register("Then", node) {
		return b
	}
	return b.connect("Then", node.ID)
}

// If opens a conditional scope. A decision node is synthesized after the
// current node; the next Then lands in the then branch guarded by pred.
func (b *Builder) If(pred Condition) *Builder {
	if b.err != nil {
		return b
	}
	if pred == nil {
		return b.fail("If", "", ErrNilPredicate)
	}
	if b.currentID == "" {
		return b.fail("If", "", ErrNoCurrentNode)
	}

	decision := NewNode(fmt.Sprintf("decision_%d", b.nextSeq()), types.NodeTypeDecision, passthrough)
	if !b.register("If", decision) {
		return b
	}
	b.connect("If", decision.ID)
	if b.err != nil {
		return b
	}
	b.scopes = append(b.scopes, &ifScope{decisionID: decision.ID, pred: pred})
	return b
}

// Else switches the innermost open scope to its else branch, rewinding
// the cursor to the decision node.
func (b *Builder) Else() *Builder {
	if b.err != nil {
		return b
	}
	sc := b.topScope()
	if sc == nil {
		return b.fail("Else", "", ErrNoOpenScope)
	}
	if sc.inElse {
		return b.fail("Else", sc.decisionID, ErrElseAlreadyOpen)
	}
	sc.inElse = true
	b.currentID = sc.decisionID
	return b
}

// EndIf closes the innermost scope, synthesizing a merge node both
// branches converge on. An unpopulated branch wires the decision
// directly to the merge with that branch's label.
func (b *Builder) EndIf() *Builder {
	if b.err != nil {
		return b
	}
	sc := b.topScope()
	if sc == nil {
		return b.fail("EndIf", "", ErrNoOpenScope)
	}
	b.scopes = b.scopes[:len(b.scopes)-1]

	merge := NewNode(fmt.Sprintf("merge_%d", b.nextSeq()), types.NodeTypeDecision, passthrough)
	if !b.register("EndIf", merge) {
		return b
	}

	if sc.thenTail != "" {
		b.addEdge(Edge{From: sc.thenTail, To: merge.ID})
	} else {
		// Keep the guarded edge ahead of the fallback in declaration order.
		b.insertBeforeElse(sc.decisionID, Edge{
			From:      sc.decisionID,
			To:        merge.ID,
			Condition: sc.pred,
			Label:     LabelThen,
		})
	}
	if sc.inElse && sc.elseTail != "" {
		b.addEdge(Edge{From: sc.elseTail, To: merge.ID})
	} else {
		b.addEdge(Edge{From: sc.decisionID, To: merge.ID, Label: LabelElse})
	}

	b.currentID = merge.ID
	b.trackBranchTail(merge.ID)
	return b
}

// insertBeforeElse places e before the first "else" edge leaving from, so
// the executor's first-match routing tries the guarded edge first.
func (b *Builder) insertBeforeElse(from string, e Edge) {
	for i, existing := range b.edges {
		if existing.From == from && existing.Label == LabelElse {
			b.edges = append(b.edges[:i], append([]Edge{e}, b.edges[i:]...)...)
			return
		}
	}
	b.addEdge(e)
}

// Loop chains a loop construct: body repeats until cfg.Until holds or the
// iteration cap is hit, whichever comes first. The loop's exit edge is
// whatever the caller attaches next.
func (b *Builder) Loop(body *NodeDefinition, cfg LoopConfig) *Builder {
	if b.err != nil {
		return b
	}
	if cfg.Until == nil {
		return b.fail("Loop", "", ErrNilPredicate)
	}
	if !b.register("Loop", body) {
		return b
	}

	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	start := NewNode("loop_start_"+body.ID, types.NodeTypeDecision, passthrough)
	checkID := "loop_check_" + body.ID
	counterKey := checkID + ".iterations"
	doneKey := checkID + ".done"
	until := cfg.Until
	check := NewNode(checkID, types.NodeTypeDecision,
		func(_ context.Context, nc NodeContext) (types.NodeResult, error) {
			iterations := nc.State.GetInt(counterKey) + 1
			done := until(nc.State) || iterations >= maxIterations
			if done {
				// A later re-entry into the construct starts a fresh count.
				iterations = 0
			}
			return types.NodeResult{
				Update: &state.Update{Values: map[string]any{
					counterKey: iterations,
					doneKey:    done,
				}},
			}, nil
		})
	if !b.register("Loop", start) || !b.register("Loop", check) {
		return b
	}

	b.connect("Loop", start.ID)
	if b.err != nil {
		return b
	}
	b.addEdge(Edge{From: start.ID, To: body.ID})
	b.addEdge(Edge{From: body.ID, To: check.ID})

	b.addEdge(Edge{
		From:      check.ID,
		To:        start.ID,
		Condition: func(s *state.ExecutionState) bool { return !s.GetBool(doneKey) },
		Label:     LabelLoopContinue,
	})

	b.currentID = check.ID
	b.trackBranchTail(check.ID)
	return b
}

// Parallel chains a fan-out node executing every branch and merging per
// cfg.Strategy. It may be the graph's start node. An edge attached later
// from the parallel node is the join continuation.
func (b *Builder) Parallel(cfg ParallelConfig) *Builder {
	if b.err != nil {
		return b
	}
	if len(cfg.Branches) == 0 {
		return b.fail("Parallel", "", ErrNoBranches)
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = types.MergeAll
	}

	branchIDs := make([]string, 0, len(cfg.Branches))
	for _, branch := range cfg.Branches {
		if !b.register("Parallel", branch) {
			return b
		}
		branchIDs = append(branchIDs, branch.ID)
	}

	node := &NodeDefinition{
		ID:       fmt.Sprintf("parallel_%d", b.nextSeq()),
		Type:     types.NodeTypeParallel,
		Parallel: &ParallelSpec{Branches: branchIDs, Strategy: strategy},
	}
	if !b.register("Parallel", node) {
		return b
	}
	b.connect("Parallel", node.ID)
	if b.err != nil {
		return b
	}
	for _, branchID := range branchIDs {
		b.addEdge(Edge{From: node.ID, To: branchID, Label: LabelBranch})
	}
	return b
}

// Wait chains a wait node that pauses the execution with the given
// prompt until resumed. To wait on custom behavior, pass a wait-typed
// NodeDefinition to Then instead.
func (b *Builder) Wait(prompt string) *Builder {
	if b.err != nil {
		return b
	}
	node := NewNode(fmt.Sprintf("wait_%d", b.nextSeq()), types.NodeTypeWait,
		func(_ context.Context, _ NodeContext) (types.NodeResult, error) {
			return types.NodeResult{Signals: []types.Signal{types.Pause(prompt)}}, nil
		})
	if !b.register("Wait", node) {
		return b
	}
	return b.connect("Wait", node.ID)
}

// Catch registers handler as the graph's error handler. It is reachable
// only through the executor's failure path; no edges are added and the
// cursor does not move.
func (b *Builder) Catch(handler *NodeDefinition) *Builder {
	if b.err != nil {
		return b
	}
	if !b.register("Catch", handler) {
		return b
	}
	b.handlerID = handler.ID
	return b
}

// AddNode registers a node without wiring or moving the cursor. Useful
// for nodes reached only through explicit routing overrides.
func (b *Builder) AddNode(node *NodeDefinition) *Builder {
	b.register("AddNode", node)
	return b
}

// AddEdge wires an explicit edge between two registered nodes. The
// cursor does not move.
func (b *Builder) AddEdge(from, to string, cond Condition, label string) *Builder {
	if b.err != nil {
		return b
	}
	if _, ok := b.nodes[from]; !ok {
		return b.fail("AddEdge", from, ErrNodeNotFound)
	}
	if _, ok := b.nodes[to]; !ok {
		return b.fail("AddEdge", to, ErrNodeNotFound)
	}
	b.addEdge(Edge{From: from, To: to, Condition: cond, Label: label})
	return b
}

// End marks the current node terminal. Callable once per branch.
func (b *Builder) End() *Builder {
	if b.err != nil {
		return b
	}
	if b.currentID == "" {
		return b.fail("End", "", ErrNoCurrentNode)
	}
	b.terminals[b.currentID] = true
	return b
}

// GetNode looks up a registered node by ID.
func (b *Builder) GetNode(id string) (*NodeDefinition, bool) {
	node, ok := b.nodes[id]
	return node, ok
}

// GetEdgesFrom returns the edges leaving id in declaration order.
func (b *Builder) GetEdgesFrom(id string) []Edge {
	var out []Edge
	for _, e := range b.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// GetEdgesTo returns the edges entering id in declaration order.
func (b *Builder) GetEdgesTo(id string) []Edge {
	var out []Edge
	for _, e := range b.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Compile validates the assembled graph and freezes it. The builder is
// left untouched; compiling twice yields structurally equal graphs.
func (b *Builder) Compile(opts ...CompileOption) (*CompiledGraph, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.startID == "" {
		return nil, buildErr("Compile", "", ErrNoStartNode)
	}
	if sc := b.topScope(); sc != nil {
		return nil, buildErr("Compile", sc.decisionID, ErrUnclosedScope)
	}
	for _, id := range b.order {
		node := b.nodes[id]
		if node.Execute == nil && node.Type != types.NodeTypeParallel {
			return nil, buildErr("Compile", id, ErrNotExecutable)
		}
	}
	for _, e := range b.edges {
		if _, ok := b.nodes[e.From]; !ok {
			return nil, buildErr("Compile", e.From, ErrNodeNotFound)
		}
		if _, ok := b.nodes[e.To]; !ok {
			return nil, buildErr("Compile", e.To, ErrNodeNotFound)
		}
	}

	cfg := types.Config{GraphName: b.name}
	for _, opt := range opts {
		opt(&cfg)
	}

	nodes := make(map[string]*NodeDefinition, len(b.nodes))
	for id, node := range b.nodes {
		nodes[id] = node
	}
	edges := append([]Edge(nil), b.edges...)

	terminals := make(map[string]bool, len(b.terminals))
	for id := range b.terminals {
		terminals[id] = true
	}
	if len(terminals) == 0 {
		outdegree := make(map[string]int, len(nodes))
		for _, e := range edges {
			outdegree[e.From]++
		}
		for _, id := range b.order {
			if outdegree[id] == 0 {
				terminals[id] = true
			}
		}
	}

	cg := &CompiledGraph{
		name:      b.name,
		nodes:     nodes,
		edges:     edges,
		startID:   b.startID,
		terminals: terminals,
		handlerID: b.handlerID,
		config:    cfg,
	}
	for _, obs := range cfg.Observers {
		obs.GraphCompiled(b.name, len(nodes), len(edges))
	}
	return cg, nil
}
