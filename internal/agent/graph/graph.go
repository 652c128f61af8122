package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/bank-of-trust/bankbot-core/internal/agent/graph/nodes"
	"github.com/bank-of-trust/bankbot-core/internal/agent/graph/observers"
	"github.com/bank-of-trust/bankbot-core/internal/agent/model"
	"github.com/bank-of-trust/bankbot-core/internal/flow"
	logx "github.com/bank-of-trust/bankbot-core/pkg/logger"
)

// maxRunSteps bounds one turn: router, one handler, composer, plus headroom.
const maxRunSteps = 10

// Runner executes one dialogue turn.
type Runner interface {
	Invoke(ctx context.Context, in *model.Turn) (*model.Turn, error)
}

// GraphConfig holds all configuration needed to build the turn graph.
type GraphConfig struct {
	Engine    *flow.Engine
	Balances  nodes.BalanceReader
	Threshold float64
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.Turn, *model.Turn]
}

type graphRunner struct {
	runnable compose.Runnable[*model.Turn, *model.Turn]
}

func (r *graphRunner) Invoke(ctx context.Context, in *model.Turn) (*model.Turn, error) {
	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("turn graph returned no turn")
	}
	return out, nil
}

// BuildTurnGraph builds and compiles the turn graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Engine == nil {
		return nil, fmt.Errorf("flow engine is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.Turn, *model.Turn](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	runnable, err := builder.compile(ctx)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	engine := b.config.Engine
	add := []struct {
		name string
		node *compose.Lambda
		opts []compose.GraphAddNodeOpt
	}{
		{nodes.NodeRouter, nodes.NewRouterNode(engine), []compose.GraphAddNodeOpt{
			compose.WithStatePreHandler(nodes.NewRouterPreHandler()),
			compose.WithStatePostHandler(nodes.NewRouterPostHandler()),
		}},
		{nodes.NodeFlow, nodes.NewFlowNode(engine), []compose.GraphAddNodeOpt{
			compose.WithStatePreHandler(nodes.NewFlowPreHandler()),
			compose.WithStatePostHandler(nodes.NewHandlerPostHandler(nodes.NodeFlow)),
		}},
		{nodes.NodeControl, nodes.NewControlNode(engine), []compose.GraphAddNodeOpt{
			compose.WithStatePreHandler(nodes.NewFlowPreHandler()),
			compose.WithStatePostHandler(nodes.NewHandlerPostHandler(nodes.NodeControl)),
		}},
		{nodes.NodeClassify, nodes.NewClassifyNode(engine, b.config.Balances, b.config.Threshold), []compose.GraphAddNodeOpt{
			compose.WithStatePostHandler(nodes.NewHandlerPostHandler(nodes.NodeClassify)),
		}},
		{nodes.NodeCompose, nodes.NewComposeNode(), nil},
	}

	for _, n := range add {
		opts := append([]compose.GraphAddNodeOpt{compose.WithNodeName(n.name)}, n.opts...)
		if err := b.graph.AddLambdaNode(n.name, n.node, opts...); err != nil {
			logx.Error().Err(err).Str("node", n.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", n.name, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeRouter},
		{nodes.NodeFlow, nodes.NodeCompose},
		{nodes.NodeControl, nodes.NodeCompose},
		{nodes.NodeClassify, nodes.NodeCompose},
		{nodes.NodeCompose, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(),
		map[string]bool{
			nodes.NodeControl:  true,
			nodes.NodeFlow:     true,
			nodes.NodeClassify: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRouter, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.Turn, *model.Turn], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("DialogueTurn"),
		compose.WithMaxRunSteps(maxRunSteps),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
