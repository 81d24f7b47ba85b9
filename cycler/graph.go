package cycler

import (
	"slices"

	"github.com/pkg/errors"
)

type nodeSet map[string]struct{}

type nodeDependencies map[string]nodeSet

// Graph maintains the nodes of a cycler and which node consumes outputs of which.
type Graph struct {
	nodes    map[string]Node
	order    []string // insertion order
	children nodeDependencies
	parents  nodeDependencies
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]Node),
		children: make(nodeDependencies),
		parents:  make(nodeDependencies),
	}
}

func addToSet(deps nodeDependencies, key, node string) {
	nodes, ok := deps[key]
	if !ok {
		nodes = make(nodeSet)
		deps[key] = nodes
	}
	nodes[node] = struct{}{}
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node Node) error {
	name := node.Name()
	if _, ok := g.nodes[name]; ok {
		return errors.Errorf("node %q added twice", name)
	}
	g.nodes[name] = node
	g.order = append(g.order, name)
	return nil
}

// AddDependency records that consumer reads an output of producer.
func (g *Graph) AddDependency(consumer, producer string) error {
	if consumer == producer {
		return errors.Errorf("%q cannot depend on itself", consumer)
	}
	for _, name := range []string{consumer, producer} {
		if _, ok := g.nodes[name]; !ok {
			return errors.Errorf("unknown node %q", name)
		}
	}
	if g.pathFromToExists(producer, consumer) {
		return errors.Errorf("circular dependency - %q already depends on %q", producer, consumer)
	}
	addToSet(g.children, producer, consumer)
	addToSet(g.parents, consumer, producer)
	return nil
}

// pathFromToExists reports whether source depends on goal, directly or transitively.
func (g *Graph) pathFromToExists(source, goal string) bool {
	visited := map[string]bool{source: true}
	next := []string{source}
	for len(next) > 0 {
		var found []string
		for _, node := range next {
			for parent := range g.parents[node] {
				if parent == goal {
					return true
				}
				if !visited[parent] {
					visited[parent] = true
					found = append(found, parent)
				}
			}
		}
		next = found
	}
	return false
}

// IsDependingOn returns whether consumer reads outputs of producer, directly or transitively.
func (g *Graph) IsDependingOn(consumer, producer string) bool {
	return g.pathFromToExists(consumer, producer)
}

// TopologicalSort returns the nodes with producers before their consumers. Nodes without an
// order between them keep their insertion order.
func (g *Graph) TopologicalSort() []Node {
	remaining := make(map[string]int, len(g.order))
	for _, name := range g.order {
		remaining[name] = len(g.parents[name])
	}
	ordered := make([]Node, 0, len(g.order))
	for len(ordered) < len(g.order) {
		var ready []string
		for _, name := range g.order {
			if count, ok := remaining[name]; ok && count == 0 {
				ready = append(ready, name)
			}
		}
		if len(ready) == 0 {
			// unreachable while AddDependency rejects cycles
			break
		}
		// take one node at a time so a later ready node never overtakes an earlier one
		name := ready[0]
		delete(remaining, name)
		ordered = append(ordered, g.nodes[name])
		for child := range g.children[name] {
			remaining[child]--
		}
	}
	return ordered
}

// BuildGraph resolves every input of nodes either to the node producing it or to one of
// externalInputs.
func BuildGraph(nodes []Node, externalInputs []string) (*Graph, error) {
	g := NewGraph()
	producers := map[string]string{}
	for _, node := range nodes {
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
		for _, output := range node.Outputs() {
			if other, ok := producers[output]; ok {
				return nil, errors.Errorf("output %q is produced by %q and %q", output, other, node.Name())
			}
			if slices.Contains(externalInputs, output) {
				return nil, errors.Errorf("output %q of %q shadows an external input", output, node.Name())
			}
			producers[output] = node.Name()
		}
	}
	for _, node := range nodes {
		for _, input := range node.Inputs() {
			producer, ok := producers[input]
			switch {
			case ok:
				if err := g.AddDependency(node.Name(), producer); err != nil {
					return nil, err
				}
			case slices.Contains(externalInputs, input):
			default:
				return nil, NewMissingProducerError(node.Name(), input)
			}
		}
	}
	return g, nil
}
