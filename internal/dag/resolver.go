// Package dag builds the crash-cascade graph the Crash Policy Engine
// walks when a disabled or quarantined process should take its
// dependents down with it: an edge runs from a process to everything
// that declares a depends_on pointing at it, the reverse of the
// Supervisor's own startup-order graph in internal/deps.
package dag

import "github.com/processguard/processguard/internal/config"

// Graph maps a process name to the names of the processes that declare
// it in their depends_on list.
type Graph struct {
	dependents map[string][]string
}

// NewGraph builds the dependents graph from the configured process list.
func NewGraph(processes []*config.Process) *Graph {
	g := &Graph{dependents: make(map[string][]string)}
	for _, proc := range processes {
		if _, ok := g.dependents[proc.Name]; !ok {
			g.dependents[proc.Name] = nil
		}
		for _, dep := range proc.DependsOn {
			g.dependents[dep] = append(g.dependents[dep], proc.Name)
		}
	}
	return g
}

// Dependents returns the processes that directly depend on name.
func (g *Graph) Dependents(name string) []string {
	return g.dependents[name]
}

// Cascade returns every process transitively downstream of name (its
// dependents, their dependents, and so on), each name appearing once,
// safe against cycles via a visited set.
func (g *Graph) Cascade(name string) []string {
	visited := make(map[string]bool)
	var result []string

	var walk func(string)
	walk = func(n string) {
		for _, dep := range g.dependents[n] {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			result = append(result, dep)
			walk(dep)
		}
	}
	walk(name)
	return result
}
