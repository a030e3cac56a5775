// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package dag provides the dependency graph used to order source files for
// compilation.
//
package dag

import (
	"strings"

	"github.com/pkg/errors"
)

// Node is a node in the graph.
//
type Node struct {
	// ID is the unique identifier (source file path).
	ID string
	// Data holds arbitrary node data.
	Data interface{}
}

// Graph is a directed graph. Nodes keep their insertion order, which is
// used to break ties in TopologicalSort.
//
type Graph struct {
	nodes   map[string]*Node
	order   []string
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
//
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node to the graph. Adding an existing node updates its data.
//
func (g *Graph) AddNode(id string, data interface{}) {
	if n, ok := g.nodes[id]; ok {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
//
func (g *Graph) AddEdge(parentID, childID string) error {
	if _, ok := g.nodes[parentID]; !ok {
		return errors.Errorf("parent node %q does not exist", parentID)
	}
	if _, ok := g.nodes[childID]; !ok {
		return errors.Errorf("child node %q does not exist", childID)
	}
	if parentID == childID {
		return errors.Errorf("self-loop detected: %s", parentID)
	}
	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns a node by ID.
//
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Parents returns the parents (dependencies) of a node.
//
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// Children returns the children (dependents) of a node.
//
func (g *Graph) Children(id string) []string { return g.edges[id] }

// Len returns the number of nodes in the graph.
//
func (g *Graph) Len() int { return len(g.order) }

// HasCycle returns true if the graph contains a cycle, along with the cycle
// path.
//
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	stack := make(map[string]bool)
	from := make(map[string]string)
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		stack[id] = true
		for _, c := range g.edges[id] {
			if !visited[c] {
				from[c] = id
				if dfs(c) {
					return true
				}
			} else if stack[c] {
				cycle = []string{c}
				for cur := id; cur != c; cur = from[cur] {
					cycle = append([]string{cur}, cycle...)
				}
				cycle = append([]string{c}, cycle...)
				return true
			}
		}
		stack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cycle
		}
	}
	return false, nil
}

// TopologicalSort returns nodes in topological order (dependencies before
// dependents). Independent nodes keep their insertion order. Returns an error
// if the graph contains a cycle.
//
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if ok, path := g.HasCycle(); ok {
		return nil, errors.Errorf("dependency cycle: %s", strings.Join(path, " -> "))
	}
	visited := make(map[string]bool)
	out := make([]*Node, 0, len(g.order))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, p := range g.parents[id] {
			visit(p)
		}
		out = append(out, g.nodes[id])
	}
	for _, id := range g.order {
		visit(id)
	}
	return out, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
