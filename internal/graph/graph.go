// Package graph interprets the JSON recovered from a media container as a
// directed node graph and resolves prompt text out of it. Two incompatible
// serialisations coexist: the execution ("API") format, a flat map of
// node-id to {class_type, inputs}, and the UI workflow format,
// {nodes: [...], links: [...]}, whose nodes only carry positional
// widgets_values and are treated as leaf-only.
package graph

import (
	"sort"
	"strconv"
)

// Format tags which serialisation a NodeGraph was built from.
type Format int

const (
	APIFormat Format = iota
	UIFormat
)

// Node is one processing step. API-format nodes have ClassType and named
// Inputs whose values are literals or [sourceID, slotIndex] links.
// UI-format nodes have only Widgets. Unrecognised keys are dropped; there
// is no closed schema for third-party node classes.
type Node struct {
	ID        string
	ClassType string
	Inputs    map[string]any
	Widgets   []any
}

// NodeGraph is an id-indexed arena of nodes. Traversal always goes through
// the index with an explicit visited set, never through pointers, because
// the graphs found in the wild contain cycles.
type NodeGraph struct {
	Format Format
	Nodes  map[string]*Node
}

// Classify unwraps and classifies a parsed JSON value into a NodeGraph.
// Returns false when the value has neither recognisable shape.
//
// Wrapper objects like {"prompt": {...graph...}, "workflow": {...}} are
// descended into first. A document carrying both a "nodes" array and
// API-shaped entries classifies as UI format, losing link resolution; this
// is a known limitation of the heuristic.
func Classify(v any) (*NodeGraph, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}

	if _, hasNodes := obj["nodes"].([]any); !hasNodes {
		if inner, ok := obj["prompt"].(map[string]any); ok {
			obj = inner
		} else if inner, ok := obj["workflow"].(map[string]any); ok {
			obj = inner
		}
	}

	if nodes, ok := obj["nodes"].([]any); ok {
		return buildUIGraph(nodes), true
	}
	return buildAPIGraph(obj)
}

func buildAPIGraph(obj map[string]any) (*NodeGraph, bool) {
	g := &NodeGraph{Format: APIFormat, Nodes: make(map[string]*Node, len(obj))}
	for id, raw := range obj {
		body, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		n := &Node{ID: id}
		n.ClassType, _ = body["class_type"].(string)
		n.Inputs, _ = body["inputs"].(map[string]any)
		g.Nodes[id] = n
	}
	if len(g.Nodes) == 0 {
		return nil, false
	}
	return g, true
}

func buildUIGraph(nodes []any) *NodeGraph {
	g := &NodeGraph{Format: UIFormat, Nodes: make(map[string]*Node, len(nodes))}
	for _, raw := range nodes {
		body, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, ok := normalizeID(body["id"])
		if !ok {
			continue
		}
		n := &Node{ID: id}
		n.ClassType, _ = body["type"].(string)
		n.Widgets, _ = body["widgets_values"].([]any)
		g.Nodes[id] = n
	}
	return g
}

// normalizeID folds the string-or-number node identifiers both formats use
// into a single string key.
func normalizeID(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, true
	case float64:
		return strconv.FormatInt(int64(id), 10), true
	}
	return "", false
}

// sortedIDs returns the node ids in a deterministic order: numeric ids
// compare as integers, everything else lexicographically after them. JSON
// object iteration order is not stable across parsers, so prompt
// resolution pins its own order instead.
func (g *NodeGraph) sortedIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aerr := strconv.Atoi(ids[i])
		b, berr := strconv.Atoi(ids[j])
		switch {
		case aerr == nil && berr == nil:
			return a < b
		case aerr == nil:
			return true
		case berr == nil:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
	return ids
}
