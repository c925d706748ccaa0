package graph

import (
	"sort"
	"strings"
)

// Input keys that carry prompt text directly, consulted in this order.
// Order matters: when a node carries several of these, the earliest wins.
var textInputKeys = []string{
	"text", "text_g", "text_l", "positive", "negative",
	"caption", "prompt", "string", "value",
}

// Alternative input-name pairs a combiner node may use for its two branches.
var combinerPairs = [][2]string{
	{"conditioning_1", "conditioning_2"},
	{"text_a", "text_b"},
	{"string_a", "string_b"},
}

const minWidgetTextLen = 4

// Prompts recovers the positive and negative prompt by locating
// sampler-like nodes and tracing their conditioning inputs backwards.
// The first sampler (in sorted id order) to yield a non-empty positive
// sets the positive prompt, independently likewise for negative.
//
// UI-format graphs have no resolvable links and always return empty
// strings here; callers fall back to TextLeaves.
func (g *NodeGraph) Prompts() (positive, negative string) {
	if g.Format != APIFormat {
		return "", ""
	}
	for _, id := range g.sortedIDs() {
		n := g.Nodes[id]
		if !isSampler(n.ClassType) {
			continue
		}
		if positive == "" {
			visited := map[string]struct{}{n.ID: {}}
			p := g.resolveInput(n, "positive", visited)
			if p == "" {
				p = g.resolveInput(n, "conditioning", visited)
			}
			positive = strings.TrimSpace(p)
		}
		if negative == "" {
			visited := map[string]struct{}{n.ID: {}}
			negative = strings.TrimSpace(g.resolveInput(n, "negative", visited))
		}
		if positive != "" && negative != "" {
			break
		}
	}
	return positive, negative
}

// isSampler is a substring heuristic, not an enum: new sampler node types
// match automatically at the cost of the occasional false positive.
func isSampler(classType string) bool {
	ct := strings.ToLower(classType)
	if !strings.Contains(ct, "sampler") && !strings.Contains(ct, "generate") {
		return false
	}
	return !strings.Contains(ct, "save") &&
		!strings.Contains(ct, "load") &&
		!strings.Contains(ct, "image")
}

// resolveInput resolves the named input of n to a text value, following
// [sourceID, slotIndex] links backwards. visited holds every node id a
// link has been followed into; re-entering one breaks the cycle by
// resolving to "".
func (g *NodeGraph) resolveInput(n *Node, name string, visited map[string]struct{}) string {
	v, ok := n.Inputs[name]
	if !ok {
		// UI-format nodes have no named inputs, only positional widget
		// values; the first plausible string is the best we can do.
		if g.Format == UIFormat {
			return firstWidgetText(n)
		}
		return ""
	}

	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) != 2 {
			return ""
		}
		srcID, ok := normalizeID(val[0])
		if !ok {
			return ""
		}
		src, ok := g.Nodes[srcID]
		if !ok {
			return ""
		}
		if _, seen := visited[srcID]; seen {
			return ""
		}
		visited[srcID] = struct{}{}
		return g.resolveSource(src, visited)
	}
	return ""
}

// resolveSource extracts text from a node another node links into.
func (g *NodeGraph) resolveSource(src *Node, visited map[string]struct{}) string {
	// The common case: a dedicated text-encode node holding the string
	// under a well-known input name. Checked before any class dispatch.
	for _, key := range textInputKeys {
		if s, ok := src.Inputs[key].(string); ok {
			return s
		}
	}

	ct := strings.ToLower(src.ClassType)

	// Pass-through nodes forward exactly one meaningful upstream value,
	// but under an unknown input name, so every input is tried.
	if strings.Contains(ct, "reroute") || strings.Contains(ct, "primitive") ||
		strings.Contains(ct, "node") || strings.Contains(ct, "pipe") ||
		strings.Contains(ct, "bus") {
		for _, key := range sortedInputKeys(src) {
			if s := g.resolveInput(src, key, visited); s != "" {
				return s
			}
		}
		return ""
	}

	if strings.Contains(ct, "combine") || strings.Contains(ct, "concat") ||
		strings.Contains(ct, "average") {
		return g.resolveCombiner(src, visited)
	}

	// Unknown node types are not recursed into blindly; that bounds the
	// traversal on graphs full of third-party classes.
	return ""
}

func (g *NodeGraph) resolveCombiner(src *Node, visited map[string]struct{}) string {
	for _, pair := range combinerPairs {
		a := g.resolveInput(src, pair[0], visited)
		b := g.resolveInput(src, pair[1], visited)
		switch {
		case a != "" && b != "":
			return a + "\n\n" + b
		case a != "":
			return a
		case b != "":
			return b
		}
	}
	return ""
}

func firstWidgetText(n *Node) string {
	for _, w := range n.Widgets {
		if s, ok := w.(string); ok && len(s) >= minWidgetTextLen {
			return s
		}
	}
	return ""
}

func sortedInputKeys(n *Node) []string {
	keys := make([]string, 0, len(n.Inputs))
	for k := range n.Inputs {
		keys = append(keys, k)
	}
	// Deterministic order for pass-through fan-in and leaf collection.
	sort.Strings(keys)
	return keys
}

// Model-weight filename extensions excluded from leaf collection.
var weightExtensions = []string{".safetensors", ".pt", ".ckpt"}

// TextLeaves collects every plausible text literal in the graph: all
// string input values and, for UI graphs, all string widget values.
// Strings shorter than minLen and model-weight filenames are dropped as
// noise. Duplicates are removed; order follows the sorted node walk.
func (g *NodeGraph) TextLeaves(minLen int) []string {
	var leaves []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if len(s) < minLen || isWeightFile(s) {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		leaves = append(leaves, s)
	}

	for _, id := range g.sortedIDs() {
		n := g.Nodes[id]
		for _, key := range sortedInputKeys(n) {
			if s, ok := n.Inputs[key].(string); ok {
				add(s)
			}
		}
		for _, w := range n.Widgets {
			if s, ok := w.(string); ok {
				add(s)
			}
		}
	}
	return leaves
}

func isWeightFile(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range weightExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
