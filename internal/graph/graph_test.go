package graph_test

import (
	"encoding/json"
	"testing"

	"promptscan/internal/graph"

	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func classify(t *testing.T, raw string) *graph.NodeGraph {
	t.Helper()
	g, ok := graph.Classify(parse(t, raw))
	require.True(t, ok)
	return g
}

func TestClassifyAPIFormat(t *testing.T) {
	g := classify(t, `{
		"3": {"class_type": "KSampler", "inputs": {"seed": 42}},
		"5": {"class_type": "CLIPTextEncode", "inputs": {"text": "a red fox"}}
	}`)
	require.Equal(t, graph.APIFormat, g.Format)
	require.Len(t, g.Nodes, 2)
	require.Equal(t, "KSampler", g.Nodes["3"].ClassType)
}

func TestClassifyUIFormat(t *testing.T) {
	g := classify(t, `{
		"nodes": [
			{"id": 1, "type": "CLIPTextEncode", "widgets_values": ["a red fox"]},
			{"id": 2, "type": "KSampler"}
		],
		"links": []
	}`)
	require.Equal(t, graph.UIFormat, g.Format)
	require.Len(t, g.Nodes, 2)
	require.Equal(t, "CLIPTextEncode", g.Nodes["1"].ClassType)
}

func TestClassifyUnwrapsPromptWrapper(t *testing.T) {
	g := classify(t, `{
		"prompt": {"3": {"class_type": "KSampler", "inputs": {}}},
		"workflow": {"nodes": []}
	}`)
	require.Equal(t, graph.APIFormat, g.Format)
	require.Contains(t, g.Nodes, "3")
}

func TestClassifyUnwrapsWorkflowWrapper(t *testing.T) {
	g := classify(t, `{
		"workflow": {"9": {"class_type": "CLIPTextEncode", "inputs": {"text": "hi there"}}}
	}`)
	require.Equal(t, graph.APIFormat, g.Format)
	require.Contains(t, g.Nodes, "9")
}

func TestClassifyPrefersUIWhenBothShapesPresent(t *testing.T) {
	// Known limitation: a nodes array wins over API-shaped siblings.
	g := classify(t, `{
		"nodes": [{"id": 1, "type": "KSampler"}],
		"3": {"class_type": "KSampler", "inputs": {}}
	}`)
	require.Equal(t, graph.UIFormat, g.Format)
}

func TestClassifyRejectsNonGraphs(t *testing.T) {
	for _, raw := range []string{`[]`, `"text"`, `42`, `{}`, `{"a": 1, "b": 2}`} {
		_, ok := graph.Classify(parse(t, raw))
		require.False(t, ok, "input %s", raw)
	}
}
