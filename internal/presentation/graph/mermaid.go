package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/espalier/pkg/domain"
)

// Overlay contains dynamic run state to visualize on top of the graph.
type Overlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromState derives an overlay from a run snapshot: completed nodes
// are marked visited, the head of the frontier is current.
func OverlayFromState(state *domain.State) *Overlay {
	if state == nil {
		return nil
	}
	o := &Overlay{}
	for id := range state.Outputs {
		o.VisitedNodes = append(o.VisitedNodes, id)
	}
	if len(state.Frontier) > 0 {
		o.CurrentNode = state.Frontier[0]
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart from a graph's nodes and
// edges. Node shapes follow type semantics:
//   - start: ((circle))
//   - decision: {diamond}
//   - wait: [/parallelogram/]
//   - tool, subgraph: [[subroutine]]
//   - default: [rectangle]
//
// Labeled edges render their label; an overlay styles visited and current
// nodes.
func GenerateMermaid(start string, nodes []domain.Node, edges []domain.Edge, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case node.ID == start:
			opener, closer = "((", "))"
		case node.Type == domain.NodeTypeDecision:
			opener, closer = "{", "}"
		case node.Type == domain.NodeTypeWait:
			opener, closer = "[/", "/]"
		case node.Type == domain.NodeTypeTool, node.Type == domain.NodeTypeSubgraph:
			opener, closer = "[[", "]]"
		}

		label := node.ID
		if node.Type == domain.NodeTypeLoop {
			label = node.ID + " 🔁"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))
	}

	for _, edge := range edges {
		safeFrom := sanitizeMermaidID(edge.From)
		safeTo := sanitizeMermaidID(edge.To)

		arrow := "-->"
		if edge.Label != "" {
			safeLabel := strings.ReplaceAll(edge.Label, "\"", "'")
			arrow = fmt.Sprintf("-- \"%s\" -->", safeLabel)
		} else if edge.Condition != nil {
			arrow = "-. cond .->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeFrom, arrow, safeTo))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for high contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
