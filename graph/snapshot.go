package graph

import (
	"time"
)

// Snapshot is a JSON view of the type graph for visualization and tooling.
type Snapshot struct {
	Nodes []SnapshotNode `json:"nodes"`
	Links []SnapshotLink `json:"links"`
	Meta  SnapshotMeta   `json:"meta"`
}

// SnapshotNode is one class.
type SnapshotNode struct {
	ID        string `json:"id"`   // fully-qualified class name
	Type      string `json:"type"` // class, interface, enum, annotation
	Label     string `json:"label"`
	Package   string `json:"package"`
	Group     int    `json:"group"` // package group index, for clustering
	Level     int    `json:"level"`
	Invalid   bool   `json:"invalid,omitempty"`
	Methods   int    `json:"methods"`
	Fields    int    `json:"fields"`
	Skipped   int    `json:"skipped,omitempty"` // unemittable members
	Interface int    `json:"interfaces,omitempty"`
}

// SnapshotLink is one relationship.
type SnapshotLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// SnapshotMeta contains metadata about the graph
type SnapshotMeta struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Stats       Stats          `json:"stats"`
	Groups      []PackageGroup `json:"package_groups"`
	EdgeCounts  map[string]int `json:"edge_counts"`
}

// Stats summarizes the graph.
type Stats struct {
	Classes       int `json:"classes"`
	Interfaces    int `json:"interfaces"`
	Invalid       int `json:"invalid"`
	Packages      int `json:"packages"`
	PackageGroups int `json:"package_groups"`
	MaxLevel      int `json:"max_level"`
	Skipped       int `json:"skipped_members"`
	Edges         int `json:"edges"`
}

// Stats computes summary counts.
func (g *Graph) Stats() Stats {
	s := Stats{
		Packages:      len(g.packages.Packages()),
		PackageGroups: len(g.packages.Groups()),
		MaxLevel:      len(g.levels) - 1,
		Edges:         len(g.edges),
	}
	for _, n := range g.sorted {
		switch {
		case n.Invalid:
			s.Invalid++
		case n.IsInterface():
			s.Interfaces++
		default:
			s.Classes++
		}
		s.Skipped += len(n.unemittable)
	}
	return s
}

// Snapshot renders the graph for JSON output.
func (g *Graph) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Nodes: make([]SnapshotNode, 0, len(g.sorted)),
		Links: make([]SnapshotLink, 0, len(g.edges)),
		Meta: SnapshotMeta{
			GeneratedAt: now,
			Stats:       g.Stats(),
			Groups:      g.packages.Groups(),
			EdgeCounts:  map[string]int{},
		},
	}
	for _, n := range g.sorted {
		group := -1
		if i, ok := g.packages.groupOf[n.Package()]; ok {
			group = i
		}
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			ID:        n.Name(),
			Type:      n.Class.Kind.String(),
			Label:     n.Class.SimpleName(),
			Package:   n.Package(),
			Group:     group,
			Level:     n.Level,
			Invalid:   n.Invalid,
			Methods:   len(n.Class.Methods),
			Fields:    len(n.Class.Fields),
			Skipped:   len(n.unemittable),
			Interface: len(n.Closure),
		})
	}
	for _, e := range g.edges {
		snap.Links = append(snap.Links, SnapshotLink{Source: e.From, Target: e.To, Type: string(e.Kind)})
		snap.Meta.EdgeCounts[string(e.Kind)]++
	}
	return snap
}
