package model

import (
	"fmt"
	"strings"
)

// Cycle is a path of assembly definitions that leads back to its first
// element
type Cycle []*Definition

// String formats the cycle as "a -> b -> a"
func (c Cycle) String() string {
	names := make([]string, 0, len(c)+1)
	for _, def := range c {
		names = append(names, def.Name())
	}
	if len(c) > 0 {
		names = append(names, c[0].Name())
	}
	return strings.Join(names, " -> ")
}

// DetectCycles finds the recursive assembly paths in the schema. Each cycle
// is reported once, starting at the definition first reached by a
// depth-first search over definitions in arena order.
func (s *Schema) DetectCycles() []Cycle {
	var cycles []Cycle
	visited := make(map[DefID]bool)
	onPath := make(map[DefID]bool)

	var dfs func(def *Definition, path []*Definition)
	dfs = func(def *Definition, path []*Definition) {
		visited[def.id] = true
		onPath[def.id] = true
		path = append(path, def)

		for _, inst := range def.model {
			child := inst.Definition()
			if child.kind != KindAssembly {
				continue
			}
			if onPath[child.id] {
				for i, d := range path {
					if d.id == child.id {
						cycle := make(Cycle, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
				continue
			}
			if !visited[child.id] {
				dfs(child, path)
			}
		}

		onPath[def.id] = false
	}

	for _, def := range s.defs {
		if def.kind == KindAssembly && !visited[def.id] {
			dfs(def, nil)
		}
	}
	return cycles
}

// Reachable returns the definitions reachable from root through flag and
// model instances, in breadth-first order starting with root
func (s *Schema) Reachable(root *Definition) []*Definition {
	seen := map[DefID]bool{root.id: true}
	queue := []*Definition{root}
	for i := 0; i < len(queue); i++ {
		def := queue[i]
		for _, inst := range append(append([]*Instance{}, def.flags...), def.model...) {
			if !seen[inst.def] {
				seen[inst.def] = true
				queue = append(queue, inst.Definition())
			}
		}
	}
	return queue
}

// FormatCycles formats cycles one per line
func FormatCycles(cycles []Cycle) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s", i+1, cycle))
	}
	return b.String()
}
