package sched

import (
	"fmt"

	"github.com/m1gwings/treedrawer/tree"
)

// Explain renders the current schedule as a tree: one node per system in
// execution order, one leaf per declared access. Useful for eyeballing why
// a pass touches what it touches.
func (s *Scheduler) Explain() string {
	root := tree.NewTree(tree.NodeString("Scheduler"))

	for i, sys := range s.systems {
		root.AddChild(tree.NodeString(fmt.Sprintf("%d %s", i, sys.Name())))
		node, err := root.Child(i)
		if err != nil {
			continue
		}

		for _, d := range sys.accesses {
			node.AddChild(tree.NodeString(d.String()))
		}
	}

	return root.String()
}
