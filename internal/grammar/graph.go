package grammar

import (
	"github.com/dekarrin/monmsg/internal/util"
)

// Graph is the directed graph of rule references in a Table. Each rule ID maps
// to the IDs it references, in ascending order.
type Graph map[int][]int

// Graph builds the reference graph of the table.
func (t Table) Graph() Graph {
	g := make(Graph, len(t.rules))
	for id, r := range t.rules {
		g[id] = r.References()
	}
	return g
}

// Reachable returns every rule ID that can be reached from the given one by
// following references, including the starting ID itself.
func (g Graph) Reachable(from int) util.KeySet[int] {
	seen := util.NewKeySet[int]()
	stack := []int{from}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen.Has(cur) {
			continue
		}
		seen.Add(cur)

		for _, next := range g[cur] {
			if !seen.Has(next) {
				stack = append(stack, next)
			}
		}
	}

	return seen
}

// FindCycle looks for a cycle reachable from the given rule. If one is found,
// the returned path leads from the starting rule to the first rule found to
// be revisited, ending with that rule a second time; for instance, [0 8 42 8].
// If no cycle is reachable, nil is returned.
func (g Graph) FindCycle(from int) []int {
	const (
		unvisited = iota
		onPath
		done
	)

	state := map[int]int{}
	var path []int
	var found []int

	var visit func(id int) bool
	visit = func(id int) bool {
		state[id] = onPath
		path = append(path, id)

		for _, next := range g[id] {
			switch state[next] {
			case onPath:
				found = make([]int, len(path)+1)
				copy(found, path)
				found[len(path)] = next
				return true
			case unvisited:
				if visit(next) {
					return true
				}
			}
		}

		path = path[:len(path)-1]
		state[id] = done
		return false
	}

	visit(from)
	return found
}

// Cyclic returns the ID of every rule that lies on at least one cycle; that
// is, every rule that can reach itself again by following one or more
// references.
func (g Graph) Cyclic() util.KeySet[int] {
	cyclic := util.NewKeySet[int]()

	for id, refs := range g {
		for _, next := range refs {
			if g.Reachable(next).Has(id) {
				cyclic.Add(id)
				break
			}
		}
	}

	return cyclic
}

// MinLengths gives, for every rule in the table, the length of the shortest
// string it can derive. A rule that cannot derive any finite string (such as
// `8: 42 8`) is absent from the returned map.
func (t Table) MinLengths() map[int]int {
	mins := map[int]int{}

	for changed := true; changed; {
		changed = false

		for id, r := range t.rules {
			best, known := mins[id]

			for _, alt := range r.Alternatives {
				altLen, ok := minLength(alt, mins)
				if ok && (!known || altLen < best) {
					best = altLen
					known = true
					mins[id] = best
					changed = true
				}
			}
		}
	}

	return mins
}

// MinLength gives the length of the shortest string the elements can derive
// given the minimum lengths of each rule, as returned by Table.MinLengths. If
// any referenced rule has no known minimum, ok will be false.
func MinLength(elems []Element, mins map[int]int) (length int, ok bool) {
	return minLength(elems, mins)
}

func minLength(elems []Element, mins map[int]int) (int, bool) {
	var total int

	for _, elem := range elems {
		switch e := elem.(type) {
		case Literal:
			total += len(e)
		case Reference:
			refLen, ok := mins[int(e)]
			if !ok {
				return 0, false
			}
			total += refLen
		}
	}

	return total, true
}
