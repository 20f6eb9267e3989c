package staking

import (
	"fmt"
	"iter"
)

// ErrRootReferred is returned when an edge would give the root a referrer.
var ErrRootReferred = fmt.Errorf("%w: root cannot have a referrer", ErrValidation)

func (a *arena) addEdge(parent, child string) error {
	if parent == child {
		return ErrSelfReferral
	}
	p, ok := a.index[parent]
	if !ok {
		return ErrUnknownReferrer
	}
	c, ok := a.index[child]
	if !ok {
		return ErrNotRegistered
	}
	if c == 0 {
		return ErrRootReferred
	}
	if a.records[c].parent != noParent {
		return ErrAlreadyReferred
	}
	a.records[c].parent = p
	a.records[p].children = append(a.records[p].children, c)
	return nil
}

// directChildren returns node's referrals in registration order.
func (a *arena) directChildren(node string) []string {
	idx, ok := a.index[node]
	if !ok {
		return nil
	}
	children := a.records[idx].children
	out := make([]string, len(children))
	for i, c := range children {
		out[i] = a.records[c].id
	}
	return out
}

// ancestorWalk yields start's referrer as hop 1, then each further referrer,
// stopping after maxHops or at the first missing parent.
func (a *arena) ancestorWalk(start string, maxHops int) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		idx, ok := a.index[start]
		if !ok {
			return
		}
		idx = a.records[idx].parent
		for hop := 1; hop <= maxHops && idx != noParent; hop++ {
			if !yield(a.records[idx].id, hop) {
				return
			}
			idx = a.records[idx].parent
		}
	}
}

// levelOrder groups start's descendants by referral distance. Layer 0 holds
// the direct referrals; the walk ends at the first empty layer.
func (a *arena) levelOrder(start string) ([][]string, error) {
	idx, ok := a.index[start]
	if !ok {
		return nil, ErrUnknownUser
	}

	layers := make([][]string, 0)
	frontier := a.records[idx].children
	visited := 0
	for len(frontier) > 0 && visited < len(a.records) {
		layer := make([]string, 0, len(frontier))
		var next []int
		for _, c := range frontier {
			layer = append(layer, a.records[c].id)
			next = append(next, a.records[c].children...)
		}
		visited += len(frontier)
		layers = append(layers, layer)
		frontier = next
	}
	return layers, nil
}
