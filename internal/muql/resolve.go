package muql

import (
	"strings"

	"github.com/0ximu/mu/internal/graph"
	"github.com/0ximu/mu/internal/graphstore"
)

// resolveNodeRef implements the <node-ref> resolution order: a full
// stable id first, then an exact name match (first hit), then a
// suffix match (leading "%").
func resolveNodeRef(store *graphstore.Store, ref string) (*graph.Node, error) {
	if n, err := store.GetNode(ref); err != nil {
		return nil, err
	} else if n != nil {
		return n, nil
	}

	byName, err := store.GetNodesByName(ref)
	if err != nil {
		return nil, err
	}
	if len(byName) > 0 {
		return &byName[0], nil
	}

	suffix := strings.TrimPrefix(ref, "%")
	all, err := store.GetNodesByName(suffix)
	if err == nil && len(all) > 0 {
		return &all[0], nil
	}

	matches, err := suffixMatches(store, suffix)
	if err != nil {
		return nil, err
	}
	if len(matches) > 0 {
		return &matches[0], nil
	}

	return nil, &UnresolvedNode{Ref: ref}
}

// suffixMatches finds nodes whose name ends with suffix, by scanning
// every node. This is the fallback path used when neither the full id
// nor an exact name matched.
func suffixMatches(store *graphstore.Store, suffix string) ([]graph.Node, error) {
	all, err := store.AllNodes()
	if err != nil {
		return nil, err
	}
	var out []graph.Node
	for _, n := range all {
		if strings.HasSuffix(n.Name, suffix) {
			out = append(out, n)
		}
	}
	return out, nil
}
