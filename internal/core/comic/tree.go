package comic

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Episodes maps episode name to its ordered page URLs, in insertion order.
type Episodes = orderedmap.OrderedMap[string, []string]

// Tree maps comic name to its episodes, in insertion order. JSON objects
// decode with their key order preserved.
type Tree = orderedmap.OrderedMap[string, *Episodes]

func NewTree() *Tree { return orderedmap.New[string, *Episodes]() }

func NewEpisodes() *Episodes { return orderedmap.New[string, []string]() }

// ParseTree decodes {"comic": {"episode": ["url", ...]}}.
func ParseTree(data []byte) (*Tree, error) {
	tree := NewTree()
	if err := json.Unmarshal(data, tree); err != nil {
		return nil, fmt.Errorf("parse comics: %w", err)
	}
	return tree, nil
}

// CountPages returns the number of URLs across every episode.
func CountPages(tree *Tree) int {
	n := 0
	for c := tree.Oldest(); c != nil; c = c.Next() {
		if c.Value == nil {
			continue
		}
		for e := c.Value.Oldest(); e != nil; e = e.Next() {
			n += len(e.Value)
		}
	}
	return n
}
