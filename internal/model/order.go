package model

import (
	"errors"
	"fmt"
)

var ErrNoRootNamespace = errors.New("no root namespace found")

// RootNamespaceFirst reorders elements so the root namespace comes first,
// which is where the graph decoder expects its entry point. Exactly one
// root namespace must exist.
func RootNamespaceFirst(elements []Element) ([]Element, error) {
	rootIdx := -1
	for i, el := range elements {
		if IsRootNamespace(el) {
			if rootIdx >= 0 {
				return nil, fmt.Errorf("multiple root namespaces: index %d and %d", rootIdx, i)
			}
			rootIdx = i
		}
	}
	if rootIdx < 0 {
		return nil, ErrNoRootNamespace
	}

	out := make([]Element, 0, len(elements))
	out = append(out, elements[rootIdx])
	out = append(out, elements[:rootIdx]...)
	out = append(out, elements[rootIdx+1:]...)
	return out, nil
}
