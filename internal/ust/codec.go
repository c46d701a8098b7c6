package ust

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Decode reconstructs a node tree from its JSON form, resolving every
// variant through the registry and restoring parent pointers.
func Decode(data []byte) (Node, error) {
	n, err := decodeNode(data)
	if err != nil {
		return nil, err
	}
	Relink(n)
	return n, nil
}

// DecodeRoot decodes data and requires the top node to be a Root.
func DecodeRoot(data []byte) (*Root, error) {
	n, err := Decode(data)
	if err != nil {
		return nil, err
	}
	root, ok := n.(*Root)
	if !ok {
		return nil, fmt.Errorf("decode root: top-level node is %s", n.Common().Kind())
	}
	return root, nil
}

func decodeNode(data []byte) (Node, error) {
	var head struct {
		Type KindTag `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode node header: %w", err)
	}
	n, err := New(head.Type.Name)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Type.Name, err)
	}
	// The tag is owned by the constructor, not the payload.
	k, _ := KindByName(head.Type.Name)
	n.Common().Type = k.Tag()
	return n, nil
}

// Equal reports whether two trees serialize identically. Parent pointers
// are not part of the comparison.
func Equal(a, b Node) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
