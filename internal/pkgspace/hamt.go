package pkgspace

import "hash/fnv"

// persistentMap is an immutable hash-array-mapped trie keyed by
// string. Writers build a new root and swap it in under a mutex;
// readers walk whatever root they loaded atomically and never block,
// which is the "lock-free reads, serialized writes" discipline
// requires for package namespaces and persistent slots.
type persistentMap struct {
	root  *hamtNode
	count int
}

const (
	hamtBits = 5
	hamtSize = 1 << hamtBits
	hamtMask = hamtSize - 1
)

type hamtNode struct {
	bitmap   uint32
	children []interface{} // *hamtEntry, *hamtNode, or []*hamtEntry (collision bucket)
}

type hamtEntry struct {
	hash  uint32
	key   string
	value interface{}
}

func emptyMap() *persistentMap { return &persistentMap{} }

func (m *persistentMap) Len() int { return m.count }

func (m *persistentMap) Get(key string) (interface{}, bool) {
	if m.root == nil {
		return nil, false
	}
	return m.root.get(hashKey(key), key, 0)
}

func (m *persistentMap) Put(key string, val interface{}) *persistentMap {
	h := hashKey(key)
	var newRoot *hamtNode
	var added bool
	if m.root == nil {
		newRoot, added = (&hamtNode{}).put(h, key, val, 0)
	} else {
		newRoot, added = m.root.put(h, key, val, 0)
	}
	n := m.count
	if added {
		n++
	}
	return &persistentMap{root: newRoot, count: n}
}

func (m *persistentMap) Range(f func(key string, val interface{}) bool) {
	if m.root != nil {
		m.root.iterate(f)
	}
}

func (n *hamtNode) get(h uint32, key string, shift uint) (interface{}, bool) {
	idx := (h >> shift) & hamtMask
	bit := uint32(1) << idx
	if n.bitmap&bit == 0 {
		return nil, false
	}
	pos := popcount(n.bitmap & (bit - 1))
	switch v := n.children[pos].(type) {
	case *hamtEntry:
		if v.hash == h && v.key == key {
			return v.value, true
		}
		return nil, false
	case *hamtNode:
		return v.get(h, key, shift+hamtBits)
	case []*hamtEntry:
		for _, e := range v {
			if e.hash == h && e.key == key {
				return e.value, true
			}
		}
	}
	return nil, false
}

func (n *hamtNode) put(h uint32, key string, val interface{}, shift uint) (*hamtNode, bool) {
	idx := (h >> shift) & hamtMask
	bit := uint32(1) << idx

	clone := &hamtNode{bitmap: n.bitmap, children: append([]interface{}(nil), n.children...)}

	if clone.bitmap&bit == 0 {
		clone.bitmap |= bit
		pos := popcount(clone.bitmap & (bit - 1))
		entry := &hamtEntry{hash: h, key: key, value: val}
		clone.children = append(clone.children, nil)
		copy(clone.children[pos+1:], clone.children[pos:])
		clone.children[pos] = entry
		return clone, true
	}

	pos := popcount(clone.bitmap & (bit - 1))
	switch v := clone.children[pos].(type) {
	case *hamtEntry:
		if v.hash == h && v.key == key {
			clone.children[pos] = &hamtEntry{hash: h, key: key, value: val}
			return clone, false
		}
		if shift >= 30 {
			clone.children[pos] = []*hamtEntry{v, {hash: h, key: key, value: val}}
			return clone, true
		}
		child := &hamtNode{}
		child, _ = child.put(v.hash, v.key, v.value, shift+hamtBits)
		child, added := child.put(h, key, val, shift+hamtBits)
		clone.children[pos] = child
		return clone, added
	case *hamtNode:
		newChild, added := v.put(h, key, val, shift+hamtBits)
		clone.children[pos] = newChild
		return clone, added
	case []*hamtEntry:
		for i, e := range v {
			if e.hash == h && e.key == key {
				bucket := append([]*hamtEntry(nil), v...)
				bucket[i] = &hamtEntry{hash: h, key: key, value: val}
				clone.children[pos] = bucket
				return clone, false
			}
		}
		bucket := append(append([]*hamtEntry(nil), v...), &hamtEntry{hash: h, key: key, value: val})
		clone.children[pos] = bucket
		return clone, true
	}
	return clone, false
}

func (n *hamtNode) iterate(f func(string, interface{}) bool) bool {
	for _, item := range n.children {
		switch v := item.(type) {
		case *hamtEntry:
			if !f(v.key, v.value) {
				return false
			}
		case *hamtNode:
			if !v.iterate(f) {
				return false
			}
		case []*hamtEntry:
			for _, e := range v {
				if !f(e.key, e.value) {
					return false
				}
			}
		}
	}
	return true
}

func hashKey(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

func popcount(x uint32) int {
	x = x - ((x >> 1) & 0x55555555)
	x = (x & 0x33333333) + ((x >> 2) & 0x33333333)
	x = (x + (x >> 4)) & 0x0f0f0f0f
	x = x + (x >> 8)
	x = x + (x >> 16)
	return int(x & 0x3f)
}
