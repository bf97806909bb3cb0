package badger

import (
	"encoding/binary"

	"github.com/poiesic/graphstore/core"
)

// Key prefixes for the three statement indexes. Each index key is the prefix
// followed by three 8-byte node IDs in index order and an 8-byte context ID
// (0 for no context). Every index stores the encoded quad as its value.
const (
	spocPrefix = "spoc:"
	poscPrefix = "posc:"
	ospcPrefix = "ospc:"
)

const idSize = 8

// index is one permutation of the statement roles.
type index struct {
	prefix string
	order  [3]core.Role
}

var (
	spoc = index{prefix: spocPrefix, order: [3]core.Role{core.RoleSubject, core.RolePredicate, core.RoleObject}}
	posc = index{prefix: poscPrefix, order: [3]core.Role{core.RolePredicate, core.RoleObject, core.RoleSubject}}
	ospc = index{prefix: ospcPrefix, order: [3]core.Role{core.RoleObject, core.RoleSubject, core.RolePredicate}}

	indexes = []index{spoc, posc, ospc}
)

// quadIDs holds the content IDs of a quad's slots. A zero ID marks an
// unbound slot.
type quadIDs struct {
	roles   [3]core.ID
	context core.ID
}

func idsOf(q core.Quad) quadIDs {
	var ids quadIDs
	for _, r := range []core.Role{core.RoleSubject, core.RolePredicate, core.RoleObject} {
		if n, ok := q.Term(r).Node(); ok {
			ids.roles[r] = core.IDFromNode(n)
		}
	}
	if n, ok := q.Context.Node(); ok {
		ids.context = core.IDFromNode(n)
	}
	return ids
}

// makeKey generates the full key of a stored quad in this index.
// Format: prefix:id1:id2:id3:context
func (ix index) makeKey(ids quadIDs) []byte {
	prefixBytes := []byte(ix.prefix)
	buf := make([]byte, len(prefixBytes)+4*idSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort groups by leading IDs
	for _, r := range ix.order {
		binary.BigEndian.PutUint64(buf[offset:], uint64(ids.roles[r]))
		offset += idSize
	}
	binary.BigEndian.PutUint64(buf[offset:], uint64(ids.context))
	return buf
}

// makePartialKey generates a scan prefix from the leading bound slots of a
// pattern. Format: prefix[:id1[:id2[:id3[:context]]]]
func (ix index) makePartialKey(q core.Quad) []byte {
	ids := idsOf(q)
	buf := []byte(ix.prefix)
	for _, r := range ix.order {
		if !q.Term(r).IsBound() {
			return buf
		}
		buf = binary.BigEndian.AppendUint64(buf, uint64(ids.roles[r]))
	}
	if q.Context.IsBound() {
		buf = binary.BigEndian.AppendUint64(buf, uint64(ids.context))
	}
	return buf
}

// leadingBound counts the bound pattern slots the index can seek on.
func (ix index) leadingBound(q core.Quad) int {
	n := 0
	for _, r := range ix.order {
		if !q.Term(r).IsBound() {
			break
		}
		n++
	}
	return n
}

// chooseIndex picks the index with the longest bound key prefix for a pattern.
func chooseIndex(q core.Quad) index {
	best, bestN := spoc, -1
	for _, ix := range indexes {
		if n := ix.leadingBound(q); n > bestN {
			best, bestN = ix, n
		}
	}
	return best
}
