package index

import (
	"cmp"
	"slices"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/harvesthub/catalog-engine/internal/tokenizer"
)

// PrefixIndex maps lower-cased keys to the items indexed under them.
// Every key is reachable through each of its prefixes, so a lookup for "comb"
// returns the items stored under "combine", "combination" and so on.
type PrefixIndex struct {
	Mu   sync.RWMutex
	trie *patricia.Trie
	keys int
}

// NewPrefixIndex creates an empty index.
func NewPrefixIndex() *PrefixIndex {
	return &PrefixIndex{trie: patricia.NewTrie()}
}

// Insert stores posting under key. Keys are normalized to lower case; an empty
// key is ignored. Inserting the same item twice under one key is a no-op.
func (pi *PrefixIndex) Insert(key string, posting Posting) {
	key = tokenizer.NormalizeKey(key)
	if key == "" {
		return
	}

	pi.Mu.Lock()
	defer pi.Mu.Unlock()

	prefix := patricia.Prefix(key)
	existing := pi.trie.Get(prefix)
	if existing == nil {
		pi.trie.Insert(prefix, PostingList{posting})
		pi.keys++
		return
	}

	list := existing.(PostingList)
	if list.contains(posting.ItemID) {
		return
	}
	pi.trie.Set(prefix, append(list, posting))
}

// Delete removes key and every posting stored under it.
// It returns false when the key was not present.
func (pi *PrefixIndex) Delete(key string) bool {
	key = tokenizer.NormalizeKey(key)

	pi.Mu.Lock()
	defer pi.Mu.Unlock()

	if pi.trie.Delete(patricia.Prefix(key)) {
		pi.keys--
		return true
	}
	return false
}

// QueryPrefix returns up to limit distinct items whose keys start with prefix,
// ordered by the position they were indexed at. A limit <= 0 means no limit.
// An empty prefix matches the whole index; an absent prefix yields an empty slice.
func (pi *PrefixIndex) QueryPrefix(prefix string, limit int) []Posting {
	prefix = tokenizer.NormalizeKey(prefix)

	pi.Mu.RLock()
	defer pi.Mu.RUnlock()

	seen := make(map[string]int)
	results := make([]Posting, 0)
	collect := func(_ patricia.Prefix, item patricia.Item) error {
		for _, p := range item.(PostingList) {
			if idx, ok := seen[p.ItemID]; ok {
				if p.Ordinal < results[idx].Ordinal {
					results[idx].Ordinal = p.Ordinal
				}
				continue
			}
			seen[p.ItemID] = len(results)
			results = append(results, p)
		}
		return nil
	}

	if prefix == "" {
		_ = pi.trie.Visit(collect)
	} else {
		_ = pi.trie.VisitSubtree(patricia.Prefix(prefix), collect)
	}

	slices.SortFunc(results, func(a, b Posting) int {
		if c := cmp.Compare(a.Ordinal, b.Ordinal); c != 0 {
			return c
		}
		return cmp.Compare(a.ItemID, b.ItemID)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Contains reports whether key itself (not just a prefix of it) is indexed.
func (pi *PrefixIndex) Contains(key string) bool {
	pi.Mu.RLock()
	defer pi.Mu.RUnlock()
	return pi.trie.Get(patricia.Prefix(tokenizer.NormalizeKey(key))) != nil
}

// KeyCount returns the number of distinct keys stored.
func (pi *PrefixIndex) KeyCount() int {
	pi.Mu.RLock()
	defer pi.Mu.RUnlock()
	return pi.keys
}
