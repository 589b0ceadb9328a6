// Package query caches backend reads under ordered keys and lets writes declare
// which cached reads they make stale.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Key identifies a cached read. The first element is a stable string tag; the
// remaining elements are the parameters that distinguish the read.
type Key []any

// NewKey builds a key from a tag and its parameters.
func NewKey(tag string, params ...any) Key {
	return append(Key{tag}, params...)
}

// Tag returns the leading tag, or an empty string for an empty key.
func (k Key) Tag() string {
	if len(k) == 0 {
		return ""
	}
	tag, _ := k[0].(string)
	return tag
}

// String returns the canonical JSON encoding. Equal keys encode identically.
func (k Key) String() string {
	data, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprintf("%v", []any(k))
	}
	return string(data)
}

// Equal reports whether both keys name the same cached entry.
func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// HasPrefix reports whether prefix matches the leading elements of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		a, errA := json.Marshal(k[i])
		b, errB := json.Marshal(prefix[i])
		if errA != nil || errB != nil || !bytes.Equal(a, b) {
			return false
		}
	}
	return true
}

const (
	storagePrefix = "query:"
	scopeSep      = "\x1f"
)

// storageID encodes key and scope into a store identifier of the form
// query:<tag>:<json key><US><scope>. JSON never emits a raw unit separator, so the
// scope can be split off unambiguously.
func storageID(key Key, scope string) string {
	return storagePrefix + key.Tag() + ":" + key.String() + scopeSep + scope
}

// matchesPrefix reports whether the stored id belongs to a key starting with prefix.
func matchesPrefix(id string, prefix Key) bool {
	if len(prefix) == 0 {
		return strings.HasPrefix(id, storagePrefix)
	}
	raw, ok := strings.CutPrefix(id, storagePrefix+prefix.Tag()+":")
	if !ok {
		return false
	}
	if i := strings.LastIndex(raw, scopeSep); i >= 0 {
		raw = raw[:i]
	}
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return false
	}
	if len(prefix) > len(elems) {
		return false
	}
	for i := range prefix {
		want, err := json.Marshal(prefix[i])
		if err != nil || !bytes.Equal(elems[i], want) {
			return false
		}
	}
	return true
}

// scanPattern returns a Redis glob narrowing a scan to the tag of prefix. Callers
// still confirm each candidate with matchesPrefix.
func scanPattern(prefix Key) string {
	tag := prefix.Tag()
	if tag == "" || strings.ContainsAny(tag, "*?[]\\") {
		return storagePrefix + "*"
	}
	return storagePrefix + tag + ":*"
}
