package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyEqualityAndPrefix(t *testing.T) {
	a := NewKey("get-product", 5)
	b := NewKey("get-product", 5)
	c := NewKey("get-product", "5")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, "get-product", a.Tag())
	assert.Equal(t, `["get-product",5]`, a.String())

	assert.True(t, a.HasPrefix(NewKey("get-product")))
	assert.True(t, a.HasPrefix(a))
	assert.False(t, a.HasPrefix(NewKey("get-product", 6)))
	assert.False(t, NewKey("get-product").HasPrefix(a))
	assert.False(t, a.HasPrefix(NewKey("get-all-product")))
}

func TestStorageIDMatching(t *testing.T) {
	id := storageID(NewKey("search-order", "INV", "2024-01-01"), "dewi")

	assert.True(t, matchesPrefix(id, NewKey("search-order")))
	assert.True(t, matchesPrefix(id, NewKey("search-order", "INV")))
	assert.False(t, matchesPrefix(id, NewKey("search-order", "INX")))
	assert.False(t, matchesPrefix(id, NewKey("search")))
	assert.True(t, matchesPrefix(id, Key{}))
	assert.Equal(t, "query:search-order:*", scanPattern(NewKey("search-order", "INV")))
}
