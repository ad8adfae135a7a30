package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectorMatchesEverythingByDefault(t *testing.T) {
	assert.True(t, All.Matches(1, "anything"))
	assert.True(t, All.Matches(99, ""))
}

func TestSelectorByIndex(t *testing.T) {
	sel := Selector{Index: 2}
	assert.False(t, sel.Matches(1, "first"))
	assert.True(t, sel.Matches(2, "second"))
	assert.False(t, sel.Matches(3, "second")) // index wins over name
}

func TestSelectorBySubstring(t *testing.T) {
	sel := Selector{Name: "login"}
	assert.True(t, sel.Matches(1, "user login succeeds"))
	assert.True(t, sel.Matches(2, "Login prompt"))
	assert.False(t, sel.Matches(3, "file creation"))
}

func TestSelectorFuzzyFallback(t *testing.T) {
	sel := Selector{Name: "usrlogin"}
	assert.True(t, sel.Matches(1, "user login succeeds"))
}
