package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePGNList(t *testing.T) {
	got, err := parsePGNList("129025,65280,126996")
	assert.NoError(t, err)
	assert.Equal(t, []uint32{129025, 65280, 126996}, got)
}

func TestParsePGNList_Invalid(t *testing.T) {
	_, err := parsePGNList("129025,not-a-number")
	assert.Error(t, err)
}

func TestContainsPGN(t *testing.T) {
	list := []uint32{129025, 65280}
	assert.True(t, containsPGN(list, 65280))
	assert.False(t, containsPGN(list, 999))
}

func TestNodesBySrc_Sort(t *testing.T) {
	// exercises the sort.Interface adapter used by the !nodes STDIN command
	nodes := nodesBySrc{
		{Source: 5, NAME: 2},
		{Source: 1, NAME: 1},
	}
	assert.Equal(t, 2, nodes.Len())
	assert.True(t, nodes.Less(1, 0))
}
