package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	assert.Equal(t, "alice", Text("  alice \n"))
	assert.Equal(t, "ab", Text("a\x00b"))
	assert.Equal(t, "café", Text("café"))
	assert.Equal(t, "", Text(" \t "))
}

func TestLogString(t *testing.T) {
	assert.Equal(t, "GET /x fake entry", LogString("GET /x\r\nfake entry"))
	assert.Equal(t, "plain", LogString("plain"))
}
