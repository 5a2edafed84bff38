package main

import (
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestActiveCallRegistry_OneCallPerGuild(t *testing.T) {
	b := &bot{byGuild: make(map[string]*activeCall)}

	b.mu.Lock()
	_, exists := b.byGuild["guild-1"]
	b.mu.Unlock()
	assert.False(t, exists)

	b.mu.Lock()
	b.byGuild["guild-1"] = &activeCall{callID: "call-1"}
	_, exists = b.byGuild["guild-1"]
	b.mu.Unlock()
	assert.True(t, exists, "second announce for the same guild should see the existing call")
}

func TestCommandParsing(t *testing.T) {
	cases := []struct {
		content string
		isStart bool
		isStop  bool
	}{
		{"!record", true, false},
		{"!stoprecording", false, true},
		{"hello there", false, false},
		{"  !record  ", true, false}, // surrounding whitespace is trimmed, as in handleMessage
	}
	for _, c := range cases {
		content := strings.TrimSpace(c.content)
		assert.Equal(t, c.isStart, content == "!record")
		assert.Equal(t, c.isStop, content == "!stoprecording")
	}
}

var _ = discordgo.MessageCreate{}
