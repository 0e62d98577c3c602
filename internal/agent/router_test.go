package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tool
	}{
		{"structured", "please update customer account", ToolStructured},
		{"groups", "what's in the telegram group", ToolGroups},
		{"search", "explain the quarterly report", ToolSearch},
		{"case insensitive", "CREATE a new record", ToolStructured},
		{"substring", "chatting about nothing", ToolGroups},
		{"mixed resolves to first category", "delete the telegram group", ToolStructured},
		{"empty", "", ToolSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(tt.text).Tool)
		})
	}
}

func TestRoute_Params(t *testing.T) {
	d := Route("please update customer account")
	assert.Equal(t, "customer", d.Keyword)
	assert.Equal(t, ActionQuery, d.Params["action"])
	assert.Equal(t, "please update customer account", d.Params["text"])

	d = Route("list my groups")
	assert.Equal(t, CommandList, d.Params["command"])

	d = Route("explain the quarterly report")
	assert.Empty(t, d.Keyword)
	assert.Equal(t, "explain the quarterly report", d.Params["query"])
	assert.Equal(t, SearchK, d.Params["k"])
}
