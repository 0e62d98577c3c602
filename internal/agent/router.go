package agent

import "strings"

// Tool names a handler the router can dispatch to.
type Tool string

const (
	ToolStructured Tool = "structured"
	ToolGroups     Tool = "groups"
	ToolSearch     Tool = "search"
)

// category is a keyword set checked in order; the first category with a
// matching keyword wins, so text mentioning both a customer and a group is
// handled as structured.
type category struct {
	tool     Tool
	keywords []string
}

var categories = []category{
	{tool: ToolStructured, keywords: []string{"customer", "account", "update", "delete", "create"}},
	{tool: ToolGroups, keywords: []string{"group", "telegram", "chat"}},
}

// Decision is the outcome of routing a text.
type Decision struct {
	Tool    Tool           `json:"tool"`
	Keyword string         `json:"keyword,omitempty"`
	Params  map[string]any `json:"params"`
}

// Route classifies text by case-insensitive keyword substrings. Text that
// matches no category goes to search.
func Route(text string) Decision {
	lower := strings.ToLower(text)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return Decision{Tool: c.tool, Keyword: kw, Params: defaultParams(c.tool, text)}
			}
		}
	}
	return Decision{Tool: ToolSearch, Params: defaultParams(ToolSearch, text)}
}

func defaultParams(tool Tool, text string) map[string]any {
	switch tool {
	case ToolStructured:
		return map[string]any{"action": ActionQuery, "text": text}
	case ToolGroups:
		return map[string]any{"command": CommandList}
	default:
		return map[string]any{"query": text, "k": SearchK}
	}
}
