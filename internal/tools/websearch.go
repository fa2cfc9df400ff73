package tools

import (
	"context"

	"github.com/leofalp/aigo/providers/tool"
	"github.com/leofalp/aigo/providers/tool/tavily"
)

const defaultSearchResults = 5

// WebSearchInput is the search surface exposed to agents. It is deliberately
// narrower than the underlying API: query, result count, topic.
type WebSearchInput struct {
	Query      string `json:"query" jsonschema:"description=The search query,required"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"description=Number of results to return (default 5),minimum=1,maximum=20"`
	Topic      string `json:"topic,omitempty" jsonschema:"description=Search category,enum=general,enum=news,enum=finance"`
}

// NewWebSearchTool returns the web_search tool, a pass-through to the Tavily
// search API. It adds no retries or result interpretation of its own.
func NewWebSearchTool() *tool.Tool[WebSearchInput, tavily.SearchOutput] {
	return tool.NewTool[WebSearchInput, tavily.SearchOutput](
		"web_search",
		Search,
		tool.WithDescription("Search the web. Use topic=news for current events and topic=finance for market data; general otherwise. Returns titles, URLs and content snippets. Requires TAVILY_API_KEY."),
	)
}

// Search maps the narrowed input onto the Tavily provider and executes it.
func Search(ctx context.Context, in WebSearchInput) (tavily.SearchOutput, error) {
	return tavily.Search(ctx, normalizeSearchInput(in))
}

func normalizeSearchInput(in WebSearchInput) tavily.SearchInput {
	maxResults := in.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if maxResults > 20 {
		maxResults = 20
	}
	topic := in.Topic
	if topic == "" {
		topic = "general"
	}
	return tavily.SearchInput{
		Query:      in.Query,
		MaxResults: maxResults,
		Topic:      topic,
	}
}
