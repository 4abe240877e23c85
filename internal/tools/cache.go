package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/electives-mcp/internal/cache"
	"github.com/leonardcser/electives-mcp/internal/invalidation"
	"github.com/leonardcser/electives-mcp/internal/realtime"
)

// CacheInvalidateHandler returns the MCP tool handler for the "cache-invalidate" tool.
// A key removes one entry; a table removes every entry mapped to it, the same
// way a realtime change event would.
func CacheInvalidateHandler(store *cache.Store, listener *invalidation.Listener) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key := req.GetString("key", "")
		table := req.GetString("table", "")
		switch {
		case key != "" && table != "":
			return mcp.NewToolResultError("pass either key or table, not both"), nil
		case key != "":
			store.Invalidate(key)
			return mcp.NewToolResultText(fmt.Sprintf("Invalidated %s.", key)), nil
		case table != "":
			listener.Handle(realtime.Event{Table: table, Type: realtime.Update})
			return mcp.NewToolResultText(fmt.Sprintf("Invalidated entries of %s.", table)), nil
		default:
			return mcp.NewToolResultError("key or table is required"), nil
		}
	}
}
