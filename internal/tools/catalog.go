package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/leonardcser/electives-mcp/internal/catalog"
)

type handler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ListDegreesHandler returns the MCP tool handler for the "list-degrees" tool.
func ListDegreesHandler(cat *catalog.Catalog) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := cat.Degrees(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatList(res, func(d catalog.Degree) string {
			if d.Code != "" {
				return fmt.Sprintf("%s (%s) [id %d]", d.Name, d.Code, d.ID)
			}
			return fmt.Sprintf("%s [id %d]", d.Name, d.ID)
		})), nil
	}
}

// ListUniversitiesHandler returns the MCP tool handler for the "list-universities" tool.
func ListUniversitiesHandler(cat *catalog.Catalog) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := cat.Universities(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatList(res, func(u catalog.University) string {
			place := strings.Trim(u.City+", "+u.Country, ", ")
			if place != "" {
				return fmt.Sprintf("%s, %s [id %d]", u.Name, place, u.ID)
			}
			return fmt.Sprintf("%s [id %d]", u.Name, u.ID)
		})), nil
	}
}

// ListGroupsHandler returns the MCP tool handler for the "list-groups" tool.
func ListGroupsHandler(cat *catalog.Catalog) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := cat.Groups(ctx, req.GetInt("degree_id", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatList(res, func(g catalog.Group) string {
			return fmt.Sprintf("%s, year %d [id %d, degree %d]", g.Name, g.Year, g.ID, g.DegreeID)
		})), nil
	}
}

// ListCoursesHandler returns the MCP tool handler for the "list-courses" tool.
func ListCoursesHandler(cat *catalog.Catalog) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, err := req.RequireInt("group_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := cat.Courses(ctx, groupID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatCourses(res)), nil
	}
}

// ListExchangeProgramsHandler returns the MCP tool handler for the "list-exchange-programs" tool.
func ListExchangeProgramsHandler(cat *catalog.Catalog) handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		groupID, err := req.RequireInt("group_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := cat.ExchangePrograms(ctx, groupID)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatList(res, func(p catalog.ExchangeProgram) string {
			line := fmt.Sprintf("%s [id %d, %d universities]", p.Name, p.ID, len(p.UniversityIDs))
			if p.Deadline != "" {
				line += ", deadline " + p.Deadline
			}
			return line
		})), nil
	}
}

// formatList renders an ordered list, flagging results served past their TTL.
func formatList[T any](res catalog.Result[T], line func(T) string) string {
	if len(res.Items) == 0 {
		return "No results."
	}
	var sb strings.Builder
	if res.Stale {
		sb.WriteString("(cached data, backend unavailable)\n")
	}
	for i, item := range res.Items {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, line(item)))
		if i < len(res.Items)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatCourses(res catalog.Result[catalog.Course]) string {
	if len(res.Items) == 0 {
		return "No results."
	}
	var sb strings.Builder
	if res.Stale {
		sb.WriteString("(cached data, backend unavailable)\n\n")
	}
	for i, c := range res.Items {
		sb.WriteString("## ")
		sb.WriteString(c.Name)
		sb.WriteString("\n")
		meta := []string{fmt.Sprintf("id %d", c.ID)}
		if c.Instructor != "" {
			meta = append(meta, c.Instructor)
		}
		if c.Credits > 0 {
			meta = append(meta, fmt.Sprintf("%g credits", c.Credits))
		}
		if c.MaxStudents > 0 {
			meta = append(meta, fmt.Sprintf("max %d students", c.MaxStudents))
		}
		sb.WriteString(strings.Join(meta, " · "))
		if desc := c.Markdown(); desc != "" {
			sb.WriteString("\n\n")
			sb.WriteString(desc)
		}
		if i < len(res.Items)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}
