package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/v2x-tools/scenedex/api"
	"github.com/v2x-tools/scenedex/internal/dirfs"
	"github.com/v2x-tools/scenedex/internal/family"
	"github.com/v2x-tools/scenedex/internal/session"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var readOnlyAnnotation = mcp.ToolAnnotation{
	ReadOnlyHint:    mcp.ToBoolPtr(true),
	DestructiveHint: mcp.ToBoolPtr(false),
	IdempotentHint:  mcp.ToBoolPtr(true),
	OpenWorldHint:   mcp.ToBoolPtr(false),
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the catalog as MCP tools over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		abs, err := filepath.Abs(rootDir)
		if err != nil {
			return fmt.Errorf("resolve root: %w", err)
		}

		sess := session.New(nil)
		store := family.NewStore(sess, log)
		if err := store.Open(dirfs.FromOS(abs)); err != nil {
			return fmt.Errorf("open root %s: %w", abs, err)
		}

		s := mcpserver.NewMCPServer("scenedex", "1.0.0", mcpserver.WithToolCapabilities(false))
		registerTools(s, store)
		return mcpserver.ServeStdio(s)
	},
}

func registerTools(s *mcpserver.MCPServer, store *family.Store) {
	s.AddTool(mcp.NewTool("list_datasets",
		mcp.WithDescription("List the registered datasets with their family and label."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(map[string]any{"datasets": store.Datasets()})
	})

	s.AddTool(mcp.NewTool("list_groups",
		mcp.WithDescription("List a dataset's groups (sensors or intersections) with scene counts."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id from list_datasets")),
		mcp.WithString("split", mcp.Description("Split: train, val or all")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cat, err := store.Catalog(req.GetString("dataset", ""))
		if err != nil {
			return toolError(err)
		}
		groups, err := cat.ListGroups(ctx, req.GetString("split", "all"))
		if err != nil {
			return toolError(err)
		}
		return jsonResult(map[string]any{"groups": groups})
	})

	s.AddTool(mcp.NewTool("list_scenes",
		mcp.WithDescription("Page through a dataset's scenes, optionally filtered to one group."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
		mcp.WithString("split", mcp.Description("Split: train, val or all")),
		mcp.WithString("group", mcp.Description("Group id to filter by")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithNumber("limit", mcp.Description("Page size, default 20")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cat, err := store.Catalog(req.GetString("dataset", ""))
		if err != nil {
			return toolError(err)
		}
		page, err := cat.ListScenes(ctx,
			req.GetString("split", "all"),
			req.GetString("group", ""),
			req.GetInt("offset", 0),
			req.GetInt("limit", 20))
		if err != nil {
			return toolError(err)
		}
		return jsonResult(page)
	})

	s.AddTool(mcp.NewTool("locate_scene",
		mcp.WithDescription("Report a scene's position globally and within its group."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene id")),
		mcp.WithString("split", mcp.Description("Split: train, val or all")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cat, err := store.Catalog(req.GetString("dataset", ""))
		if err != nil {
			return toolError(err)
		}
		loc, err := cat.LocateScene(ctx, req.GetString("split", "all"), req.GetString("scene_id", ""))
		if err != nil {
			return toolError(err)
		}
		return jsonResult(loc)
	})

	s.AddTool(mcp.NewTool("load_bundle",
		mcp.WithDescription("Materialize one scene's playable frames, timestamps and extent."),
		mcp.WithToolAnnotation(readOnlyAnnotation),
		mcp.WithString("dataset", mcp.Required(), mcp.Description("Dataset id")),
		mcp.WithString("scene_id", mcp.Required(), mcp.Description("Scene id")),
		mcp.WithString("split", mcp.Description("Split: train, val or all")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cat, err := store.Catalog(req.GetString("dataset", ""))
		if err != nil {
			return toolError(err)
		}
		b, err := cat.LoadBundle(ctx, req.GetString("split", "all"), req.GetString("scene_id", ""))
		if err != nil {
			return toolError(err)
		}
		return jsonResult(b)
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError keeps not-found results as tool-level errors so the client can
// render them, instead of failing the protocol call.
func toolError(err error) (*mcp.CallToolResult, error) {
	if api.IsNotFound(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}
