package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vibestudio/vibe-studio/src"
)

// studioApp holds the session the MCP tools operate on. One session per
// server process, same as the HTTP surface.
type studioApp struct {
	sess   *src.Session
	engine *src.PlanEngine
	orch   *src.Orchestrator
}

func main() {
	var (
		transport  = flag.String("transport", "stdio", "stdio|http")
		addr       = flag.String("addr", ":8090", "addr for http")
		configPath = flag.String("config", "config.yaml", "path to config file")
	)
	flag.Parse()

	ctx := context.Background()
	cfg, err := src.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	router, err := cfg.BuildRouter(ctx)
	if err != nil {
		log.Fatal(err)
	}

	app := &studioApp{
		sess:   src.NewSession(),
		engine: src.NewPlanEngine(router),
		orch:   src.NewOrchestrator(router),
	}

	s := server.NewMCPServer(
		"vibe-studio-mcp",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	uploadTool := mcp.NewTool(
		"studio.upload_files",
		mcp.WithDescription("Replace the working file set with the given files. Discards any previous upload and plan."),
		mcp.WithString("files_json", mcp.Required(), mcp.Description("JSON array of {path, content} objects")),
	)
	s.AddTool(uploadTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filesJSON, err := req.RequireString("files_json")
		if err != nil {
			return mcp.NewToolResultError("missing files_json"), nil
		}
		var files []src.UploadedFile
		if err := json.Unmarshal([]byte(filesJSON), &files); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid files_json: %v", err)), nil
		}
		app.sess.Corpus.Upload(files)
		app.sess.ClearPlan()
		res, _ := mcp.NewToolResultJSON(map[string]any{
			"status": "uploaded",
			"count":  app.sess.Corpus.Len(),
		})
		return res, nil
	})

	planTool := mcp.NewTool(
		"studio.generate_plan",
		mcp.WithDescription("Generate a modification plan for the uploaded files from a natural-language task."),
		mcp.WithString("task", mcp.Required(), mcp.Description("What to change, in natural language")),
	)
	s.AddTool(planTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := req.RequireString("task")
		if err != nil {
			return mcp.NewToolResultError("missing task"), nil
		}
		plan, err := app.engine.GeneratePlan(ctx, task, app.sess.Corpus.Snapshot())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("plan generation failed: %v", err)), nil
		}
		app.sess.SetPlan(plan)
		res, _ := mcp.NewToolResultJSON(map[string]any{"plan": plan})
		return res, nil
	})

	suggestTool := mcp.NewTool(
		"studio.suggest",
		mcp.WithDescription("Suggest improvements for the uploaded files. Descriptions only, no code."),
		mcp.WithString("task", mcp.Required(), mcp.Description("What to improve, in natural language")),
	)
	s.AddTool(suggestTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := req.RequireString("task")
		if err != nil {
			return mcp.NewToolResultError("missing task"), nil
		}
		suggestions, err := app.engine.SuggestImprovements(ctx, task, app.sess.Corpus.Snapshot())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("suggestions failed: %v", err)), nil
		}
		res, _ := mcp.NewToolResultJSON(map[string]any{"suggestions": suggestions})
		return res, nil
	})

	applyTool := mcp.NewTool(
		"studio.apply_change",
		mcp.WithDescription("Review and apply one proposed change from the current plan, identified by its key."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Change key from the generated plan")),
		mcp.WithString("content", mcp.Description("Optional edited content overriding the proposed one")),
	)
	s.AddTool(applyTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcp.NewToolResultError("missing key"), nil
		}
		var edited *string
		if c := getStringParam(req, "content"); c != "" {
			edited = &c
		}
		review, err := app.orch.Apply(ctx, app.sess, key, edited)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("apply failed: %v", err)), nil
		}
		res, _ := mcp.NewToolResultJSON(map[string]any{
			"status":       "applied",
			"review":       review,
			"appliedFiles": app.sess.AppliedFiles(),
		})
		return res, nil
	})

	filesTool := mcp.NewTool(
		"studio.list_files",
		mcp.WithDescription("List the uploaded files with their effective (possibly applied) content sizes."),
	)
	s.AddTool(filesTool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type entry struct {
			Path     string `json:"path"`
			Language string `json:"language"`
			Size     int    `json:"size"`
			Applied  bool   `json:"applied"`
		}
		files := []entry{}
		for _, f := range app.sess.Corpus.Snapshot() {
			files = append(files, entry{
				Path:     f.Path,
				Language: f.Language,
				Size:     len(app.sess.Corpus.EffectiveContent(f.Path)),
				Applied:  app.sess.IsFileApplied(f.Path),
			})
		}
		res, _ := mcp.NewToolResultJSON(map[string]any{"files": files})
		return res, nil
	})

	switch *transport {
	case "stdio":
		if err := server.ServeStdio(s); err != nil {
			log.Fatal(err)
		}
	case "http":
		h := server.NewStreamableHTTPServer(s)
		if err := h.Start(*addr); err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatal("unknown transport: ", *transport)
	}
}

func getStringParam(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]interface{})
	if !ok {
		return ""
	}
	val, ok := args[key]
	if !ok {
		return ""
	}
	str, _ := val.(string)
	return str
}
