// Package mcp provides the driftscan MCP server, registering the plan and
// inspect tools and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/driftscan"
	"github.com/deixis/driftscan/internal/config"
	"github.com/deixis/driftscan/internal/report"
	"github.com/deixis/driftscan/internal/runner"
	"github.com/deixis/driftscan/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers. The engine is
// replaced, never mutated, when a session reports its roots, so a running
// batch keeps the engine it started with.
type handler struct {
	mu     sync.RWMutex
	engine *workflow.Engine
	store  report.Store
}

func (h *handler) currentEngine() *workflow.Engine {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.engine
}

func (h *handler) logger() *log.Logger {
	if l := h.currentEngine().Logger; l != nil {
		return l
	}
	return log.Default()
}

// NewServer creates an MCP server with all driftscan tools registered.
func NewServer(engine *workflow.Engine, store report.Store) *mcp.Server {
	h := &handler{engine: engine, store: store}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateRootFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "driftscan", Version: driftscan.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "drift_plan",
		Description: `Run terragrunt plan in every working directory under a root and report drift.

Directories containing a .hcl file are planned in parallel up to max_concurrency at a time.
Each unit reports drift with its change count, no drift, or an error. Results are stored
for drill-down via drift_inspect.`,
	}, h.planHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "drift_inspect",
		Description: `Show the full result of one unit from a drift_plan run.

Use the run_id and a unit path from the drift_plan output (relative to the run root or absolute).
A parent directory returns every unit below it. Returns status, change count, plan file, error, and the captured stdout and stderr.`,
	}, h.inspectHandler)

	return s
}

// updateRootFromRoots queries the client for MCP roots and points the
// engine at the first file root, reloading its configuration.
// This is called during session initialization, before any tool calls.
func (h *handler) updateRootFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	if err := h.setRoot(u.Path); err != nil {
		h.logger().Printf("ignoring client root %s: %v", u.Path, err)
	}
}

// setRoot swaps in an engine rooted at root, configured from its .driftscan.
func (h *handler) setRoot(root string) error {
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	e := *h.engine
	if r, ok := e.Runner.(*runner.Runner); ok {
		r = r.WithRoot(root)
		r.Timeout = cfg.Timeout()
		r.MaxOutput = cfg.MaxOutputBytes()
		e.Runner = r
	}
	e.Config = cfg
	e.Root = root
	h.engine = &e
	return nil
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
