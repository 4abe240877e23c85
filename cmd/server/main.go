package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leonardcser/electives-mcp/internal/cache"
	"github.com/leonardcser/electives-mcp/internal/catalog"
	"github.com/leonardcser/electives-mcp/internal/config"
	"github.com/leonardcser/electives-mcp/internal/invalidation"
	"github.com/leonardcser/electives-mcp/internal/logger"
	"github.com/leonardcser/electives-mcp/internal/realtime"
	"github.com/leonardcser/electives-mcp/internal/remote"
	tools "github.com/leonardcser/electives-mcp/internal/tools"
)

const daemonBinary = "electives-cache"

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Close()

	logger.Infof("Starting electives MCP server")

	cfg, err := config.LoadServer()
	if err != nil {
		logger.Errorf("config: %v", err)
		panic(err)
	}

	// Connect to cache daemon; start it if needed, then connect.
	logger.Infof("Attempting to connect to cache daemon at %s", cfg.CacheSocket)
	kv, err := cache.Dial(cfg.CacheSocket, 200*time.Millisecond)
	if err != nil {
		logger.Warnf("Failed to connect to cache daemon: %v, attempting to start daemon", err)
		if startErr := startCacheDaemon(); startErr != nil {
			logger.Errorf("Failed to start cache daemon: %v", startErr)
		} else {
			logger.Infof("Cache daemon started successfully")
		}
		// wait for socket to appear
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			if kv, err = cache.Dial(cfg.CacheSocket, 200*time.Millisecond); err == nil {
				break
			}
			time.Sleep(200 * time.Millisecond)
		}
	}
	var backing cache.KV = kv
	if err != nil {
		logger.Warnf("Cache daemon unavailable (%v), caching in process memory only", err)
		backing = cache.NewMemoryKV()
	} else {
		logger.Infof("Successfully connected to cache daemon")
	}

	store := cache.NewStore(backing, cache.Options{GuardGenerations: cfg.GuardGenerations})
	var srcOpts []remote.ClientOption
	if cfg.AccessToken != "" {
		srcOpts = append(srcOpts, remote.WithAccessToken(cfg.AccessToken))
	}
	src := remote.NewClient(cfg.APIURL, cfg.APIKey, srcOpts...)
	cat := catalog.New(store, src, catalog.Options{
		InstitutionID:  cfg.InstitutionID,
		StaleTolerance: cfg.StaleTolerance,
	})
	listener := invalidation.NewListener(catalog.InvalidationTable(), store)

	if cfg.RealtimeURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		rt, err := realtime.DialClient(ctx, realtime.ClientOptions{
			URL:       cfg.RealtimeURL,
			APIKey:    cfg.APIKey,
			Heartbeat: cfg.RealtimeHeartbeat,
		})
		cancel()
		if err != nil {
			logger.Warnf("Realtime unavailable, entries expire by TTL only: %v", err)
		} else {
			defer rt.Close()
			if err := listener.Start(rt); err != nil {
				logger.Warnf("Realtime subscribe failed: %v", err)
			} else {
				defer listener.Stop()
				logger.Infof("Watching %s for changes", strings.Join(catalog.InvalidationTable().Tables(), ", "))
			}
		}
	}

	s := server.NewMCPServer(
		"Electives Catalog",
		"0.1.0",
		server.WithRecovery(),
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("list-degrees",
		mcp.WithDescription(multiline(
			"Lists the degrees offered by the institution",
			"- Results are cached for up to an hour and refreshed when degrees change",
		)),
	), tools.ListDegreesHandler(cat))

	s.AddTool(mcp.NewTool("list-universities",
		mcp.WithDescription(multiline(
			"Lists partner universities available for exchange programs",
			"- Results are cached for up to an hour and refreshed when universities change",
		)),
	), tools.ListUniversitiesHandler(cat))

	s.AddTool(mcp.NewTool("list-groups",
		mcp.WithDescription("Lists student groups, optionally restricted to one degree"),
		mcp.WithNumber("degree_id", mcp.Description("Only list groups of this degree")),
	), tools.ListGroupsHandler(cat))

	s.AddTool(mcp.NewTool("list-courses",
		mcp.WithDescription(multiline(
			"Lists the elective courses offered to a group",
			"- Course descriptions are returned as Markdown",
		)),
		mcp.WithNumber("group_id", mcp.Required(), mcp.Description("The group to list courses for")),
	), tools.ListCoursesHandler(cat))

	s.AddTool(mcp.NewTool("list-exchange-programs",
		mcp.WithDescription("Lists the exchange programs open to a group"),
		mcp.WithNumber("group_id", mcp.Required(), mcp.Description("The group to list programs for")),
	), tools.ListExchangeProgramsHandler(cat))

	s.AddTool(mcp.NewTool("cache-invalidate",
		mcp.WithDescription(multiline(
			"Drops cached reference data so the next read goes to the backend",
			"- Pass a cache key to drop one entry, or a table name to drop every entry built from it",
		)),
		mcp.WithString("key", mcp.Description("Exact cache key")),
		mcp.WithString("table", mcp.Description("Backend table name, e.g. courses")),
	), tools.CacheInvalidateHandler(store, listener))
	logger.Infof("Registered catalog tools")

	logger.Infof("Starting MCP server on stdio")
	if err := server.ServeStdio(s); err != nil {
		logger.Errorf("server error: %v", err)
	}
}

// multiline joins lines with newlines for tool descriptions.
func multiline(lines ...string) string { return strings.Join(lines, "\n") }

func startCacheDaemon() error {
	// 1) Try cache binary next to this server executable
	if exePath, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exePath), daemonBinary)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return spawn(sibling)
		}
	}
	// 2) Try PATH binary
	if path, err := exec.LookPath(daemonBinary); err == nil {
		return spawn(path)
	}
	return exec.ErrNotFound
}

func spawn(path string) error {
	cmd := exec.Command(path)
	cmd.Env = os.Environ()
	return cmd.Start()
}
