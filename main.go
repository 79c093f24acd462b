// Command drone-coverage-planner serves mission sessions over REST, WebSocket
// and MCP.
//
// Modes:
//
//	server     REST API, WebSocket and the /mcp endpoint (default)
//	stdio-mcp  MCP over stdio, backed by a running server or an internal one
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/drone-coverage-planner/api"
	"github.com/wricardo/drone-coverage-planner/game/config"
	"github.com/wricardo/drone-coverage-planner/game/service"
	"github.com/wricardo/drone-coverage-planner/game/session"
	"github.com/wricardo/drone-coverage-planner/transport/mcp"
	"github.com/wricardo/drone-coverage-planner/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
)

const (
	Version = "1.0.0"
	AppName = "Drone Coverage Planner Server"
)

var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", envOr("CONFIG_DIR", "configs"), "Directory containing mission scenarios (.json, .yaml)")
	sessionsDir  = flag.String("sessions-dir", envOr("SESSIONS_DIR", "sessions"), "Directory where sessions are persisted")
	sessionTTL   = flag.Duration("session-ttl", 24*time.Hour, "Remove sessions not accessed for this long")
	debug        = flag.Bool("debug", false, "Enable debug logging")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Expose the server through an ngrok tunnel (or NGROK_ENABLED=true)")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or NGROK_AUTHTOKEN)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Reserved ngrok domain (or NGROK_DOMAIN)")
)

// envOr returns the environment variable key, or fallback when it is unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [server|stdio-mcp]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		return
	}

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	mode := "server"
	if flag.NArg() > 0 {
		mode = flag.Arg(0)
	}
	log.Printf("Starting %s v%s (mode: %s)", AppName, Version, mode)

	missionService, err := initializeServices()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	switch mode {
	case "server":
		runHTTPServer(missionService)
	case "stdio-mcp":
		runStdioMCP(missionService)
	default:
		log.Fatalf("Unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
}

// newRouter mounts the REST API and WebSocket at the root and MCP at /mcp.
func newRouter(missionService service.MissionService, hub *websocket.Hub, mcpServer *server.MCPServer) http.Handler {
	router := http.NewServeMux()
	router.Handle("/", api.NewServer(missionService, hub))
	router.Handle("/mcp", mcpHandler(mcpServer))
	return router
}

// mcpHandler answers one JSON-RPC message per POST.
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(mcpServer.HandleMessage(r.Context(), body)); err != nil {
			log.Printf("Failed to write MCP response: %v", err)
		}
	}
}

func runHTTPServer(missionService service.MissionService) {
	hub := websocket.NewHub()
	go hub.Run()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	router := newRouter(missionService, hub, mcp.NewClient("http://"+addr).GetMCPServer())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Mission server listening on http://%s (REST /api, WebSocket /ws, MCP /mcp)", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	if token, domain, ok := tunnelSettings(); ok {
		go serveTunnel(ctx, router, token, domain)
	}

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}

// tunnelSettings resolves the ngrok token and domain from flags, falling back
// to the environment. ok is false when no tunnel should be opened.
func tunnelSettings() (token, domain string, ok bool) {
	enabled := *ngrokEnabled
	if v := os.Getenv("NGROK_ENABLED"); v == "true" || v == "1" {
		enabled = true
	}
	if !enabled {
		return "", "", false
	}

	token = *ngrokAuth
	if token == "" {
		token = os.Getenv("NGROK_AUTHTOKEN")
	}
	if token == "" {
		log.Println("WARNING: ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return "", "", false
	}

	domain = *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}
	return token, domain, true
}

// serveTunnel serves handler through an ngrok endpoint until ctx is done.
func serveTunnel(ctx context.Context, handler http.Handler, token, domain string) {
	endpoint := ngrokConfig.HTTPEndpoint()
	if domain != "" {
		endpoint = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	}

	tun, err := ngrok.Listen(ctx, endpoint, ngrok.WithAuthtoken(token))
	if err != nil {
		log.Printf("Failed to start ngrok tunnel: %v", err)
		return
	}
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	log.Printf("Ngrok tunnel established: %s", tun.URL())
	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		log.Printf("Ngrok server error: %v", err)
	}
}

func initializeServices() (service.MissionService, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(*sessionsDir, configManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	sessionManager := session.NewManagerWithPersistence(persistence)
	if err := sessionManager.LoadPersistedSessions(); err != nil {
		log.Printf("Warning: Failed to load persisted sessions: %v", err)
	}
	log.Printf("Loaded %d sessions from %s, default scenario %q", sessionManager.Count(), *sessionsDir, configManager.GetDefault().Name)

	go maintainSessions(sessionManager, *sessionTTL)

	return service.NewMissionService(sessionManager, configManager), nil
}

// maintainSessions expires idle sessions hourly and drops sessions whose
// files were deleted from disk every few seconds.
func maintainSessions(manager *session.Manager, ttl time.Duration) {
	expire := time.NewTicker(time.Hour)
	defer expire.Stop()
	prune := time.NewTicker(5 * time.Second)
	defer prune.Stop()

	for {
		select {
		case <-expire.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				log.Printf("Cleaned up %d expired sessions", removed)
			}
		case <-prune.C:
			if pruned := manager.PruneMissing(); len(pruned) > 0 {
				log.Printf("Pruned %d sessions whose files were deleted: %v", len(pruned), pruned)
			}
		}
	}
}

// runStdioMCP serves MCP on stdio. Tool calls go to the mission server on
// --port when one is running, otherwise to an internal API on a loopback port.
func runStdioMCP(missionService service.MissionService) {
	baseURL := fmt.Sprintf("http://localhost:%d", *port)
	if apiHealthy(baseURL) {
		log.Printf("Using mission server at %s", baseURL)
	} else {
		var err error
		if baseURL, err = startInternalAPI(missionService); err != nil {
			log.Fatalf("Failed to start internal API: %v", err)
		}
		log.Printf("Using internal API at %s", baseURL)
	}

	if err := server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer()); err != nil {
		log.Fatalf("MCP stdio server error: %v", err)
	}
}

// apiHealthy reports whether a mission server answers /api/health at baseURL.
func apiHealthy(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port and returns its URL.
func startInternalAPI(missionService service.MissionService) (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}

	hub := websocket.NewHub()
	go hub.Run()

	go func() {
		if err := http.Serve(listener, api.NewServer(missionService, hub)); err != nil {
			log.Printf("Internal API server error: %v", err)
		}
	}()
	return "http://" + listener.Addr().String(), nil
}
