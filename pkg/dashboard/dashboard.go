// Package dashboard provides an embedded web dashboard for an intcode server.
//
// The dashboard provides:
//   - Service counters and uptime
//   - A checkpoint browser with per-program filtering
//   - A memory view of each checkpoint around its resume address
//
// Templates and static assets are compiled into the binary.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// Config holds dashboard configuration options.
type Config struct {
	// Addr is the listen address. Default: "127.0.0.1:8549"
	Addr string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum time to wait for the next request.
	IdleTimeout time.Duration

	// MemoryWindow is the number of words shown on each side of the resume
	// address in the checkpoint memory view.
	MemoryWindow int

	Logger zerolog.Logger
}

// DefaultConfig returns the default dashboard configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8549",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		MemoryWindow: 64,
		Logger:       zerolog.Nop(),
	}
}

// Dashboard is the web dashboard server.
type Dashboard struct {
	config Config
	svc    *service.Service
	log    zerolog.Logger

	// Cached templates
	templates *template.Template

	mu      sync.Mutex
	server  *http.Server
	running bool
}

// New creates a new dashboard server.
func New(config Config, svc *service.Service) (*Dashboard, error) {
	def := DefaultConfig()
	if config.Addr == "" {
		config.Addr = def.Addr
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	if config.MemoryWindow <= 0 {
		config.MemoryWindow = def.MemoryWindow
	}

	d := &Dashboard{
		config: config,
		svc:    svc,
		log:    config.Logger.With().Str("component", "dashboard").Logger(),
	}

	tmpl, err := d.parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	d.templates = tmpl
	return d, nil
}

// parseTemplates parses all embedded templates.
func (d *Dashboard) parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"formatDuration": formatDuration,
		"formatNumber":   formatNumber,
		"formatBytes":    formatBytes,
		"formatTime":     formatTime,
		"truncateHash":   truncateHash,
	}

	tmpl := template.New("").Funcs(funcMap)
	if _, err := tmpl.New("layout").Parse(layoutTemplate); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	templates := map[string]string{
		"home":        homeTemplate,
		"checkpoints": checkpointsTemplate,
		"checkpoint":  checkpointTemplate,
	}
	for name, content := range templates {
		if _, err := tmpl.New(name).Parse(content); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
	}
	return tmpl, nil
}

// Handler returns the dashboard routes.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()

	// Static assets
	mux.HandleFunc("/static/", d.handleStatic)

	// Page routes
	mux.HandleFunc("/", d.handleHome)
	mux.HandleFunc("/checkpoints", d.handleCheckpoints)
	mux.HandleFunc("/checkpoints/", d.handleCheckpoint)

	// API routes
	mux.HandleFunc("/api/status", d.handleAPIStatus)
	mux.HandleFunc("/api/checkpoints", d.handleAPICheckpoints)
	mux.HandleFunc("/api/checkpoints/", d.handleAPICheckpoint)
	mux.HandleFunc("/api/metrics", d.handleAPIMetrics)

	return mux
}

// Start listens on the configured address and serves until ctx is done.
func (d *Dashboard) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.config.Addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (d *Dashboard) Serve(ctx context.Context, ln net.Listener) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		ln.Close()
		return fmt.Errorf("dashboard already running")
	}
	d.running = true
	d.server = &http.Server{
		Handler:      d.Handler(),
		ReadTimeout:  d.config.ReadTimeout,
		WriteTimeout: d.config.WriteTimeout,
		IdleTimeout:  d.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	srv := d.server
	d.mu.Unlock()

	go func() {
		<-ctx.Done()
		d.Stop()
	}()

	d.log.Info().Str("addr", ln.Addr().String()).Msg("dashboard listening")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the dashboard server.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	srv := d.server
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// handleHome renders the overview page.
func (d *Dashboard) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := d.statusData()
	if infos, err := d.svc.Checkpoints(types.Digest{}); err == nil {
		if len(infos) > 10 {
			infos = infos[:10]
		}
		data.Recent = infos
	}
	d.renderPage(w, "home", data)
}

// handleCheckpoints renders the checkpoint list, optionally filtered by
// ?program=<digest>.
func (d *Dashboard) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	program, err := queryDigest(r, "program")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	infos, err := d.svc.Checkpoints(program)
	if err != nil {
		d.renderError(w, err)
		return
	}
	d.renderPage(w, "checkpoints", map[string]interface{}{
		"Checkpoints": infos,
		"Program":     program,
	})
}

// handleCheckpoint renders one checkpoint.
func (d *Dashboard) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	id, err := types.DigestFromBase58(strings.TrimPrefix(r.URL.Path, "/checkpoints/"))
	if err != nil {
		http.Error(w, "invalid checkpoint id", http.StatusBadRequest)
		return
	}
	cp, err := d.svc.Checkpoint(id)
	if err != nil {
		d.renderError(w, err)
		return
	}
	d.renderPage(w, "checkpoint", checkpointView{
		ID:         id,
		Checkpoint: cp,
		Rows:       memoryRows(cp.Memory, cp.IP, d.config.MemoryWindow),
	})
}

// handleStatic serves embedded static assets.
func (d *Dashboard) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/static/")

	content, contentType, ok := getStaticAsset(name)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write([]byte(content))
}

// renderPage renders a page template inside the layout.
func (d *Dashboard) renderPage(w http.ResponseWriter, name string, data interface{}) {
	var contentBuf strings.Builder
	if err := d.templates.ExecuteTemplate(&contentBuf, name, data); err != nil {
		d.log.Error().Err(err).Str("page", name).Msg("render")
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
		return
	}

	pageData := map[string]interface{}{
		"PageName": name,
		"Content":  template.HTML(contentBuf.String()),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := d.templates.ExecuteTemplate(w, "layout", pageData); err != nil {
		http.Error(w, fmt.Sprintf("Template error: %v", err), http.StatusInternalServerError)
	}
}

// renderError maps service errors to HTTP statuses.
func (d *Dashboard) renderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		http.Error(w, "checkpoint not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNoStore):
		http.Error(w, "no checkpoint store configured", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// statusView is the overview page model.
type statusView struct {
	Stats    service.Stats
	Version  string
	Recent   []checkpoint.Info
	MemAlloc uint64
}

func (d *Dashboard) statusData() statusView {
	m := getMemStats()
	return statusView{
		Stats:    d.svc.Stats(),
		Version:  service.Version,
		MemAlloc: m.Alloc,
	}
}

// checkpointView is the checkpoint page model.
type checkpointView struct {
	ID         types.Digest
	Checkpoint *checkpoint.Checkpoint
	Rows       []memoryRow
}

// memoryRow is one line of the memory view.
type memoryRow struct {
	Addr  intcode.Address
	Words []memoryWord
}

type memoryWord struct {
	Value   int64
	Current bool
}

const wordsPerRow = 8

// memoryRows returns the rows of mem within window words of ip, aligned to
// whole rows.
func memoryRows(mem intcode.Memory, ip intcode.Address, window int) []memoryRow {
	start := int(ip) - window
	if start < 0 {
		start = 0
	}
	start -= start % wordsPerRow
	end := int(ip) + window + 1
	if end > len(mem) {
		end = len(mem)
	}

	var rows []memoryRow
	for base := start; base < end; base += wordsPerRow {
		row := memoryRow{Addr: intcode.Address(base)}
		for i := base; i < base+wordsPerRow && i < end; i++ {
			row.Words = append(row.Words, memoryWord{Value: mem[i], Current: i == int(ip)})
		}
		rows = append(rows, row)
	}
	return rows
}

func queryDigest(r *http.Request, key string) (types.Digest, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return types.Digest{}, nil
	}
	d, err := types.DigestFromBase58(s)
	if err != nil {
		return types.Digest{}, fmt.Errorf("invalid %s digest", key)
	}
	return d, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// Template helper functions

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

func formatNumber(n interface{}) string {
	switch v := n.(type) {
	case int:
		return formatInt(int64(v))
	case int64:
		return formatInt(v)
	case uint64:
		return formatInt(int64(v))
	default:
		return fmt.Sprintf("%v", n)
	}
}

func formatInt(n int64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1000000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	case n < 1000000000:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(n)/1000000000)
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func truncateHash(s string, n int) string {
	if len(s) <= n*2+3 {
		return s
	}
	return s[:n] + "..." + s[len(s)-n:]
}

// getMemStats returns current memory statistics.
func getMemStats() runtime.MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m
}
