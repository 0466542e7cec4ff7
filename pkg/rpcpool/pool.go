// Package rpcpool spreads JSON-RPC calls over a set of intcode servers.
//
// Each endpoint is checked with getHealth. An endpoint that fails
// MaxFailures consecutive checks or calls leaves the rotation until a later
// check succeeds. Call picks endpoints round-robin and moves on to the next
// healthy endpoint when the transport fails. Errors reported by the server
// itself are returned as *RPCError without failover.
//
//	pool, err := rpcpool.New(rpcpool.Config{
//	    Endpoints: []string{"http://10.0.0.1:8547", "http://10.0.0.2:8547"},
//	})
//	pool.Start(ctx)
//	defer pool.Stop()
//
//	var out map[string]any
//	err = pool.Call(ctx, "eval", []any{"104,7,99"}, &out)
package rpcpool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

// Pool errors.
var (
	ErrNoHealthyEndpoints = errors.New("no healthy endpoints available")
	ErrNoEndpoints        = errors.New("no endpoints configured")
	ErrEndpointsFailed    = errors.New("all endpoints failed")
	ErrPoolClosed         = errors.New("pool is closed")
)

// Default configuration values.
const (
	DefaultHealthCheckPeriod = 30 * time.Second
	DefaultRequestTimeout    = 10 * time.Second
	DefaultMaxFailures       = 3
	maxResponseSize          = 64 << 20
)

// Config configures a Pool.
type Config struct {
	Endpoints         []string
	HealthCheckPeriod time.Duration
	RequestTimeout    time.Duration

	// MaxFailures is the number of consecutive failures after which an
	// endpoint is taken out of rotation.
	MaxFailures int

	// OnHealthChange, when set, is called whenever an endpoint enters or
	// leaves the rotation.
	OnHealthChange func(url string, healthy bool)

	Logger zerolog.Logger
}

type endpointState struct {
	url       string
	healthy   atomic.Bool
	lastCheck atomic.Int64 // unix nanos
	latency   atomic.Int64 // nanos of the last successful request
	failCount atomic.Int32
}

// Pool manages a set of JSON-RPC endpoints with health tracking.
type Pool struct {
	config Config
	log    zerolog.Logger

	endpoints []*endpointState
	mu        sync.RWMutex

	nextIndex atomic.Uint64
	requestID atomic.Uint64

	client *http.Client

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
	closed  atomic.Bool
}

// New creates a pool over config.Endpoints. Every endpoint starts healthy.
// Health checks do not run until Start is called.
func New(config Config) (*Pool, error) {
	if len(config.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if config.HealthCheckPeriod <= 0 {
		config.HealthCheckPeriod = DefaultHealthCheckPeriod
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = DefaultMaxFailures
	}

	p := &Pool{
		config: config,
		log:    config.Logger.With().Str("component", "rpcpool").Logger(),
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for _, url := range config.Endpoints {
		p.AddEndpoint(url)
	}
	return p, nil
}

// AddEndpoint adds url to the pool. Duplicates are ignored.
func (p *Pool) AddEndpoint(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ep := range p.endpoints {
		if ep.url == url {
			return
		}
	}
	ep := &endpointState{url: url}
	ep.healthy.Store(true)
	p.endpoints = append(p.endpoints, ep)
}

// RemoveEndpoint removes url from the pool.
func (p *Pool) RemoveEndpoint(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, ep := range p.endpoints {
		if ep.url == url {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			return
		}
	}
}

// healthyEndpoints returns the healthy endpoints rotated so that the next
// round-robin pick comes first.
func (p *Pool) healthyEndpoints() ([]*endpointState, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var healthy []*endpointState
	for _, ep := range p.endpoints {
		if ep.healthy.Load() {
			healthy = append(healthy, ep)
		}
	}
	if len(healthy) == 0 {
		return nil, ErrNoHealthyEndpoints
	}

	start := int(p.nextIndex.Add(1) % uint64(len(healthy)))
	return append(healthy[start:], healthy[:start]...), nil
}

// GetHealthy returns a healthy endpoint URL using round-robin selection.
func (p *Pool) GetHealthy() (string, error) {
	healthy, err := p.healthyEndpoints()
	if err != nil {
		return "", err
	}
	return healthy[0].url, nil
}

// HealthyCount returns the number of endpoints currently in rotation.
func (p *Pool) HealthyCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	count := 0
	for _, ep := range p.endpoints {
		if ep.healthy.Load() {
			count++
		}
	}
	return count
}

// TotalCount returns the number of endpoints in the pool.
func (p *Pool) TotalCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.endpoints)
}

// Call invokes method on a healthy endpoint and decodes the result into
// result, which may be nil. Transport failures move on to the next healthy
// endpoint. When all of them fail the error wraps ErrEndpointsFailed.
func (p *Pool) Call(ctx context.Context, method string, params, result interface{}) error {
	healthy, err := p.healthyEndpoints()
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, ep := range healthy {
		raw, err := p.do(ctx, ep, method, params)
		if err == nil {
			if result == nil || len(raw) == 0 {
				return nil
			}
			if err := json.Unmarshal(raw, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
			return nil
		}

		var rpcErr *RPCError
		if errors.As(err, &rpcErr) {
			return rpcErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Debug().Err(err).Str("endpoint", ep.url).Str("method", method).Msg("Call failed, trying next endpoint")
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", ep.url, err))
	}
	return fmt.Errorf("%w: %w", ErrEndpointsFailed, errs)
}

// do sends one request to ep and records the outcome.
func (p *Pool) do(ctx context.Context, ep *endpointState, method string, params interface{}) (json.RawMessage, error) {
	start := time.Now()
	raw, err := p.send(ctx, ep.url, method, params)

	var rpcErr *RPCError
	switch {
	case err == nil, errors.As(err, &rpcErr):
		ep.latency.Store(int64(time.Since(start)))
		p.markSuccess(ep)
	case ctx.Err() == nil:
		p.markFailure(ep)
	}
	return raw, err
}

// send performs a single JSON-RPC request against url.
func (p *Pool) send(ctx context.Context, url, method string, params interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	req := request{
		JSONRPC: "2.0",
		ID:      p.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func (p *Pool) markSuccess(ep *endpointState) {
	ep.failCount.Store(0)
	if !ep.healthy.Swap(true) {
		p.healthChanged(ep, true)
	}
}

func (p *Pool) markFailure(ep *endpointState) {
	if int(ep.failCount.Add(1)) < p.config.MaxFailures {
		return
	}
	if ep.healthy.Swap(false) {
		p.healthChanged(ep, false)
	}
}

func (p *Pool) healthChanged(ep *endpointState, healthy bool) {
	p.log.Info().Str("endpoint", ep.url).Bool("healthy", healthy).Msg("Endpoint health changed")
	if p.config.OnHealthChange != nil {
		p.config.OnHealthChange(ep.url, healthy)
	}
}

// Start runs an initial health check and then checks every
// HealthCheckPeriod in the background until Stop is called or ctx is done.
func (p *Pool) Start(ctx context.Context) {
	if p.started.Swap(true) {
		return
	}

	go func() {
		select {
		case <-ctx.Done():
			p.cancel()
		case <-p.ctx.Done():
		}
	}()

	p.CheckHealth()

	p.wg.Add(1)
	go p.healthCheckLoop()
}

// Stop stops health checking. Calls made after Stop return ErrPoolClosed.
func (p *Pool) Stop() {
	if p.closed.Swap(true) {
		return
	}
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) healthCheckLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthCheckPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.CheckHealth()
		}
	}
}

// CheckHealth checks every endpoint concurrently with getHealth.
func (p *Pool) CheckHealth() {
	p.mu.RLock()
	endpoints := make([]*endpointState, len(p.endpoints))
	copy(endpoints, p.endpoints)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, ep := range endpoints {
		wg.Add(1)
		go func(ep *endpointState) {
			defer wg.Done()
			p.checkEndpoint(ep)
		}(ep)
	}
	wg.Wait()
}

// checkEndpoint checks a single endpoint. A server that answers but reports
// itself unhealthy leaves the rotation at once.
func (p *Pool) checkEndpoint(ep *endpointState) {
	start := time.Now()
	raw, err := p.send(p.ctx, ep.url, "getHealth", nil)
	ep.lastCheck.Store(time.Now().UnixNano())

	if p.ctx.Err() != nil {
		return
	}

	var rpcErr *RPCError
	switch {
	case err == nil:
		var status string
		if json.Unmarshal(raw, &status) == nil && status == "ok" {
			ep.latency.Store(int64(time.Since(start)))
			p.markSuccess(ep)
			return
		}
		p.markDown(ep)
	case errors.As(err, &rpcErr):
		p.markDown(ep)
	default:
		p.markFailure(ep)
	}
}

func (p *Pool) markDown(ep *endpointState) {
	ep.failCount.Add(1)
	if ep.healthy.Swap(false) {
		p.healthChanged(ep, false)
	}
}

// EndpointStatus returns the status of all endpoints in the pool.
func (p *Pool) EndpointStatus() []EndpointInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	infos := make([]EndpointInfo, len(p.endpoints))
	for i, ep := range p.endpoints {
		info := EndpointInfo{
			URL:       ep.url,
			Healthy:   ep.healthy.Load(),
			Latency:   time.Duration(ep.latency.Load()),
			FailCount: int(ep.failCount.Load()),
		}
		if ns := ep.lastCheck.Load(); ns != 0 {
			info.LastCheck = time.Unix(0, ns)
		}
		infos[i] = info
	}
	return infos
}

// EndpointInfo contains status information about an endpoint.
type EndpointInfo struct {
	URL       string
	Healthy   bool
	Latency   time.Duration
	LastCheck time.Time
	FailCount int
}

// RPCError is an error object returned by a server.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}
