package dashboard

import (
	"errors"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// StatusResponse is the API response for /api/status.
type StatusResponse struct {
	Version     string `json:"version"`
	Evals       uint64 `json:"evals"`
	Resumes     uint64 `json:"resumes"`
	Checkpoints uint64 `json:"checkpoints"`
	Failures    uint64 `json:"failures"`
	HasStore    bool   `json:"hasStore"`
	Uptime      string `json:"uptime"`
	UptimeSecs  int64  `json:"uptimeSecs"`
}

// CheckpointBrief is one entry of /api/checkpoints.
type CheckpointBrief struct {
	ID        string          `json:"id"`
	Program   string          `json:"program"`
	IP        intcode.Address `json:"ip"`
	UsedInput int             `json:"usedInput"`
	Outputs   int             `json:"outputs"`
	Words     int             `json:"words"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CheckpointsListResponse is the API response for /api/checkpoints.
type CheckpointsListResponse struct {
	Checkpoints []CheckpointBrief `json:"checkpoints"`
	Total       int               `json:"total"`
}

// CheckpointResponse is the API response for /api/checkpoints/<id>.
type CheckpointResponse struct {
	CheckpointBrief
	Output    []int64 `json:"output"`
	Opcode    int64   `json:"opcode"`
	Transpile string  `json:"transpile,omitempty"`
}

// MetricsResponse is the API response for /api/metrics.
type MetricsResponse struct {
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heapAlloc"`
	HeapSys    uint64 `json:"heapSys"`
	NumGC      uint32 `json:"numGC"`
	Failures   uint64 `json:"failures"`
}

func newCheckpointBrief(info checkpoint.Info) CheckpointBrief {
	return CheckpointBrief{
		ID:        info.ID.String(),
		Program:   info.Program.String(),
		IP:        info.IP,
		UsedInput: info.UsedInput,
		Outputs:   info.Outputs,
		Words:     info.Words,
		CreatedAt: info.CreatedAt,
	}
}

// handleAPIStatus returns service counters.
func (d *Dashboard) handleAPIStatus(w http.ResponseWriter, r *http.Request) {
	st := d.svc.Stats()
	writeJSON(w, StatusResponse{
		Version:     service.Version,
		Evals:       st.Evals,
		Resumes:     st.Resumes,
		Checkpoints: st.Checkpoints,
		Failures:    st.Failures,
		HasStore:    st.HasStore,
		Uptime:      formatDuration(st.Uptime),
		UptimeSecs:  int64(st.Uptime.Seconds()),
	})
}

// handleAPICheckpoints lists checkpoints, optionally filtered by ?program=.
func (d *Dashboard) handleAPICheckpoints(w http.ResponseWriter, r *http.Request) {
	program, err := queryDigest(r, "program")
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	infos, err := d.svc.Checkpoints(program)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	resp := CheckpointsListResponse{
		Checkpoints: make([]CheckpointBrief, 0, len(infos)),
		Total:       len(infos),
	}
	for _, info := range infos {
		resp.Checkpoints = append(resp.Checkpoints, newCheckpointBrief(info))
	}
	writeJSON(w, resp)
}

// handleAPICheckpoint returns one checkpoint. With ?source=1 the response
// includes the transpiled Go program.
func (d *Dashboard) handleAPICheckpoint(w http.ResponseWriter, r *http.Request) {
	id, err := types.DigestFromBase58(strings.TrimPrefix(r.URL.Path, "/api/checkpoints/"))
	if err != nil {
		writeError(w, "invalid checkpoint id", http.StatusBadRequest)
		return
	}
	cp, err := d.svc.Checkpoint(id)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	resp := CheckpointResponse{
		CheckpointBrief: newCheckpointBrief(cp.Info()),
		Output:          cp.Output,
		Opcode:          cp.Memory[cp.IP],
	}
	if resp.Output == nil {
		resp.Output = []int64{}
	}
	if r.URL.Query().Get("source") != "" {
		src, err := d.svc.TranspileCheckpoint(r.Context(), id)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		resp.Transpile = src
	}
	writeJSON(w, resp)
}

// handleAPIMetrics returns runtime metrics.
func (d *Dashboard) handleAPIMetrics(w http.ResponseWriter, r *http.Request) {
	m := getMemStats()
	writeJSON(w, MetricsResponse{
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  m.HeapAlloc,
		HeapSys:    m.HeapSys,
		NumGC:      m.NumGC,
		Failures:   d.svc.Stats().Failures,
	})
}

func writeAPIError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		writeError(w, "checkpoint not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNoStore):
		writeError(w, "no checkpoint store configured", http.StatusServiceUnavailable)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}
