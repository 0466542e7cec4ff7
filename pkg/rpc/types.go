package rpc

import (
	"encoding/json"
	"time"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
)

// JSON-RPC 2.0 constants.
const (
	JSONRPCVersion = "2.0"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Encoding selects how memory images and checkpoint blobs are returned.
type Encoding string

const (
	EncodingJSON       Encoding = "json"
	EncodingBase58     Encoding = "base58"
	EncodingBase64     Encoding = "base64"
	EncodingBase64Zstd Encoding = "base64+zstd"
)

// EvalConfig holds the optional trailing object of eval and resume.
type EvalConfig struct {
	// Save stores a checkpoint when the run suspends.
	Save bool `json:"save,omitempty"`
}

// CheckpointConfig configures getCheckpoint.
type CheckpointConfig struct {
	Encoding Encoding `json:"encoding,omitempty"`
}

// CheckpointResult is the getCheckpoint response.
type CheckpointResult struct {
	ID        string          `json:"id"`
	Program   string          `json:"program"`
	IP        intcode.Address `json:"ip"`
	UsedInput int             `json:"usedInput"`
	Output    []int64         `json:"output"`
	Memory    interface{}     `json:"memory"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CheckpointInfo is one listCheckpoints entry.
type CheckpointInfo struct {
	ID        string          `json:"id"`
	Program   string          `json:"program"`
	IP        intcode.Address `json:"ip"`
	UsedInput int             `json:"usedInput"`
	Outputs   int             `json:"outputs"`
	Words     int             `json:"words"`
	CreatedAt time.Time       `json:"createdAt"`
}

func newCheckpointInfo(info checkpoint.Info) CheckpointInfo {
	return CheckpointInfo{
		ID:        info.ID.String(),
		Program:   info.Program.String(),
		IP:        info.IP,
		UsedInput: info.UsedInput,
		Outputs:   info.Outputs,
		Words:     info.Words,
		CreatedAt: info.CreatedAt,
	}
}

// ExportResult is the exportCheckpoint response.
type ExportResult struct {
	ID       string   `json:"id"`
	FileName string   `json:"fileName"`
	Data     string   `json:"data"`
	Encoding Encoding `json:"encoding"`
}

// StatsResult is the getStats response.
type StatsResult struct {
	Evals       uint64 `json:"evals"`
	Resumes     uint64 `json:"resumes"`
	Checkpoints uint64 `json:"checkpoints"`
	Failures    uint64 `json:"failures"`
	UptimeSecs  int64  `json:"uptimeSecs"`
}

// VersionResult is the getVersion response.
type VersionResult struct {
	IntcodeCore string `json:"intcode-core"`
}
