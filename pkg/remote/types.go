package remote

import (
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// EvalRequest runs Program against Input.
type EvalRequest struct {
	Program []int64 `json:"program"`
	Input   []int64 `json:"input,omitempty"`
	Save    bool    `json:"save,omitempty"`
}

// ResumeRequest continues a stored checkpoint.
type ResumeRequest struct {
	Checkpoint string  `json:"checkpoint"`
	Input      []int64 `json:"input,omitempty"`
	Save       bool    `json:"save,omitempty"`
}

// TranspileRequest asks for Go source continuing Program after Input.
type TranspileRequest struct {
	Program []int64 `json:"program"`
	Input   []int64 `json:"input,omitempty"`
}

// EvalResponse is returned by Eval and Resume.
type EvalResponse struct {
	Output     []int64         `json:"output"`
	Completed  bool            `json:"completed"`
	State      string          `json:"state"`
	IP         intcode.Address `json:"ip"`
	UsedInput  int             `json:"usedInput"`
	Steps      uint64          `json:"steps"`
	Checkpoint string          `json:"checkpoint,omitempty"`
}

// TranspileResponse carries generated Go source.
type TranspileResponse struct {
	Source string `json:"source"`
}

func newEvalResponse(res *service.Result) *EvalResponse {
	out := &EvalResponse{
		Output:    res.Output,
		Completed: res.Completed,
		State:     res.State,
		IP:        res.IP,
		UsedInput: res.UsedInput,
		Steps:     res.Steps,
	}
	if out.Output == nil {
		out.Output = []int64{}
	}
	if res.Checkpoint != nil {
		out.Checkpoint = res.Checkpoint.String()
	}
	return out
}
