package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fortiblox/intcode/internal/types"
	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/service"
)

// parseArgs splits positional params. Absent params yield no arguments.
func parseArgs(params json.RawMessage) ([]json.RawMessage, *RPCError) {
	if len(params) == 0 || string(params) == "null" {
		return nil, nil
	}
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil {
		return nil, InvalidParamsError("invalid params")
	}
	return args, nil
}

// parseProgram accepts program text or an array of words.
func parseProgram(raw json.RawMessage) (intcode.Memory, *RPCError) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		mem, err := intcode.Parse(strings.Trim(text, "\r\n"))
		if err != nil {
			return nil, FromError(err)
		}
		return mem, nil
	}
	var words []int64
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil, InvalidParamsError("program must be text or an array of integers")
	}
	return intcode.Memory(words), nil
}

// parseInput accepts an array of integers, whitespace or comma separated
// text, or null.
func parseInput(raw json.RawMessage) ([]int64, *RPCError) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var words []int64
	if err := json.Unmarshal(raw, &words); err == nil {
		return words, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, InvalidParamsError("input must be an array of integers or text")
	}
	input, err := intcode.ParseInput(text)
	if err != nil {
		return nil, InvalidParamsErrorf("invalid input: %v", err)
	}
	return input, nil
}

// parseSave accepts a bare boolean or an EvalConfig object.
func parseSave(raw json.RawMessage) (bool, *RPCError) {
	var save bool
	if err := json.Unmarshal(raw, &save); err == nil {
		return save, nil
	}
	var cfg EvalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return false, InvalidParamsError("invalid config")
	}
	return cfg.Save, nil
}

func parseDigest(raw json.RawMessage, what string) (types.Digest, *RPCError) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return types.Digest{}, InvalidParamsErrorf("invalid %s", what)
	}
	d, err := types.DigestFromBase58(s)
	if err != nil {
		return types.Digest{}, InvalidParamsErrorf("invalid %s format", what)
	}
	return d, nil
}

// requireID parses the checkpoint ID in the first argument.
func requireID(args []json.RawMessage) (types.Digest, *RPCError) {
	if len(args) < 1 {
		return types.Digest{}, InvalidParamsError("missing checkpoint id parameter")
	}
	return parseDigest(args[0], "checkpoint id")
}

// Evaluation Methods

// eval runs a program. Params: [program, input?, save?]
func (s *Server) eval(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(args) < 1 {
		return nil, InvalidParamsError("missing program parameter")
	}

	program, rpcErr := parseProgram(args[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	var input []int64
	if len(args) > 1 {
		if input, rpcErr = parseInput(args[1]); rpcErr != nil {
			return nil, rpcErr
		}
	}
	var save bool
	if len(args) > 2 {
		if save, rpcErr = parseSave(args[2]); rpcErr != nil {
			return nil, rpcErr
		}
	}

	res, err := s.svc.Eval(ctx, program, input, save)
	if err != nil {
		return nil, FromError(err)
	}
	return res, nil
}

// resume continues a checkpoint. Params: [id, input?, save?]
func (s *Server) resume(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := requireID(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var input []int64
	if len(args) > 1 {
		if input, rpcErr = parseInput(args[1]); rpcErr != nil {
			return nil, rpcErr
		}
	}
	var save bool
	if len(args) > 2 {
		if save, rpcErr = parseSave(args[2]); rpcErr != nil {
			return nil, rpcErr
		}
	}

	res, err := s.svc.Resume(ctx, id, input, save)
	if err != nil {
		return nil, FromError(err)
	}
	return res, nil
}

// transpile returns Go source. Params: [program, input?]
func (s *Server) transpile(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(args) < 1 {
		return nil, InvalidParamsError("missing program parameter")
	}
	program, rpcErr := parseProgram(args[0])
	if rpcErr != nil {
		return nil, rpcErr
	}
	var input []int64
	if len(args) > 1 {
		if input, rpcErr = parseInput(args[1]); rpcErr != nil {
			return nil, rpcErr
		}
	}

	src, err := s.svc.Transpile(ctx, program, input)
	if err != nil {
		return nil, FromError(err)
	}
	return src, nil
}

// transpileCheckpoint returns Go source continuing a checkpoint. Params: [id]
func (s *Server) transpileCheckpoint(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := requireID(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	src, err := s.svc.TranspileCheckpoint(ctx, id)
	if err != nil {
		return nil, FromError(err)
	}
	return src, nil
}

// Checkpoint Methods

// getCheckpoint returns a stored checkpoint. Params: [id, {encoding}?]
func (s *Server) getCheckpoint(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := requireID(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var cfg CheckpointConfig
	if len(args) > 1 {
		if err := json.Unmarshal(args[1], &cfg); err != nil {
			return nil, InvalidParamsError("invalid config")
		}
	}

	cp, err := s.svc.Checkpoint(id)
	if err != nil {
		return nil, FromError(err)
	}
	mem, err := EncodeMemory(cp.Memory, ParseEncoding(string(cfg.Encoding)))
	if err != nil {
		return nil, InternalServerErrorf("encode memory: %v", err)
	}
	output := cp.Output
	if output == nil {
		output = []int64{}
	}
	return CheckpointResult{
		ID:        id.String(),
		Program:   cp.Program.String(),
		IP:        cp.IP,
		UsedInput: cp.UsedInput,
		Output:    output,
		Memory:    mem,
		CreatedAt: cp.CreatedAt,
	}, nil
}

// listCheckpoints lists checkpoints. Params: [programDigest?]
func (s *Server) listCheckpoints(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var program types.Digest
	if len(args) > 0 && string(args[0]) != "null" {
		if program, rpcErr = parseDigest(args[0], "program digest"); rpcErr != nil {
			return nil, rpcErr
		}
	}

	infos, err := s.svc.Checkpoints(program)
	if err != nil {
		return nil, FromError(err)
	}
	out := make([]CheckpointInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, newCheckpointInfo(info))
	}
	return out, nil
}

// deleteCheckpoint removes a checkpoint. Params: [id]
func (s *Server) deleteCheckpoint(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := requireID(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.svc.DeleteCheckpoint(id); err != nil {
		return nil, FromError(err)
	}
	return true, nil
}

// exportCheckpoint returns the archive encoding of a checkpoint.
// Params: [id, encoding?]
func (s *Server) exportCheckpoint(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, rpcErr := requireID(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	encoding := EncodingBase64
	if len(args) > 1 {
		var e string
		if err := json.Unmarshal(args[1], &e); err != nil {
			return nil, InvalidParamsError("invalid encoding")
		}
		if ParseEncoding(e) == EncodingBase58 {
			encoding = EncodingBase58
		}
	}

	cp, err := s.svc.Checkpoint(id)
	if err != nil {
		return nil, FromError(err)
	}
	data, err := checkpoint.Marshal(cp)
	if err != nil {
		return nil, InternalServerErrorf("encode checkpoint: %v", err)
	}
	return ExportResult{
		ID:       id.String(),
		FileName: checkpoint.FileName(id),
		Data:     EncodeBlob(data, encoding),
		Encoding: encoding,
	}, nil
}

// importCheckpoint stores an exported checkpoint. Params: [data, encoding?]
func (s *Server) importCheckpoint(_ context.Context, params json.RawMessage) (interface{}, *RPCError) {
	args, rpcErr := parseArgs(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if len(args) < 1 {
		return nil, InvalidParamsError("missing data parameter")
	}
	var encoded string
	if err := json.Unmarshal(args[0], &encoded); err != nil {
		return nil, InvalidParamsError("invalid data")
	}
	encoding := EncodingBase64
	if len(args) > 1 {
		var e string
		if err := json.Unmarshal(args[1], &e); err != nil {
			return nil, InvalidParamsError("invalid encoding")
		}
		if ParseEncoding(e) == EncodingBase58 {
			encoding = EncodingBase58
		}
	}

	data, err := DecodeBlob(encoded, encoding)
	if err != nil {
		return nil, InvalidParamsErrorf("invalid %s data", encoding)
	}
	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, FromError(err)
	}
	id, err := s.svc.Save(cp)
	if err != nil {
		return nil, FromError(err)
	}
	return id.String(), nil
}

// Server Methods

// getHealth returns "ok" while the server is healthy.
func (s *Server) getHealth(_ context.Context, _ json.RawMessage) (interface{}, *RPCError) {
	if !s.IsHealthy() {
		return nil, ErrNodeUnhealthy
	}
	return "ok", nil
}

// getVersion returns the server version.
func (s *Server) getVersion(_ context.Context, _ json.RawMessage) (interface{}, *RPCError) {
	return VersionResult{IntcodeCore: service.Version}, nil
}

// getStats returns service counters.
func (s *Server) getStats(_ context.Context, _ json.RawMessage) (interface{}, *RPCError) {
	st := s.svc.Stats()
	return StatsResult{
		Evals:       st.Evals,
		Resumes:     st.Resumes,
		Checkpoints: st.Checkpoints,
		Failures:    st.Failures,
		UptimeSecs:  int64(st.Uptime.Seconds()),
	}, nil
}
