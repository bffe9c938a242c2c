package introspect

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/google/uuid"

	"relint/internal/relerr"
)

// Method names of the worker wire protocol.
const (
	methodInitSession = "init_session"
	methodFetchModel  = "fetch_model"
	methodFetchChain  = "fetch_override_chain"
	methodCompletions = "fetch_completions"
	methodModuleInfo  = "fetch_module_info"
)

// request is one line sent to the worker.
type request struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params"`
}

// response is one line read back. A crashed response terminates the session.
type response struct {
	ID      string          `json:"id"`
	Crashed bool            `json:"crashed,omitempty"`
	Error   string          `json:"error,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type initSessionParams struct {
	Deps DepSet `json:"deps"`
}

type fetchModelParams struct {
	Deps DepSet `json:"deps"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

type fetchChainParams struct {
	Deps   DepSet `json:"deps"`
	Kind   Kind   `json:"kind"`
	Name   string `json:"name"`
	Method string `json:"method"`
}

type moduleInfoParams struct {
	Module string `json:"module"`
}

// Worker is an Introspector backed by a long-lived subprocess speaking
// line-delimited JSON on stdin/stdout. Requests are serialized behind a
// mutex: one in flight at a time, concurrent callers queue.
type Worker struct {
	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Scanner
	dead  bool
}

// SpawnWorker starts the introspection worker process.
func SpawnWorker(command string, args ...string) (*Worker, error) {
	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, relerr.Wrap(relerr.InternalError, "worker stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, relerr.Wrap(relerr.InternalError, "worker stdout", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, relerr.Wrap(relerr.IntrospectorCrashed, "spawning introspection worker", err)
	}
	scanner := bufio.NewScanner(stdout)
	// Schema payloads for large modules can exceed the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Worker{cmd: cmd, stdin: stdin, out: scanner}, nil
}

// Alive reports whether the worker can still answer.
func (w *Worker) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.dead
}

// Close kills the worker process.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dead = true
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
		_ = w.cmd.Wait()
	}
	return nil
}

// call performs one request/response round trip. Any transport failure or
// crashed response marks the worker dead; the registry then discards it and
// respawns on next use.
func (w *Worker) call(method string, params, result interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dead {
		return relerr.New(relerr.IntrospectorCrashed, "introspection worker is not running")
	}
	req := request{ID: uuid.NewString(), Method: method, Params: params}
	payload, err := json.Marshal(req)
	if err != nil {
		return relerr.Wrap(relerr.InternalError, "encoding worker request", err)
	}
	if _, err := fmt.Fprintf(w.stdin, "%s\n", payload); err != nil {
		w.dead = true
		return relerr.Wrap(relerr.IntrospectorCrashed, "writing to introspection worker", err)
	}
	for w.out.Scan() {
		var resp response
		if err := json.Unmarshal(w.out.Bytes(), &resp); err != nil {
			w.dead = true
			return relerr.Wrap(relerr.IntrospectorCrashed, "malformed worker response", err)
		}
		if resp.ID != req.ID {
			// Stale answer from a superseded request, skip it.
			continue
		}
		return w.decode(resp, result)
	}
	w.dead = true
	if err := w.out.Err(); err != nil {
		return relerr.Wrap(relerr.IntrospectorCrashed, "reading from introspection worker", err)
	}
	return relerr.New(relerr.IntrospectorCrashed, "introspection worker closed its output")
}

func (w *Worker) decode(resp response, result interface{}) error {
	if resp.Crashed {
		w.dead = true
		return relerr.Newf(relerr.IntrospectorCrashed, "introspection worker crashed: %s", resp.Error)
	}
	if resp.Error != "" {
		return relerr.New(relerr.UnknownModel, resp.Error)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return relerr.Wrap(relerr.InternalError, "decoding worker result", err)
	}
	return nil
}

// InitSession implements Introspector.
func (w *Worker) InitSession(deps DepSet) (SessionInfo, error) {
	var info SessionInfo
	err := w.call(methodInitSession, initSessionParams{Deps: deps}, &info)
	return info, err
}

// FetchModel implements Introspector.
func (w *Worker) FetchModel(deps DepSet, name string, kind Kind) (ModelInfo, error) {
	var info ModelInfo
	err := w.call(methodFetchModel, fetchModelParams{Deps: deps, Name: name, Kind: kind}, &info)
	return info, err
}

// FetchOverrideChain implements Introspector.
func (w *Worker) FetchOverrideChain(deps DepSet, kind Kind, name, method string) ([]ChainEntry, error) {
	var chain []ChainEntry
	err := w.call(methodFetchChain, fetchChainParams{Deps: deps, Kind: kind, Name: name, Method: method}, &chain)
	return chain, err
}

// FetchCompletions implements Introspector.
func (w *Worker) FetchCompletions(deps DepSet, name string, kind Kind) (map[string]CompletionInfo, error) {
	var infos map[string]CompletionInfo
	err := w.call(methodCompletions, fetchModelParams{Deps: deps, Name: name, Kind: kind}, &infos)
	return infos, err
}

// FetchModuleInfo implements Introspector.
func (w *Worker) FetchModuleInfo(module string) (ModuleInfo, error) {
	var info ModuleInfo
	err := w.call(methodModuleInfo, moduleInfoParams{Module: module}, &info)
	return info, err
}
