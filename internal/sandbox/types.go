package sandbox

// File is one source file submitted to the sandbox.
type File struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// ExecuteRequest is the sandbox's native execute payload.
type ExecuteRequest struct {
	Language           string   `json:"language"`
	Version            string   `json:"version"`
	Files              []File   `json:"files"`
	Stdin              string   `json:"stdin"`
	Args               []string `json:"args"`
	RunTimeout         int64    `json:"run_timeout"`
	CompileTimeout     int64    `json:"compile_timeout"`
	CompileMemoryLimit *int64   `json:"compile_memory_limit,omitempty"`
	RunMemoryLimit     *int64   `json:"run_memory_limit,omitempty"`
}

// RunResult is the run stage of an execution. Code is null when the process
// was killed (time or memory limit), in which case Signal names the signal.
type RunResult struct {
	Stdout   string  `json:"stdout"`
	Stderr   string  `json:"stderr"`
	Output   string  `json:"output"`
	Code     *int    `json:"code"`
	Signal   *string `json:"signal"`
	Message  string  `json:"message,omitempty"`
	Status   string  `json:"status,omitempty"` // e.g. "TO" (timed out), "SG" (signaled)
	Memory   *int64  `json:"memory,omitempty"`
	CPUTime  *int64  `json:"cpu_time,omitempty"`
	WallTime *int64  `json:"wall_time,omitempty"`
}

// Succeeded reports a run that exited on its own with status 0.
func (r RunResult) Succeeded() bool {
	return r.Code != nil && *r.Code == 0 && r.Signal == nil
}

// ExitStatus is the process exit code, or 1 for a run without one.
func (r RunResult) ExitStatus() int {
	if r.Code != nil && *r.Code != 0 {
		return *r.Code
	}
	if r.Succeeded() {
		return 0
	}
	return 1
}

// ExecuteResponse is the canonical execution result shape. Every path that
// answers a run (sandbox, fallback, synthesized failure) produces one.
type ExecuteResponse struct {
	Run      RunResult  `json:"run"`
	Compile  *RunResult `json:"compile,omitempty"`
	Language string     `json:"language,omitempty"`
	Version  string     `json:"version,omitempty"`
	Message  string     `json:"message,omitempty"`
}

// Package identifies an installable sandbox runtime.
type Package struct {
	Language string `json:"language"`
	Version  string `json:"version"`
}

// RuntimeInfo is one entry of the sandbox runtime list.
type RuntimeInfo struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases,omitempty"`
	Runtime  string   `json:"runtime,omitempty"`
}

// Signal returns a pointer for RunResult.Signal.
func Signal(s string) *string {
	return &s
}

// ExitCode returns a pointer for RunResult.Code.
func ExitCode(c int) *int {
	return &c
}
