package sandbox

import (
	"fmt"
	"time"
)

// Limits are the per-execution ceilings sent with every payload.
type Limits struct {
	RunTimeout     time.Duration `yaml:"run_timeout"`
	CompileTimeout time.Duration `yaml:"compile_timeout"`
	CompileMemory  int64         `yaml:"compile_memory_limit"` // bytes, -1 = unlimited
	RunMemory      int64         `yaml:"run_memory_limit"`     // bytes, -1 = unlimited
}

func DefaultLimits() Limits {
	return Limits{
		RunTimeout:     5 * time.Second,
		CompileTimeout: 10 * time.Second,
		CompileMemory:  -1,
		RunMemory:      -1,
	}
}

func (l Limits) Validate() error {
	if l.RunTimeout < time.Millisecond || l.RunTimeout > time.Minute {
		return fmt.Errorf("%w: run_timeout must be 1ms-1m, got %s", ErrInvalidRequest, l.RunTimeout)
	}
	if l.CompileTimeout < time.Millisecond || l.CompileTimeout > 2*time.Minute {
		return fmt.Errorf("%w: compile_timeout must be 1ms-2m, got %s", ErrInvalidRequest, l.CompileTimeout)
	}
	if l.CompileMemory < -1 || l.RunMemory < -1 {
		return fmt.Errorf("%w: memory limits must be -1 (unlimited) or a byte count", ErrInvalidRequest)
	}
	return nil
}

// Apply copies the limits onto a payload.
func (l Limits) Apply(req *ExecuteRequest) {
	req.RunTimeout = l.RunTimeout.Milliseconds()
	req.CompileTimeout = l.CompileTimeout.Milliseconds()
	compileMem, runMem := l.CompileMemory, l.RunMemory
	req.CompileMemoryLimit = &compileMem
	req.RunMemoryLimit = &runMem
}
