package dummy

import (
	"sync"

	"github.com/urmt/STEM-SPLITTER/src/shared/lib/executor"
)

var _ executor.Executor = &Executor{}

// Executor records every command and delegates the actual run to
// RunFunc, which can fabricate output files before returning.
type Executor struct {
	RunFunc func(call ExecutorCall) ([]byte, error)

	mu    sync.Mutex
	calls []ExecutorCall
}

type ExecutorCall struct {
	Name string
	Args []string
	Dir  string
}

func NewExecutor(runFunc func(call ExecutorCall) ([]byte, error)) *Executor {
	return &Executor{
		RunFunc: runFunc,
	}
}

func (e *Executor) Command(name string, arg ...string) executor.Command {
	return &dummyCommand{
		executor: e,
		call: ExecutorCall{
			Name: name,
			Args: arg,
		},
	}
}

func (e *Executor) Calls() []ExecutorCall {
	e.mu.Lock()
	defer e.mu.Unlock()

	calls := make([]ExecutorCall, len(e.calls))
	copy(calls, e.calls)
	return calls
}

var _ executor.Command = &dummyCommand{}

type dummyCommand struct {
	executor *Executor
	call     ExecutorCall
}

func (c *dummyCommand) SetDir(dir string) {
	c.call.Dir = dir
}

func (c *dummyCommand) CombinedOutput() ([]byte, error) {
	c.executor.mu.Lock()
	c.executor.calls = append(c.executor.calls, c.call)
	c.executor.mu.Unlock()

	if c.executor.RunFunc == nil {
		return []byte{}, nil
	}

	return c.executor.RunFunc(c.call)
}
