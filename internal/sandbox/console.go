package sandbox

import (
	"strings"

	"github.com/dop251/goja"
)

// console is the output channel of one runtime. The console global writes
// to whichever sink is currently installed.
type console struct {
	sink Sink
}

func installConsole(rt *goja.Runtime) (*console, error) {
	c := &console{sink: Discard}
	obj := rt.NewObject()
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		if err := obj.Set(name, c.write); err != nil {
			return nil, err
		}
	}
	if err := rt.Set("console", obj); err != nil {
		return nil, err
	}
	return c, nil
}

// Redirect installs sink and returns a function restoring the previous one.
func (c *console) Redirect(sink Sink) (restore func()) {
	if sink == nil {
		sink = Discard
	}
	prev := c.sink
	c.sink = sink
	return func() { c.sink = prev }
}

func (c *console) write(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = display(arg)
	}
	c.sink.Emit(strings.Join(parts, " "))
	return goja.Undefined()
}

func display(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	return v.String()
}
