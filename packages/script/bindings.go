package script

import (
	"context"
	"errors"

	"github.com/dop251/goja"

	"github.com/abdul-hamid-achik/hitscript/packages/http"
	"github.com/abdul-hamid-achik/hitscript/packages/jsonpath"
)

// binding wires one Context into one runtime.
type binding struct {
	ctx  context.Context
	vm   *goja.Runtime
	sctx *Context
}

func (b *binding) install(kind Kind) error {
	req := b.sctx.Request
	if req == nil {
		req = http.NewRequest("GET", "")
	}

	globals := map[string]any{
		"client":          b.client(),
		"request":         b.request(req),
		"console":         b.console(),
		"jsonPath":        b.jsonPath,
		"URLSearchParams": b.newURLSearchParams,
	}
	if kind == ResponseHandler {
		resp, err := b.response(b.sctx.Response)
		if err != nil {
			return err
		}
		globals["response"] = resp
	}

	for name, v := range globals {
		if err := b.vm.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

// throw raises a JavaScript Error carrying msg.
func (b *binding) throw(msg string) {
	obj, err := b.vm.New(b.vm.Get("Error"), b.vm.ToValue(msg))
	if err != nil {
		panic(b.vm.NewGoError(errors.New(msg)))
	}
	panic(obj)
}

// rethrow propagates an error returned by a script callback. Interrupts
// are re-armed so the runtime stops at its next instruction.
func (b *binding) rethrow(err error) {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		b.vm.Interrupt(b.ctx.Err())
		return
	}
	var exc *goja.Exception
	if errors.As(err, &exc) {
		panic(exc.Value())
	}
	b.throw(err.Error())
}

// export converts a script value to a Go value. undefined and null both
// become nil.
func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

// optionalString returns the string value of v, or ok=false when the
// argument was omitted.
func optionalString(v goja.Value) (string, bool) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return "", false
	}
	return v.String(), true
}

// stringOrNull maps a (value, ok) lookup to a script value.
func (b *binding) stringOrNull(s string, ok bool) goja.Value {
	if !ok {
		return goja.Null()
	}
	return b.vm.ToValue(s)
}

func (b *binding) strings(list []string) *goja.Object {
	items := make([]any, len(list))
	for i, s := range list {
		items[i] = s
	}
	return b.vm.NewArray(items...)
}

func (b *binding) client() *goja.Object {
	c := b.sctx.Client
	vm := b.vm

	global := vm.NewObject()
	_ = global.Set("set", func(call goja.FunctionCall) goja.Value {
		c.Global.Set(call.Argument(0).String(), export(call.Argument(1)))
		return goja.Undefined()
	})
	_ = global.Set("get", func(call goja.FunctionCall) goja.Value {
		v, ok := c.Global.Get(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return vm.ToValue(v)
	})
	_ = global.Set("isEmpty", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(c.Global.IsEmpty())
	})
	_ = global.Set("clear", func(call goja.FunctionCall) goja.Value {
		c.Global.Clear(call.Argument(0).String())
		return goja.Undefined()
	})
	_ = global.Set("clearAll", func(goja.FunctionCall) goja.Value {
		c.Global.ClearAll()
		return goja.Undefined()
	})

	obj := vm.NewObject()
	_ = obj.Set("global", global)
	_ = obj.Set("log", b.log)
	_ = obj.Set("test", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		fn, isFunc := goja.AssertFunction(call.Argument(1))
		c.Test(name, func() error {
			if !isFunc {
				return errors.New("TypeError: test body is not a function")
			}
			if _, err := fn(goja.Undefined()); err != nil {
				return errors.New(errorText(err))
			}
			return nil
		})
		// An interrupt raised inside the test body is absorbed by Test;
		// re-arm it so the run still stops.
		if err := b.ctx.Err(); err != nil {
			vm.Interrupt(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("assert", func(call goja.FunctionCall) goja.Value {
		var msg []string
		if s, ok := optionalString(call.Argument(1)); ok {
			msg = append(msg, s)
		}
		if err := c.Assert(call.Argument(0).ToBoolean(), msg...); err != nil {
			b.throw(err.Error())
		}
		return goja.Undefined()
	})
	_ = obj.Set("exit", func(goja.FunctionCall) goja.Value {
		c.Exit()
		return goja.Undefined()
	})
	return obj
}

func (b *binding) log(call goja.FunctionCall) goja.Value {
	args := make([]any, len(call.Arguments))
	for i, arg := range call.Arguments {
		args[i] = export(arg)
	}
	b.sctx.Client.Log(args...)
	return goja.Undefined()
}

func (b *binding) console() *goja.Object {
	obj := b.vm.NewObject()
	_ = obj.Set("log", b.log)
	return obj
}

func (b *binding) header(h http.Header) *goja.Object {
	obj := b.vm.NewObject()
	_ = obj.Set("name", h.Name)
	_ = obj.Set("value", func(goja.FunctionCall) goja.Value {
		return b.vm.ToValue(h.Value)
	})
	return obj
}

func (b *binding) request(r *http.Request) *goja.Object {
	vm := b.vm

	headers := vm.NewObject()
	_ = headers.Set("all", func(goja.FunctionCall) goja.Value {
		all := r.Headers.All()
		items := make([]any, len(all))
		for i, h := range all {
			items[i] = b.header(h)
		}
		return vm.NewArray(items...)
	})
	_ = headers.Set("findByName", func(call goja.FunctionCall) goja.Value {
		h, ok := r.Headers.FindByName(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		return b.header(h)
	})

	variables := vm.NewObject()
	_ = variables.Set("get", func(call goja.FunctionCall) goja.Value {
		return b.stringOrNull(r.Variables.Get(call.Argument(0).String()))
	})
	_ = variables.Set("set", func(call goja.FunctionCall) goja.Value {
		r.Variables.Set(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})

	environment := vm.NewObject()
	_ = environment.Set("get", func(call goja.FunctionCall) goja.Value {
		return b.stringOrNull(r.Environment.Get(call.Argument(0).String()))
	})

	obj := vm.NewObject()
	_ = obj.Set("method", r.Method)
	_ = obj.Set("url", func(goja.FunctionCall) goja.Value { return vm.ToValue(r.URL()) })
	_ = obj.Set("body", func(goja.FunctionCall) goja.Value { return vm.ToValue(r.Body()) })
	_ = obj.Set("headers", headers)
	_ = obj.Set("variables", variables)
	_ = obj.Set("environment", environment)
	return obj
}

func (b *binding) response(r *http.Response) (*goja.Object, error) {
	vm := b.vm

	headers := vm.NewObject()
	_ = headers.Set("valueOf", func(call goja.FunctionCall) goja.Value {
		return b.stringOrNull(r.ValueOf(call.Argument(0).String()))
	})
	_ = headers.Set("valuesOf", func(call goja.FunctionCall) goja.Value {
		return b.strings(r.ValuesOf(call.Argument(0).String()))
	})

	ct := r.ContentType()
	contentType := vm.NewObject()
	_ = contentType.Set("mimeType", ct.MimeType)
	_ = contentType.Set("charset", ct.Charset)

	body, err := b.body(r)
	if err != nil {
		return nil, err
	}

	obj := vm.NewObject()
	_ = obj.Set("status", r.StatusCode)
	_ = obj.Set("body", body)
	_ = obj.Set("headers", headers)
	_ = obj.Set("contentType", contentType)
	return obj, nil
}

// body decodes JSON bodies into native script objects so that
// JSON.stringify and property enumeration behave as in a browser.
func (b *binding) body(r *http.Response) (goja.Value, error) {
	if r.IsStream() {
		stream, _ := r.BodyValue().(*http.Stream)
		return b.stream(stream), nil
	}
	text := r.BodyString()
	if !r.IsJSON() {
		return b.vm.ToValue(text), nil
	}
	parse, ok := goja.AssertFunction(b.vm.Get("JSON").ToObject(b.vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is not callable")
	}
	v, err := parse(goja.Undefined(), b.vm.ToValue(text))
	if err != nil {
		return b.vm.ToValue(text), nil
	}
	return v, nil
}

func (b *binding) stream(s *http.Stream) *goja.Object {
	vm := b.vm

	// subscribe drives one consumption of s and re-raises the first error
	// a script callback threw.
	subscribe := func(call goja.FunctionCall, consume func(deliver func(args ...goja.Value) bool, finish func()) error) goja.Value {
		sub, hasSub := goja.AssertFunction(call.Argument(0))
		fin, hasFin := goja.AssertFunction(call.Argument(1))

		var scriptErr error
		deliver := func(args ...goja.Value) bool {
			if scriptErr != nil || !hasSub {
				return false
			}
			if _, err := sub(goja.Undefined(), args...); err != nil {
				scriptErr = err
				return false
			}
			return true
		}
		finish := func() {
			if !hasFin || scriptErr != nil {
				return
			}
			if _, err := fin(goja.Undefined()); err != nil {
				scriptErr = err
			}
		}

		if err := consume(deliver, finish); err != nil && scriptErr == nil {
			scriptErr = err
		}
		if scriptErr != nil {
			b.rethrow(scriptErr)
		}
		return goja.Undefined()
	}

	obj := vm.NewObject()
	_ = obj.Set("onEachLine", func(call goja.FunctionCall) goja.Value {
		return subscribe(call, func(deliver func(...goja.Value) bool, finish func()) error {
			return s.OnEachLine(func(line any, unsubscribe func()) {
				if !deliver(vm.ToValue(line), vm.ToValue(unsubscribe)) {
					unsubscribe()
				}
			}, finish)
		})
	})
	_ = obj.Set("onEachMessage", func(call goja.FunctionCall) goja.Value {
		return subscribe(call, func(deliver func(...goja.Value) bool, finish func()) error {
			return s.OnEachMessage(func(message any, unsubscribe func(), output func(string)) {
				out := goja.Undefined()
				if output != nil {
					out = vm.ToValue(output)
				}
				if !deliver(vm.ToValue(message), vm.ToValue(unsubscribe), out) {
					unsubscribe()
				}
			}, finish)
		})
	})
	return obj
}

func (b *binding) jsonPath(call goja.FunctionCall) goja.Value {
	v, ok, err := jsonpath.Eval(export(call.Argument(0)), call.Argument(1).String())
	if err != nil {
		b.throw(err.Error())
	}
	if !ok {
		return goja.Null()
	}
	return b.vm.ToValue(v)
}
