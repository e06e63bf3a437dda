package script

import (
	"github.com/dop251/goja"

	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
	"github.com/abdul-hamid-achik/hitscript/packages/urlsearch"
)

// newURLSearchParams is the URLSearchParams constructor. It accepts a query
// string, a plain object, an array of [name, value] pairs, or another
// URLSearchParams.
func (b *binding) newURLSearchParams(call goja.ConstructorCall) *goja.Object {
	p := b.paramsFrom(call.Argument(0))
	b.bindParams(call.This, p)
	return nil
}

func (b *binding) paramsFrom(init goja.Value) *urlsearch.Params {
	if init == nil || goja.IsUndefined(init) || goja.IsNull(init) {
		return urlsearch.New()
	}
	obj, isObject := init.(*goja.Object)
	if !isObject {
		return urlsearch.Parse(init.String())
	}
	if _, ok := goja.AssertFunction(obj.Get("append")); ok {
		return urlsearch.Parse(obj.String())
	}

	switch v := obj.Export().(type) {
	case []any:
		p := urlsearch.New()
		for _, item := range v {
			pair, ok := item.([]any)
			if !ok || len(pair) != 2 {
				panic(b.vm.NewTypeError("URLSearchParams: each pair must have exactly two items"))
			}
			p.Append(session.FormatValue(pair[0]), session.FormatValue(pair[1]))
		}
		return p
	case map[string]any:
		m := make(map[string]string, len(v))
		for k, val := range v {
			m[k] = session.FormatValue(val)
		}
		return urlsearch.FromMap(m)
	default:
		return urlsearch.Parse(init.String())
	}
}

func (b *binding) bindParams(obj *goja.Object, p *urlsearch.Params) {
	vm := b.vm

	_ = obj.DefineAccessorProperty("size", vm.ToValue(func(goja.FunctionCall) goja.Value {
		return vm.ToValue(p.Size())
	}), nil, goja.FLAG_TRUE, goja.FLAG_FALSE)

	_ = obj.Set("append", func(call goja.FunctionCall) goja.Value {
		p.Append(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if value, ok := optionalString(call.Argument(1)); ok {
			p.Delete(name, value)
		} else {
			p.Delete(name)
		}
		return goja.Undefined()
	})
	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		return b.stringOrNull(p.Get(call.Argument(0).String()))
	})
	_ = obj.Set("getAll", func(call goja.FunctionCall) goja.Value {
		return b.strings(p.GetAll(call.Argument(0).String()))
	})
	_ = obj.Set("has", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if value, ok := optionalString(call.Argument(1)); ok {
			return vm.ToValue(p.Has(name, value))
		}
		return vm.ToValue(p.Has(name))
	})
	_ = obj.Set("set", func(call goja.FunctionCall) goja.Value {
		p.Set(call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("sort", func(goja.FunctionCall) goja.Value {
		p.Sort()
		return goja.Undefined()
	})
	_ = obj.Set("toString", func(goja.FunctionCall) goja.Value {
		return vm.ToValue(p.String())
	})
	_ = obj.Set("entries", func(goja.FunctionCall) goja.Value {
		return b.entries(p)
	})
	_ = obj.Set("keys", func(goja.FunctionCall) goja.Value {
		return b.strings(p.Keys())
	})
	_ = obj.Set("values", func(goja.FunctionCall) goja.Value {
		return b.strings(p.Values())
	})
	// The callback receives (name, value, params).
	_ = obj.Set("forEach", func(call goja.FunctionCall) goja.Value {
		fn, ok := goja.AssertFunction(call.Argument(0))
		if !ok {
			panic(vm.NewTypeError("URLSearchParams.forEach: callback is not a function"))
		}
		for _, pair := range p.Entries() {
			if _, err := fn(goja.Undefined(), vm.ToValue(pair.Name), vm.ToValue(pair.Value), obj); err != nil {
				b.rethrow(err)
				break
			}
		}
		return goja.Undefined()
	})
	_ = obj.SetSymbol(goja.SymIterator, func(goja.FunctionCall) goja.Value {
		arr := b.entries(p)
		iter, ok := goja.AssertFunction(arr.GetSymbol(goja.SymIterator))
		if !ok {
			panic(vm.NewTypeError("URLSearchParams: entries are not iterable"))
		}
		v, err := iter(arr)
		if err != nil {
			b.rethrow(err)
			return goja.Undefined()
		}
		return v
	})
}

func (b *binding) entries(p *urlsearch.Params) *goja.Object {
	pairs := p.Entries()
	items := make([]any, len(pairs))
	for i, pair := range pairs {
		items[i] = b.vm.NewArray(pair.Name, pair.Value)
	}
	return b.vm.NewArray(items...)
}
