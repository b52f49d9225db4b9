// Package guest assembles small core wasm modules that play the plugin side
// of the bridge.
package guest

import (
	"github.com/tetratelabs/wazero/api"
)

type funcType struct {
	params  []api.ValueType
	results []api.ValueType
}

type importFunc struct {
	module  string
	name    string
	typeIdx uint32
}

type function struct {
	export  string
	body    []byte
	typeIdx uint32
}

type global struct {
	export  string
	init    int32
	mutable bool
}

// Builder accumulates a module definition. Imports must be added before
// functions so that function indices stay stable.
type Builder struct {
	types        []funcType
	imports      []importFunc
	funcs        []function
	globals      []global
	memoryExport string
	memoryPages  uint32
}

// New creates an empty builder.
func New() *Builder {
	return &Builder{}
}

func (b *Builder) addType(params, results []api.ValueType) uint32 {
	b.types = append(b.types, funcType{params: params, results: results})
	return uint32(len(b.types) - 1)
}

// ImportFunc imports a host function and returns its function index.
func (b *Builder) ImportFunc(module, fn string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("guest: imports must precede functions")
	}
	b.imports = append(b.imports, importFunc{
		module:  module,
		name:    fn,
		typeIdx: b.addType(params, results),
	})
	return uint32(len(b.imports) - 1)
}

// Memory defines a memory of pages 64KiB pages exported under export.
func (b *Builder) Memory(pages uint32, export string) *Builder {
	b.memoryPages = pages
	b.memoryExport = export
	return b
}

// GlobalI32 defines an i32 global and returns its index. An empty export
// keeps it private.
func (b *Builder) GlobalI32(export string, init int32, mutable bool) uint32 {
	b.globals = append(b.globals, global{export: export, init: init, mutable: mutable})
	return uint32(len(b.globals) - 1)
}

// Func defines a function with no locals beyond its parameters. body is the
// instruction sequence without the trailing end opcode. It returns the
// function index.
func (b *Builder) Func(export string, params, results []api.ValueType, body []byte) uint32 {
	b.funcs = append(b.funcs, function{
		export:  export,
		body:    body,
		typeIdx: b.addType(params, results),
	})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(b.types) > 0 {
		wasm = append(wasm, section(0x01, b.typeSection())...)
	}
	if len(b.imports) > 0 {
		wasm = append(wasm, section(0x02, b.importSection())...)
	}
	if len(b.funcs) > 0 {
		wasm = append(wasm, section(0x03, b.funcSection())...)
	}
	if b.memoryPages > 0 {
		mem := []byte{0x01, 0x00}
		mem = append(mem, EncodeULEB128(b.memoryPages)...)
		wasm = append(wasm, section(0x05, mem)...)
	}
	if len(b.globals) > 0 {
		wasm = append(wasm, section(0x06, b.globalSection())...)
	}
	wasm = append(wasm, section(0x07, b.exportSection())...)
	if len(b.funcs) > 0 {
		wasm = append(wasm, section(0x0a, b.codeSection())...)
	}
	return wasm
}

func (b *Builder) typeSection() []byte {
	out := EncodeULEB128(uint32(len(b.types)))
	for _, t := range b.types {
		out = append(out, 0x60)
		out = append(out, EncodeULEB128(uint32(len(t.params)))...)
		for _, p := range t.params {
			out = append(out, valType(p))
		}
		out = append(out, EncodeULEB128(uint32(len(t.results)))...)
		for _, r := range t.results {
			out = append(out, valType(r))
		}
	}
	return out
}

func (b *Builder) importSection() []byte {
	out := EncodeULEB128(uint32(len(b.imports)))
	for _, imp := range b.imports {
		out = append(out, name(imp.module)...)
		out = append(out, name(imp.name)...)
		out = append(out, 0x00)
		out = append(out, EncodeULEB128(imp.typeIdx)...)
	}
	return out
}

func (b *Builder) funcSection() []byte {
	out := EncodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		out = append(out, EncodeULEB128(f.typeIdx)...)
	}
	return out
}

func (b *Builder) globalSection() []byte {
	out := EncodeULEB128(uint32(len(b.globals)))
	for _, g := range b.globals {
		out = append(out, 0x7f)
		if g.mutable {
			out = append(out, 0x01)
		} else {
			out = append(out, 0x00)
		}
		out = append(out, I32Const(g.init)...)
		out = append(out, 0x0b)
	}
	return out
}

func (b *Builder) exportSection() []byte {
	var entries [][]byte
	for i, f := range b.funcs {
		if f.export == "" {
			continue
		}
		e := name(f.export)
		e = append(e, 0x00)
		e = append(e, EncodeULEB128(uint32(len(b.imports)+i))...)
		entries = append(entries, e)
	}
	if b.memoryPages > 0 && b.memoryExport != "" {
		e := name(b.memoryExport)
		e = append(e, 0x02, 0x00)
		entries = append(entries, e)
	}
	for i, g := range b.globals {
		if g.export == "" {
			continue
		}
		e := name(g.export)
		e = append(e, 0x03)
		e = append(e, EncodeULEB128(uint32(i))...)
		entries = append(entries, e)
	}

	out := EncodeULEB128(uint32(len(entries)))
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func (b *Builder) codeSection() []byte {
	out := EncodeULEB128(uint32(len(b.funcs)))
	for _, f := range b.funcs {
		body := []byte{0x00}
		body = append(body, f.body...)
		body = append(body, 0x0b)
		out = append(out, EncodeULEB128(uint32(len(body)))...)
		out = append(out, body...)
	}
	return out
}
