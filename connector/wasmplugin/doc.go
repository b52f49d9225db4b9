// Package wasmplugin runs bridge connectors shipped as core wasm modules.
//
// A connector module exports:
//
//	memory
//	alloc(size i32) i32
//	init() i32
//	connect(url, session, codeServer, module, version: ptr i32, len i32 each) i32
//	disconnect()            optional
//
// and may import bridge.disconnected() to report that the code server closed
// the link. Strings are UTF-8 written into guest memory obtained from alloc.
package wasmplugin
