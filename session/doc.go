// Package session holds the state shared by every module bootstrapped into
// one host page and the bridge session that links the page to a code server.
//
// PageState is created once per top-level page and passed to each bootstrap
// call. It owns:
//   - the session identity, generated on first use and reused afterwards
//   - registries of scripts and stylesheets already injected into the page
//   - a counter handing out module ids
//
// Session tracks one dev-mode connection:
//
//	Idle -> Probing -> Connected -> Disconnected
//	           \-> Failed
//
// The disconnect handler attached to a session fires at most once.
package session
