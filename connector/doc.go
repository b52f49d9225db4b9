// Package connector discovers the plugin that bridges a host page to a
// development code server and performs the connect handshake.
//
// Three connector kinds are tried in a fixed order:
//
//	Native  window global __gwt_HostedModePlugin
//	Object  element #pluginObject
//	Embed   element #pluginEmbed
//
// A candidate that is missing, panics, errors or declines Init counts as
// absent and probing moves on. A candidate whose Connect returns false is a
// refusal: discovery stops and a *errors.ConnectionError is returned.
package connector
