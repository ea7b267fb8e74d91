// Package command implements the Corral command registration and execution
// pipeline: the pattern-matching command registry, the argument parser and
// validator, the usage resolver, and the status rendering pipeline with its
// writer abstraction and dual-stream (stdout/stderr) distributed delivery.
//
// PIPELINE:
//
//	match -> parse -> extract-global-flags -> validate -> execute -> render -> deliver
//
// Operators type a command path plus flags; the framework matches it against
// registered handlers (exact tokens beat wildcard tokens at each position),
// validates arguments against the handler's declared key and flag specs,
// executes the handler, and renders the structured result through a pluggable
// output writer. Standard output is written locally; standard error is
// delivered to the node that issued the command, which may differ from the
// node that executed it.
//
// REGISTRY TABLES:
//   - command pattern -> (handler, key spec, flag spec)
//   - format name     -> writer
//   - path prefix     -> usage text
//   - config key      -> (get/set callback, formatter), plus the settable-key
//     whitelist (deny by default)
//   - the single active node finder
//
// All tables are safe for concurrent reads with occasional writes; plugins
// register entries at load time and invocations look them up concurrently.
// No lock is held across a remote call.
package command
