package command

import (
	"fmt"
	"io"
	"os"

	"github.com/corralhq/corral/internal/logging"
)

// Origin identifies the node whose terminal issued the current command.
// Execution may migrate to another cluster member, but rendered stderr text
// must reach the issuing node's error stream.
type Origin struct {
	Node string // node name; empty means the local process issued the command
	Addr string // agent endpoint for remote error-stream writes
}

// IsLocal reports whether the command was issued by the local process.
func (o Origin) IsLocal() bool {
	return o.Node == ""
}

// OriginResolver derives the issuing node's identity from the current
// execution context. Step one of the two-step delivery protocol.
type OriginResolver func() Origin

// ErrorStreamDeliverer performs step two of the delivery protocol: a remote
// write of rendered stderr text to the issuing node's error stream. The RPC
// layer transparently redirects only the output stream; the error stream must
// be forwarded explicitly.
type ErrorStreamDeliverer interface {
	DeliverStderr(origin Origin, text string) error
}

// Pipeline converts a status into rendered stdout/stderr text via the
// format-named writer, then delivers stdout locally and stderr to the
// issuing node. In a non-distributed deployment the two-step stderr protocol
// degrades to a direct local write, but the shape remains so a distributed
// transport can be substituted without touching this code.
type Pipeline struct {
	Registry      *Registry
	Stdout        io.Writer
	Stderr        io.Writer // local error stream, used when the origin is local
	ResolveOrigin OriginResolver
	Remote        ErrorStreamDeliverer // used when the origin is a remote node
}

// NewPipeline creates a pipeline with local stream delivery. The default
// origin resolver reports a local origin, which routes stderr straight to
// the process error stream.
func NewPipeline(r *Registry) *Pipeline {
	return &Pipeline{
		Registry:      r,
		Stdout:        os.Stdout,
		Stderr:        os.Stderr,
		ResolveOrigin: func() Origin { return Origin{} },
	}
}

// RenderAndDeliver normalizes a status, renders it through the resolved
// writer, delivers both streams, and returns the final exit code.
//
// Normalization rules:
//   - error status: rendered with the "human" writer unconditionally so the
//     diagnosis is never hidden behind an unavailable formatter; exit code
//     is fixed at 1 and cannot be customized.
//   - tagged status: rendered with its named format's writer; the final exit
//     code is exactly the tagged value.
//   - bare status: rendered with the preferred format (default "human"),
//     exit code 0.
//
// An unregistered format name is a configuration error and fails the whole
// invocation; there is no silent fallback to a default format.
func (p *Pipeline) RenderAndDeliver(status *Status, path []string, preferredFormat string) int {
	format, exitCode := p.normalize(status, preferredFormat)

	writer, err := p.Registry.LookupWriter(format)
	if err != nil {
		p.deliverStderr(fmt.Sprintf("rendering failed: %v\n", err))
		return 1
	}

	stdout, stderr, err := writer(status, path)
	if err != nil {
		p.deliverStderr(fmt.Sprintf("rendering failed for format %q: %v\n", format, err))
		return 1
	}

	if stdout != "" {
		p.writeStdout(stdout)
	}
	if stderr != "" {
		p.deliverStderr(stderr)
	}

	return exitCode
}

// normalize applies the status shape rules and resolves the effective format
// name and exit code.
func (p *Pipeline) normalize(status *Status, preferredFormat string) (string, int) {
	switch {
	case status.IsError():
		return DefaultFormat, 1
	case status.IsTagged():
		format := status.Format
		if format == "" {
			format = preferredFormat
		}
		if format == "" {
			format = DefaultFormat
		}
		return format, status.ExitCode
	default:
		format := preferredFormat
		if format == "" {
			format = DefaultFormat
		}
		return format, 0
	}
}

// writeStdout writes rendered output to the local output stream of the
// invoking process. The RPC layer redirects this stream transparently when
// execution runs remotely.
func (p *Pipeline) writeStdout(text string) {
	if _, err := io.WriteString(p.Stdout, text); err != nil {
		logging.Error("Failed to write command output: %v", err)
	}
}

// deliverStderr routes rendered error text to the issuing node's error
// stream: resolve the origin from the execution context, then write remotely
// when the origin is another node, locally otherwise. A failed remote write
// falls back to the local stream so the text is never lost silently.
func (p *Pipeline) deliverStderr(text string) {
	origin := Origin{}
	if p.ResolveOrigin != nil {
		origin = p.ResolveOrigin()
	}

	if !origin.IsLocal() && p.Remote != nil {
		err := p.Remote.DeliverStderr(origin, text)
		if err == nil {
			return
		}
		logging.Warn("Remote stderr delivery to %s failed: %v", origin.Node, err)
	}

	if _, err := io.WriteString(p.Stderr, text); err != nil {
		logging.Error("Failed to write command error output: %v", err)
	}
}
