package command

import "fmt"

// Execute invokes the matched handler synchronously with the path, keys, and
// flags. The dispatcher's only duty is uniform status shaping: a nil status
// with a nil error becomes an error status, handler errors and panics are
// wrapped into the error status shape, and no retry policy is applied here.
// Retries, if any, belong to the handler, as does multi-node fan-out via the
// node finder when the global --all flag is set.
func (r *Registry) Execute(entry *CommandEntry, path []string, args *ParsedArgs) (status *Status) {
	defer func() {
		if rec := recover(); rec != nil {
			status = Failf("handler panic for %q: %v", entry.Pattern.String(), rec)
		}
	}()

	inv := &Invocation{
		Path:     path,
		Args:     args,
		Registry: r,
	}

	result, err := entry.Handler(inv)
	if err != nil {
		return Fail(err)
	}
	if result == nil {
		return Failf("handler for %q returned no status", entry.Pattern.String())
	}
	return result
}

// Runner ties a registry to an output pipeline, providing the two process
// entry points: Run for raw argv invocation and Print for rendering a status
// or usage text on behalf of a handler.
type Runner struct {
	Registry *Registry
	Pipeline *Pipeline
}

// NewRunner creates a runner with a local-delivery pipeline. Distributed
// deployments swap in a remote error-stream deliverer and origin resolver on
// the pipeline before first use.
func NewRunner(r *Registry) *Runner {
	return &Runner{
		Registry: r,
		Pipeline: NewPipeline(r),
	}
}

// Run accepts the raw argument sequence exactly as split from a shell command
// line and drives the full pipeline:
//
//	match -> parse -> extract-global-flags -> validate -> execute -> render -> deliver
//
// Returns the process exit status: 0 for success, or the failure exit code.
// Matcher and parser errors abort before any handler executes.
func (rn *Runner) Run(argv []string) int {
	entry, remaining, err := rn.Registry.Match(argv)
	if err != nil {
		return rn.PrintError(err, argv)
	}

	path := argv[:len(entry.Pattern)]
	args, err := Parse(entry, remaining)
	if err != nil {
		return rn.PrintError(err, path)
	}

	status := rn.Registry.Execute(entry, path, args)
	return rn.Print(status, path, args.Globals.Format)
}

// Print renders and delivers a status for the given invoking path, honoring
// the preferred format for statuses that do not carry their own. Returns the
// final exit code.
func (rn *Runner) Print(status *Status, path []string, preferredFormat string) int {
	return rn.Pipeline.RenderAndDeliver(status, path, preferredFormat)
}

// PrintError wraps an error into the error status shape and prints it.
// Error statuses always render through the human writer with exit code 1.
func (rn *Runner) PrintError(err error, path []string) int {
	return rn.Pipeline.RenderAndDeliver(Fail(err), path, "")
}

// PrintUsage resolves and prints the usage text for the given command path.
// When no registered prefix matches, a generic fallback is printed instead.
// Usage printing always succeeds with exit code 0.
func (rn *Runner) PrintUsage(path []string) int {
	text, ok := rn.Registry.ResolveUsage(path)
	if !ok {
		text = fmt.Sprintf("no usage available for: %s", joinPath(path))
	}
	rn.Pipeline.writeStdout(text + "\n")
	return 0
}

func joinPath(path []string) string {
	if len(path) == 0 {
		return "(root)"
	}
	out := path[0]
	for _, p := range path[1:] {
		out += " " + p
	}
	return out
}
