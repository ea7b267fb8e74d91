package command

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/corralhq/corral/internal/validate"
)

// Handler is the callback bound to a command pattern, invoked with the
// matched path and validated arguments. Handlers return one of the three
// status shapes or an error, which the dispatcher wraps into an error status.
type Handler func(inv *Invocation) (*Status, error)

// Invocation carries everything a handler needs: the argv prefix that matched
// the pattern, the validated arguments, and the registry for collaborator
// lookups (node finder, config callbacks).
type Invocation struct {
	Path     []string
	Args     *ParsedArgs
	Registry *Registry
}

// Writer renders a status into a (stdout, stderr) text pair for one named
// output format. Writers own the rendering semantics of payload contents;
// the framework only routes the two streams.
type Writer func(status *Status, path []string) (stdout, stderr string, err error)

// Node is one cluster member as reported by the node finder, addressed by
// its agent endpoint.
type Node struct {
	Name string
	Addr string // host:port of the node's agent API
}

// NodeFinder supplies the current set of cluster member nodes for
// "--all"-style fan-out. A single finder is active at a time.
type NodeFinder func() ([]Node, error)

// ConfigEntry binds a config key to its get/set callbacks and an optional
// display formatter. The storage behind the callbacks is an external
// collaborator; the framework only enforces the whitelist contract.
type ConfigEntry struct {
	Get    func(key string) (string, error)
	Set    func(key, value string) error
	Format func(key, raw string) string // optional, for display
}

// CommandEntry is one registered command: its pattern, declared argument
// specs, and handler.
type CommandEntry struct {
	Pattern Pattern
	Keys    []KeySpec
	Flags   []FlagSpec
	Handler Handler
}

// Registry is the process-wide store of commands, writers, usage text,
// config callbacks, the settable-key whitelist, and the node finder.
// Entries live for the process lifetime and are removed only by explicit
// unregistration. Each table takes its own lock; reads dominate writes and
// no lock is held across a remote call.
type Registry struct {
	cmdMu    sync.RWMutex
	commands map[string]*CommandEntry

	writerMu sync.RWMutex
	writers  map[string]Writer

	usageMu sync.RWMutex
	usage   map[string]string // joined path prefix -> help text

	configMu  sync.RWMutex
	config    map[string]*ConfigEntry
	whitelist map[string]string // settable key -> owning application

	finderMu sync.RWMutex
	finder   NodeFinder
}

// NewRegistry creates an empty registry. Applications typically create one at
// startup, hand it to plugin registration functions, and tear it down at
// process exit.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]*CommandEntry),
		writers:   make(map[string]Writer),
		usage:     make(map[string]string),
		config:    make(map[string]*ConfigEntry),
		whitelist: make(map[string]string),
	}
}

// RegisterCommand binds a pattern to a handler with its key and flag specs.
// The pattern string is the unique table key: registering an existing pattern
// replaces the prior entry and subsequent invocations use the new handler.
func (r *Registry) RegisterCommand(pattern string, keys []KeySpec, flags []FlagSpec, handler Handler) error {
	parsed := ParsePattern(pattern)
	if len(parsed) == 0 {
		return fmt.Errorf("command pattern cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("handler cannot be nil for pattern %q", pattern)
	}

	entry := &CommandEntry{
		Pattern: parsed,
		Keys:    keys,
		Flags:   flags,
		Handler: handler,
	}

	r.cmdMu.Lock()
	r.commands[parsed.String()] = entry
	r.cmdMu.Unlock()
	return nil
}

// UnregisterCommand removes the entry for the given pattern, if present.
func (r *Registry) UnregisterCommand(pattern string) {
	key := ParsePattern(pattern).String()
	r.cmdMu.Lock()
	delete(r.commands, key)
	r.cmdMu.Unlock()
}

// Commands returns a snapshot of all registered entries, ordered by pattern
// string for deterministic listings.
func (r *Registry) Commands() []*CommandEntry {
	r.cmdMu.RLock()
	entries := make([]*CommandEntry, 0, len(r.commands))
	for _, entry := range r.commands {
		entries = append(entries, entry)
	}
	r.cmdMu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Pattern.String() < entries[j].Pattern.String()
	})
	return entries
}

// RegisterWriter binds an output format name to a rendering function.
// Re-registering a name replaces the prior writer.
func (r *Registry) RegisterWriter(format string, w Writer) error {
	if err := validate.RegistryNameFormat(format); err != nil {
		return fmt.Errorf("invalid format name: %w", err)
	}
	if w == nil {
		return fmt.Errorf("writer cannot be nil for format %q", format)
	}

	r.writerMu.Lock()
	r.writers[format] = w
	r.writerMu.Unlock()
	return nil
}

// UnregisterWriter removes the writer for the given format name, if present.
func (r *Registry) UnregisterWriter(format string) {
	r.writerMu.Lock()
	delete(r.writers, format)
	r.writerMu.Unlock()
}

// LookupWriter returns the writer for the given format name. A status always
// resolves to exactly one writer or fails closed with a RenderingError.
func (r *Registry) LookupWriter(format string) (Writer, error) {
	r.writerMu.RLock()
	w, ok := r.writers[format]
	r.writerMu.RUnlock()

	if !ok {
		return nil, &RenderingError{Format: format}
	}
	return w, nil
}

// RegisterUsage binds help text to a command path prefix. Multiple entries
// may share a prefix; resolution returns the longest matching one. Usage
// registration is independent of command registration: a path may carry
// usage text without an executable command, and vice versa.
func (r *Registry) RegisterUsage(path []string, text string) {
	r.usageMu.Lock()
	r.usage[strings.Join(path, " ")] = text
	r.usageMu.Unlock()
}

// UnregisterUsage removes the usage entry for the exact path, if present.
func (r *Registry) UnregisterUsage(path []string) {
	r.usageMu.Lock()
	delete(r.usage, strings.Join(path, " "))
	r.usageMu.Unlock()
}

// RegisterConfig binds a config key to its callbacks. The key must be a
// dotted path of registry-safe segments.
func (r *Registry) RegisterConfig(key string, entry *ConfigEntry) error {
	if err := validate.ConfigKeyFormat(key); err != nil {
		return err
	}
	if entry == nil || entry.Get == nil {
		return fmt.Errorf("config entry for %q must carry a get callback", key)
	}

	r.configMu.Lock()
	r.config[key] = entry
	r.configMu.Unlock()
	return nil
}

// UnregisterConfig removes the callbacks for the given key, if present.
// The key also leaves the whitelist so a later re-registration starts closed.
func (r *Registry) UnregisterConfig(key string) {
	r.configMu.Lock()
	delete(r.config, key)
	delete(r.whitelist, key)
	r.configMu.Unlock()
}

// LookupConfig returns the callbacks for the given key.
func (r *Registry) LookupConfig(key string) (*ConfigEntry, bool) {
	r.configMu.RLock()
	entry, ok := r.config[key]
	r.configMu.RUnlock()
	return entry, ok
}

// RegisterWhitelist marks config keys as settable on behalf of the declaring
// application. Every named key must already be registered; unknown keys fail
// the whole registration and are returned in the error's key list, leaving
// the whitelist unchanged.
func (r *Registry) RegisterWhitelist(app string, keys []string) error {
	r.configMu.Lock()
	defer r.configMu.Unlock()

	var unknown []string
	for _, key := range keys {
		if _, ok := r.config[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return &ConfigError{
			Reason: fmt.Sprintf("whitelist for %q names unregistered config keys", app),
			Keys:   unknown,
		}
	}

	for _, key := range keys {
		r.whitelist[key] = app
	}
	return nil
}

// IsWhitelisted reports whether the key may be mutated. Keys default to
// denied until an application whitelists them.
func (r *Registry) IsWhitelisted(key string) bool {
	r.configMu.RLock()
	_, ok := r.whitelist[key]
	r.configMu.RUnlock()
	return ok
}

// SetConfig mutates a config key through its registered set callback,
// enforcing the fail-closed whitelist before any callback runs.
func (r *Registry) SetConfig(key, value string) error {
	if !r.IsWhitelisted(key) {
		return &ConfigError{Reason: "config key is not whitelisted for mutation", Keys: []string{key}}
	}

	entry, ok := r.LookupConfig(key)
	if !ok {
		return &ConfigError{Reason: "unknown config key", Keys: []string{key}}
	}
	if entry.Set == nil {
		return &ConfigError{Reason: "config key is read-only", Keys: []string{key}}
	}
	return entry.Set(key, value)
}

// GetConfig reads a config key through its registered get callback, applying
// the display formatter when one was registered.
func (r *Registry) GetConfig(key string) (string, error) {
	entry, ok := r.LookupConfig(key)
	if !ok {
		return "", &ConfigError{Reason: "unknown config key", Keys: []string{key}}
	}

	raw, err := entry.Get(key)
	if err != nil {
		return "", err
	}
	if entry.Format != nil {
		return entry.Format(key, raw), nil
	}
	return raw, nil
}

// SetNodeFinder installs the node-membership source used for "--all" fan-out.
// A single finder is active at a time; installing nil removes it.
func (r *Registry) SetNodeFinder(f NodeFinder) {
	r.finderMu.Lock()
	r.finder = f
	r.finderMu.Unlock()
}

// FindNodes returns the current cluster member set from the active node
// finder, or an error when no finder is installed.
func (r *Registry) FindNodes() ([]Node, error) {
	r.finderMu.RLock()
	f := r.finder
	r.finderMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("no node finder registered")
	}
	return f()
}
