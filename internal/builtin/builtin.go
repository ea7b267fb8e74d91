// Package builtin registers the commands corral ships with: cluster
// inspection, config store access, usage help, and version reporting.
//
// The commands are plain registry entries; nothing here is privileged.
// Deployments can unregister or override any of them the same way they
// install their own commands.
package builtin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/corralhq/corral/internal/command"
	"github.com/corralhq/corral/internal/writer"
)

// DefaultFanoutTimeout is the per-node timeout in seconds applied to
// "--all" fan-out when the caller does not pass --timeout.
const DefaultFanoutTimeout = 10

// RemoteExecutor runs argv against one node's agent API and returns the
// remote exit code plus captured stdout. Wired by the binary; nil disables
// "--all" fan-out.
type RemoteExecutor func(node command.Node, argv []string, timeout int) (int, string, error)

// Options carries the pieces of the host binary the builtin commands need.
type Options struct {
	Version string         // reported by the version command
	Exec    RemoteExecutor // remote execution for --all fan-out
}

// Register installs the builtin commands and their usage text.
func Register(r *command.Registry, opts Options) error {
	b := &builtins{registry: r, opts: opts}

	entries := []struct {
		pattern string
		keys    []command.KeySpec
		flags   []command.FlagSpec
		handler command.Handler
	}{
		{"cluster status", nil, nil, b.clusterStatus},
		{"cluster nodes", []command.KeySpec{
			{Name: "name", Type: command.StringType},
		}, nil, b.clusterNodes},
		{"config get", []command.KeySpec{
			{Name: "key", Type: command.StringType, Required: true},
		}, nil, b.configGet},
		{"config set", []command.KeySpec{
			{Name: "key", Type: command.StringType, Required: true},
			{Name: "value", Type: command.StringType, Required: true},
		}, nil, b.configSet},
		{"version", nil, nil, b.version},
		{"help", []command.KeySpec{
			{Name: command.Wildcard},
		}, nil, b.help},
	}

	for _, e := range entries {
		if err := r.RegisterCommand(e.pattern, e.keys, e.flags, e.handler); err != nil {
			return fmt.Errorf("failed to register %q: %w", e.pattern, err)
		}
	}

	registerUsage(r)
	return nil
}

func registerUsage(r *command.Registry) {
	r.RegisterUsage(nil, strings.TrimSpace(`
corralctl drives a corral cluster.

Commands:
  cluster status           Cluster health summary
  cluster nodes [name]     List cluster nodes, optionally one by name
  config get <key>         Read a config value
  config set <key> <value> Write a whitelisted config value
  version                  Show version information
  help [command]           Show usage for a command

Global flags:
  --all              Run the command on every cluster node
  --format=<name>    Output format (human, json)
  --timeout=<secs>   Remote call timeout
`)+"\n")

	r.RegisterUsage([]string{"cluster"}, strings.TrimSpace(`
Usage: corralctl cluster <status|nodes>

  cluster status           Cluster health summary
  cluster nodes [name]     List cluster nodes, optionally one by name
`)+"\n")

	r.RegisterUsage([]string{"config"}, strings.TrimSpace(`
Usage: corralctl config <get|set>

  config get <key>          Read a config value
  config set <key> <value>  Write a config value (whitelisted keys only)
`)+"\n")
}

type builtins struct {
	registry *command.Registry
	opts     Options
}

// clusterStatus summarizes cluster membership. With --all it re-runs itself
// on every node and aggregates the per-node results into a table.
func (b *builtins) clusterStatus(inv *command.Invocation) (*command.Status, error) {
	if inv.Args.Globals.All {
		return b.fanOut(inv)
	}

	nodes, err := inv.Registry.FindNodes()
	if err != nil {
		return nil, fmt.Errorf("cluster membership unavailable: %w", err)
	}

	return command.OK(map[string]string{
		"nodes":  strconv.Itoa(len(nodes)),
		"status": "healthy",
	}), nil
}

// fanOut runs the invoking command path on every cluster node and collects
// exit codes and output. Per-node failures degrade to a row in the result
// rather than failing the whole invocation.
func (b *builtins) fanOut(inv *command.Invocation) (*command.Status, error) {
	if b.opts.Exec == nil {
		return nil, fmt.Errorf("remote execution is not configured")
	}

	nodes, err := inv.Registry.FindNodes()
	if err != nil {
		return nil, fmt.Errorf("cluster membership unavailable: %w", err)
	}

	timeout := inv.Args.Globals.Timeout
	if timeout <= 0 {
		timeout = DefaultFanoutTimeout
	}

	table := writer.Table{Header: []string{"NODE", "EXIT", "OUTPUT"}}
	failures := 0

	for _, node := range nodes {
		exitCode, stdout, err := b.opts.Exec(node, inv.Path, timeout)
		if err != nil {
			failures++
			table.Rows = append(table.Rows, []string{node.Name, "-", err.Error()})
			continue
		}
		if exitCode != 0 {
			failures++
		}
		table.Rows = append(table.Rows,
			[]string{node.Name, strconv.Itoa(exitCode), strings.TrimSpace(stdout)})
	}

	if failures > 0 {
		return command.Tagged(table, 1, ""), nil
	}
	return command.OK(table), nil
}

// clusterNodes lists cluster members from the node finder, optionally
// filtered to a single name.
func (b *builtins) clusterNodes(inv *command.Invocation) (*command.Status, error) {
	nodes, err := inv.Registry.FindNodes()
	if err != nil {
		return nil, fmt.Errorf("cluster membership unavailable: %w", err)
	}

	name := inv.Args.String("name")
	if name != "" {
		for _, node := range nodes {
			if node.Name == name {
				return command.OK(map[string]string{
					"name":    node.Name,
					"address": node.Addr,
				}), nil
			}
		}
		return nil, fmt.Errorf("no such node: %s", name)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })

	table := writer.Table{Header: []string{"NAME", "ADDRESS"}}
	for _, node := range nodes {
		table.Rows = append(table.Rows, []string{node.Name, node.Addr})
	}

	return command.OK(table), nil
}

func (b *builtins) configGet(inv *command.Invocation) (*command.Status, error) {
	key := inv.Args.String("key")

	value, err := inv.Registry.GetConfig(key)
	if err != nil {
		return nil, err
	}

	return command.OK(value), nil
}

func (b *builtins) configSet(inv *command.Invocation) (*command.Status, error) {
	key := inv.Args.String("key")
	value := inv.Args.String("value")

	if err := inv.Registry.SetConfig(key, value); err != nil {
		return nil, err
	}

	return command.OK(fmt.Sprintf("updated %s", key)), nil
}

// version reports build identity as a tagged status so --format applies.
func (b *builtins) version(inv *command.Invocation) (*command.Status, error) {
	return command.Tagged(map[string]string{"version": b.opts.Version}, 0, ""), nil
}

// help resolves usage text for the requested command path, falling back to
// root usage for an empty path.
func (b *builtins) help(inv *command.Invocation) (*command.Status, error) {
	path := inv.Args.Extra

	text, ok := inv.Registry.ResolveUsage(path)
	if !ok {
		return nil, fmt.Errorf("no usage available for: %s", strings.Join(path, " "))
	}

	return command.OK(strings.TrimRight(text, "\n")), nil
}
