package workflow

import (
	"context"
	"fmt"

	"nextcloud-stress/internal/stress"
	"nextcloud-stress/internal/webdav"
)

// NodeOutcome is one node's result of a maintenance command.
type NodeOutcome struct {
	Node  string
	URL   string
	Stats stress.PhaseStats
	Err   error
}

// NodeStatus is one node's status.php and capabilities.
type NodeStatus struct {
	Node    string
	URL     string
	Status  *webdav.StatusResponse
	Version string
	Err     error
}

// Status probes status.php and the capabilities of every node.
func Status(ctx context.Context, deps Deps) []NodeStatus {
	var out []NodeStatus

	for _, node := range deps.nodes() {
		ns := NodeStatus{Node: node}

		client, url, err := deps.Client(ctx, node)
		ns.URL = url
		if err != nil {
			ns.Err = err
			out = append(out, ns)
			continue
		}

		if ns.Status, err = client.GetStatus(ctx); err != nil {
			ns.Err = fmt.Errorf("status.php: %w", err)
		} else if caps, err := client.GetCapabilities(ctx); err != nil {
			ns.Err = fmt.Errorf("capabilities: %w", err)
		} else {
			ns.Version = caps.Ocs.Data.Version.String
		}

		out = append(out, ns)
	}

	return out
}

// EmptyTrash deletes the configured trash folder contents of every node's
// trash bin.
func EmptyTrash(ctx context.Context, deps Deps) []NodeOutcome {
	cfg := deps.Config

	return deps.eachNode(ctx, func(ctx context.Context, node string, client *webdav.Client) (stress.PhaseStats, error) {
		return stress.EmptyTrash(ctx, client.Trashbin(), cfg.Trash.Folder, cfg.Trash.MaxDeletes, cfg.WaveTimeout, deps.logger().With("node", node))
	})
}

// Clean empties every node's account apart from the excluded folders, whose
// contents are removed instead.
func Clean(ctx context.Context, deps Deps) []NodeOutcome {
	cfg := deps.Config

	return deps.eachNode(ctx, func(ctx context.Context, node string, client *webdav.Client) (stress.PhaseStats, error) {
		return stress.Clean(ctx, client, cfg.Clean.Exclude, cfg.Clean.MaxDeletes, cfg.WaveTimeout, deps.logger().With("node", node))
	})
}

func (d Deps) eachNode(ctx context.Context, fn func(context.Context, string, *webdav.Client) (stress.PhaseStats, error)) []NodeOutcome {
	var out []NodeOutcome

	for _, node := range d.nodes() {
		if ctx.Err() != nil {
			break
		}

		client, url, err := d.Client(ctx, node)
		if err != nil {
			out = append(out, NodeOutcome{Node: node, URL: url, Err: err})
			continue
		}

		stats, err := fn(ctx, node, client)
		if err == nil {
			err = stats.Err()
		}
		out = append(out, NodeOutcome{Node: node, URL: url, Stats: stats, Err: err})
	}

	return out
}
