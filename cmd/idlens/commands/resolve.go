package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"idlens/internal/identity/models"
	"idlens/internal/platform/config"
	"idlens/internal/resolution"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "resolve [identity-key]",
		Short: "Resolve the identity behind a key (default: the configured key)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			key := cfg.IdentityKey
			if len(args) == 1 {
				key = args[0]
			}

			return withApp(cmd.Context(), cfg, log, func(ctx context.Context, a *app) error {
				id, out := a.controller.ResolvePrimary(ctx, key)
				if out.Diagnostic == resolution.MalformedInput {
					return fmt.Errorf("invalid identity key: %v", out.Err)
				}
				if asJSON {
					return writeJSON(cmd, id)
				}

				p := newPrinter(cmd.OutOrStdout())
				if id == nil {
					p.Warning("No identity information found (%s)\n", diagnosticText(out))
					return nil
				}
				p.Success("Resolved Identity Information\n")
				p.Identity(*id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search identities by any attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load(cmd)
			if err != nil {
				return err
			}

			return withApp(cmd.Context(), cfg, log, func(ctx context.Context, a *app) error {
				results, out := a.controller.ResolveSearch(ctx, args[0])
				if asJSON {
					if results == nil {
						results = []models.Identity{}
					}
					return writeJSON(cmd, results)
				}

				p := newPrinter(cmd.OutOrStdout())
				switch {
				case out.Status == resolution.StatusSkipped:
					p.Warning("empty search term, nothing to do\n")
				case out.Status == resolution.StatusFailed:
					p.Warning("search failed (%s)\n", diagnosticText(out))
				case len(results) == 0:
					p.Warning("no identities match %q\n", args[0])
				default:
					p.Success("%d identities match %q\n", len(results), args[0])
					for _, id := range results {
						p.Identity(id)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// withApp wires an app without a server, runs fn, then drains the audit
// worker and releases resources.
func withApp(parent context.Context, cfg config.Server, log *slog.Logger, fn func(context.Context, *app) error) error {
	a, err := newApp(parent, cfg, log, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.audit.Run(ctx)
	}()
	defer func() {
		cancel()
		<-done
		a.close()
	}()

	return fn(parent, a)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func diagnosticText(out resolution.Outcome) string {
	if out.Err != nil {
		return fmt.Sprintf("%s: %v", out.Diagnostic, out.Err)
	}
	return string(out.Diagnostic)
}
