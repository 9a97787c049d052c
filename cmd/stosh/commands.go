package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"stosh/internal/errs"
	"stosh/internal/registry"
	"stosh/internal/runstore"
	"stosh/pkg/stosh"
)

type compileOutput struct {
	Source   string `json:"source"`
	Artifact string `json:"artifact"`
	Built    bool   `json:"built"`
	Target   string `json:"target,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Name     string `json:"name,omitempty"`
}

type sampleOutput struct {
	Artifact   string            `json:"artifact"`
	Params     map[string]string `json:"params,omitempty"`
	OutputDir  string            `json:"output_dir"`
	RunID      string            `json:"run_id,omitempty"`
	DurationMS int64             `json:"duration_ms"`
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newCompileCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:     "compile <model.stan>",
		Short:   "Build the model artifact if missing or stale",
		Example: "  stosh compile examples/bernoulli/bernoulli.stan\n  stosh compile --force model.stan",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := stosh.Compile(cmd.Context(), args[0], append(a.modelOptions(), stosh.WithForce(force))...)
			if err != nil {
				return err
			}
			defer m.Close()
			art := m.Artifact()
			out := compileOutput{
				Source:   art.Source,
				Artifact: art.Path,
				Built:    art.Built,
				Target:   art.Target,
				Strategy: string(art.Strategy),
			}
			out.Name, _ = m.Name()
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Rebuild even if the artifact is fresh")
	return cmd
}

// parseParams turns repeated name=value flags into ordered Params.
func parseParams(raw []string) (stosh.Params, error) {
	var p stosh.Params
	for _, s := range raw {
		k, v, err := stosh.ParseParam(s)
		if err != nil {
			return stosh.Params{}, err
		}
		p.Set(k, v)
	}
	return p, nil
}

// dataSourceFor picks the explicit data file, else a sibling <stem>.data.json,
// else no data.
func dataSourceFor(source, dataPath string) stosh.DataSource {
	if dataPath != "" {
		return stosh.DataFile(dataPath)
	}
	if desc, err := registry.Describe(source); err == nil && desc.DataPath != "" {
		return stosh.DataFile(desc.DataPath)
	}
	return stosh.NoData()
}

func newSampleCmd(a *app) *cobra.Command {
	var (
		dataPath string
		seed     uint32
		force    bool
		rawArgs  []string
	)
	cmd := &cobra.Command{
		Use:   "sample <model.stan>",
		Short: "Compile, load data and run the sampler",
		Example: "  stosh sample bernoulli.stan --data bernoulli.data.json -p num_chains=2 -p warmup=100\n" +
			"  stosh sample model.stan --seed 42 -p adapt=false",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseParams(rawArgs)
			if err != nil {
				return err
			}
			seed = resolveSeed(cmd, seed, a.cfg.DefaultSeed)
			var store *runstore.Store
			if a.cfg.RunsDB != "" {
				if store, err = runstore.Open(a.cfg.RunsDB); err != nil {
					return fmt.Errorf("open run ledger: %w", err)
				}
				defer store.Close()
			}

			m, err := stosh.Compile(cmd.Context(), args[0], append(a.modelOptions(), stosh.WithForce(force))...)
			if err != nil {
				return err
			}
			defer m.Close()
			if err := m.LoadData(dataSourceFor(args[0], dataPath), seed); err != nil {
				return err
			}

			start := time.Now()
			res, sampleErr := m.Sample(params)
			out := sampleOutput{
				Artifact:   m.Artifact().Path,
				Params:     pairsMap(params),
				OutputDir:  res.OutputLocation,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if store != nil {
				run := runstore.Run{
					Model:     registryID(args[0]),
					Artifact:  out.Artifact,
					Params:    out.Params,
					Output:    res.OutputLocation,
					Status:    runstore.StatusOK,
					StartedAt: start,
					Duration:  time.Since(start),
				}
				if sampleErr != nil {
					run.Status = runstore.StatusError
					run.ErrorKind = errs.Code(sampleErr)
					run.Error = errs.Message(sampleErr)
				}
				if saved, err := store.Record(cmd.Context(), run); err != nil {
					a.log.Warn().Err(err).Msg("record run failed")
				} else {
					out.RunID = saved.ID
				}
			}
			if sampleErr != nil {
				return sampleErr
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataPath, "data", "", "JSON data file (default: sibling <stem>.data.json if present)")
	f.Uint32Var(&seed, "seed", 0, "Random seed (default from config, 12345)")
	f.BoolVar(&force, "force", false, "Rebuild the artifact before sampling")
	f.StringArrayVarP(&rawArgs, "param", "p", nil, "Sampler argument as name=value (repeatable)")
	return cmd
}

// resolveSeed keeps an explicit --seed, zero included, and otherwise falls
// back to the configured default.
func resolveSeed(cmd *cobra.Command, seed, def uint32) uint32 {
	if cmd.Flags().Changed("seed") {
		return seed
	}
	return def
}

func pairsMap(p stosh.Params) map[string]string {
	if p.Len() == 0 {
		return nil
	}
	out := make(map[string]string, p.Len())
	for _, kv := range p.Pairs() {
		out[kv.Key] = kv.Value
	}
	return out
}

func registryID(source string) string {
	if desc, err := registry.Describe(source); err == nil {
		return desc.ID
	}
	return source
}

func newModelsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models [dir]",
		Short: "List model sources in a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.ModelsDir
			if len(args) == 1 {
				dir = args[0]
			}
			models, err := registry.LoadDir(dir)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), models)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCOMPILED\tDATA\tPATH")
			for _, m := range models {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", m.ID, m.Compiled, orDash(m.DataPath), m.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit   int
		session string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recorded sampling runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.RunsDB == "" {
				return fmt.Errorf("no run ledger configured (use --runs-db or STOSH_RUNS_DB)")
			}
			if limit < 0 {
				return fmt.Errorf("--limit must be non-negative")
			}
			store, err := runstore.Open(a.cfg.RunsDB)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()
			runs, err := store.List(cmd.Context(), runstore.ListParams{SessionID: session, Limit: limit})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tMODEL\tSTATUS\tDURATION\tOUTPUT")
			for _, r := range runs {
				detail := r.Output
				if r.Status != runstore.StatusOK {
					detail = r.ErrorKind + ": " + r.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Model, r.Status,
					r.Duration.Round(time.Millisecond), detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", runstore.DefaultListLimit, "Maximum runs to show")
	cmd.Flags().StringVar(&session, "session", "", "Only runs of this session id")
	return cmd
}
