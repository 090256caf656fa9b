package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/Chab-algo/praxia/internal/engine/ratelimit"
	"github.com/Chab-algo/praxia/pkg/api"
)

type runFlags struct {
	workflow string
	input    string
	caller   string
	tier     string
}

var (
	ErrReadWorkflow  = errors.New("failed to read workflow")
	ErrParseWorkflow = errors.New("failed to parse workflow")
	ErrInvalidInput  = errors.New("input must be a JSON object")
)

func newRunCmd() *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a workflow file once and print the result",
		Example: `  praxia run -w review.yaml -i '{"text":"great product"}' \
    --caller acme --tier pro`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.workflow, "workflow", "w", "", "workflow YAML file")
	fl.StringVarP(&f.input, "input", "i", "{}", "input variables as JSON")
	fl.StringVar(&f.caller, "caller", string(ratelimit.AnonymousCaller),
		"caller identity used for rate limiting")
	fl.StringVar(&f.tier, "tier", string(api.TierTrial), "caller plan tier")
	_ = cmd.MarkFlagRequired("workflow")
	return cmd
}

func runWorkflow(cmd *cobra.Command, f *runFlags) error {
	wf, err := loadWorkflow(f.workflow)
	if err != nil {
		return err
	}
	input, err := parseInput(f.input)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(os.Stderr, cfg)

	d, err := newDeps(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.engine.Execute(cmd.Context(), wf, input,
		api.CallerID(f.caller), api.Tier(f.tier),
	)
	if err != nil {
		var exErr *api.ExecutionError
		if errors.As(err, &exErr) && exErr.Result != nil {
			_ = writeJSON(cmd.OutOrStdout(), exErr.Result)
		}
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}

func loadWorkflow(path string) (*api.WorkflowSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadWorkflow, err)
	}
	var wf api.WorkflowSpec
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseWorkflow, err)
	}
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	return &wf, nil
}

func parseInput(raw string) (api.Args, error) {
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, raw)
	}
	obj, ok := gjson.Parse(raw).Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, raw)
	}
	res := make(api.Args, len(obj))
	for k, v := range obj {
		res[api.Name(k)] = v
	}
	return res, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
