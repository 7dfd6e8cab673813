// Command onnxgen converts a traced-graph fixture into a portable
// dataflow model.
//
// Usage:
//
//	onnxgen [options] <graph.yaml>
//
// Examples:
//
//	onnxgen model.yaml                          # Convert, write YAML to stdout
//	onnxgen -o model.onnx.yaml model.yaml       # Convert to a file
//	onnxgen --params params.yaml model.yaml     # Attach trained parameters
//	onnxgen --strict model.yaml                 # Fail on unresolved attributes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gotensor/onnxgen"
	"github.com/gotensor/onnxgen/convert"
	"github.com/gotensor/onnxgen/ir"
)

const version = "0.1.0-dev"

type options struct {
	Output        string
	ParamsFile    string
	Strict        bool
	FloatRestrict bool
	Verbose       bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "onnxgen <graph.yaml>",
		Short:         "Convert a traced-graph fixture into a portable dataflow model",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&opts.ParamsFile, "params", "", "trained-parameter file (YAML)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on unresolved attributes instead of substituting sentinels")
	cmd.Flags().BoolVar(&opts.FloatRestrict, "float-restrict", false, "keep float64 constants at full precision")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log conversion warnings to stderr")

	return cmd
}

func run(opts *options, inputPath string) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading graph: %w", err)
	}
	graph, err := ir.Decode(source)
	if err != nil {
		return err
	}

	var params []convert.Parameter
	if opts.ParamsFile != "" {
		if params, err = loadParams(opts.ParamsFile); err != nil {
			return err
		}
	}

	convOpts := convert.DefaultOptions()
	convOpts.StrictAttributes = opts.Strict
	convOpts.FloatRestrict = opts.FloatRestrict
	if opts.Verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()
		convOpts.Logger = logger
	}

	result, err := onnxgen.ConvertWithOptions(graph, params, convOpts)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	out, err := result.Model.EncodeYAML()
	if err != nil {
		return err
	}
	if opts.Output == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(opts.Output, out, 0o644)
}

// paramDoc is one trained parameter in the params file: a model path plus
// a dense payload.
type paramDoc struct {
	Path   string    `yaml:"path"`
	Dtype  string    `yaml:"dtype"`
	Shape  []int64   `yaml:"shape"`
	Floats []float64 `yaml:"floats"`
	Ints   []int64   `yaml:"ints"`
}

func loadParams(path string) ([]convert.Parameter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading params: %w", err)
	}
	var docs []paramDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	params := make([]convert.Parameter, 0, len(docs))
	for _, doc := range docs {
		dt, err := ir.ParseDtype(doc.Dtype)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", doc.Path, err)
		}
		params = append(params, convert.Parameter{
			Path: doc.Path,
			Array: &ir.Array{
				Dtype:  dt,
				Shape:  doc.Shape,
				Floats: doc.Floats,
				Ints:   doc.Ints,
			},
		})
	}
	return params, nil
}
