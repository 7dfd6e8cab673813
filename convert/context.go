package convert

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gotensor/onnxgen/ir"
	"github.com/gotensor/onnxgen/onnx"
)

// Options configures one conversion.
type Options struct {
	// StrictAttributes aborts the conversion when an attribute expected
	// to be a literal is not statically known. When false (the default),
	// a warning is recorded and a sentinel value is substituted.
	StrictAttributes bool

	// FloatRestrict keeps float64 constants at full precision instead of
	// narrowing them to float32.
	FloatRestrict bool

	// Producer metadata stamped on the emitted model.
	Producer        string
	ProducerVersion string

	// Logger receives recoverable-warning events. Defaults to a no-op
	// logger.
	Logger *zap.Logger

	// Layers maps a framework layer type to its call converter.
	Layers map[string]LayerConverter

	// Functions maps a base-function name to its call converter,
	// bypassing built-in dispatch.
	Functions map[string]FunctionConverter
}

// DefaultOptions returns the options Assemble uses when none are given.
func DefaultOptions() Options {
	return Options{
		Producer:        "onnxgen",
		ProducerVersion: "0.1",
		Logger:          zap.NewNop(),
	}
}

// Warning is a recoverable conversion diagnostic. The conversion continued
// past it, possibly with a sentinel substitute, so the emitted graph may
// not match the traced semantics exactly.
type Warning struct {
	Message string
	Loc     ir.Location
}

func (w Warning) String() string {
	if w.Loc.String() == "" {
		return w.Message
	}
	return w.Message + " at " + w.Loc.String()
}

// context carries all state of one conversion. Constructed fresh per
// Assemble call and discarded at the end.
type context struct {
	opts     Options
	names    *nameRegistry
	tensors  map[string]*onnx.ValueInfo
	inits    *initializerTable
	params   *paramTable
	warnings []Warning
}

func newContext(opts Options) *context {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Producer == "" {
		opts.Producer = "onnxgen"
	}
	if opts.ProducerVersion == "" {
		opts.ProducerVersion = "0.1"
	}
	return &context{
		opts:    opts,
		names:   newNameRegistry(),
		tensors: make(map[string]*onnx.ValueInfo),
		inits:   newInitializerTable(),
		params:  newParamTable(),
	}
}

func (c *context) warnf(loc ir.Location, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.warnings = append(c.warnings, Warning{Message: msg, Loc: loc})
	c.opts.Logger.Warn(msg, zap.String("loc", loc.String()))
}

// narrow applies the float32 narrowing policy to a constant array.
func (c *context) narrow(a *ir.Array) *ir.Array {
	if c.opts.FloatRestrict {
		return a
	}
	return a.Narrow32()
}

// initializerTable collects parameter and placeholder constants in
// registration order; consumed only by top-level graph assembly.
type initializerTable struct {
	order  []string
	byName map[string]*initializerEntry
}

type initializerEntry struct {
	tensor *onnx.Tensor
	info   *onnx.ValueInfo
}

func newInitializerTable() *initializerTable {
	return &initializerTable{byName: make(map[string]*initializerEntry)}
}

func (t *initializerTable) add(name string, tensor *onnx.Tensor, info *onnx.ValueInfo) error {
	if _, ok := t.byName[name]; ok {
		return fmt.Errorf("initializer %q registered twice", name)
	}
	t.byName[name] = &initializerEntry{tensor: tensor, info: info}
	t.order = append(t.order, name)
	return nil
}

func (t *initializerTable) has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// paramTable maps trained-parameter arrays to their registered identifiers
// through a stable handle, so lookups do not lean on address identity at
// the API surface.
type paramTable struct {
	handles map[*ir.Array]int
	names   []string
}

func newParamTable() *paramTable {
	return &paramTable{handles: make(map[*ir.Array]int)}
}

func (p *paramTable) register(a *ir.Array, name string) int {
	if h, ok := p.handles[a]; ok {
		return h
	}
	h := len(p.names)
	p.handles[a] = h
	p.names = append(p.names, name)
	return h
}

func (p *paramTable) lookup(a *ir.Array) (string, bool) {
	h, ok := p.handles[a]
	if !ok {
		return "", false
	}
	return p.names[h], true
}
