package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/pixelsort/pkg/config"
	"github.com/matzehuels/pixelsort/pkg/errors"
	"github.com/matzehuels/pixelsort/pkg/imageio"
	"github.com/matzehuels/pixelsort/pkg/pipeline"
	"github.com/matzehuels/pixelsort/pkg/pixelsort"
)

// stdio is the path that means stdin or stdout.
const stdio = "-"

// sortOpts holds the command-line flags for the sort command.
type sortOpts struct {
	output    string // output path, "-" for stdout
	preset    string // named preset the flags are applied on top of
	pick      bool   // choose the preset interactively
	mask      string // grayscale selection mask image
	alphaMask bool   // select by the input's alpha channel
	format    string // output format
	quality   int    // JPEG quality
	seed      uint64
	workers   int
	noCache   bool
	refresh   bool

	// Effect parameters; applied only when the flag is set.
	direction string
	key       string
	mode      string
	lower     int
	upper     int
	reverse   bool
	jitter    int
	spanMin   int
	spanMax   int
	angle     int
	falloff   int
}

// sortCommand creates the sort command.
func (c *CLI) sortCommand() *cobra.Command {
	var opts sortOpts

	cmd := &cobra.Command{
		Use:   "sort <image>",
		Short: "Sort the pixels of an image",
		Long: `Sort runs of pixels in an image and write the result.

Effect flags are applied on top of the selected preset, which in turn
defaults to the [params] table of the config file. Use "-" to read the
image from stdin or write it to stdout.`,
		Example: `  pixelsort sort photo.jpg
  pixelsort sort photo.jpg --preset melt -o melted.png
  pixelsort sort photo.png --mode edges --key hue --angle 30 --reverse
  cat photo.png | pixelsort sort - -o - > out.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSort(cmd.Context(), cmd.Flags(), args[0], &opts)
		},
	}

	bindSortFlags(cmd.Flags(), &opts)

	_ = cmd.RegisterFlagCompletionFunc("key", fixedCompletions(pixelsort.SortKeys()))
	_ = cmd.RegisterFlagCompletionFunc("mode", fixedCompletions(pixelsort.IntervalModes()))
	_ = cmd.RegisterFlagCompletionFunc("direction", fixedCompletions(pixelsort.Directions()))
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletions(imageio.EncodeFormats()))
	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		cfg, err := c.loadConfig()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return cfg.PresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// bindSortFlags registers the sort flags on f, storing values in opts.
func bindSortFlags(f *pflag.FlagSet, opts *sortOpts) {
	f.StringVarP(&opts.output, "output", "o", "", "output file (default <image>.sorted.<format>)")
	f.StringVarP(&opts.preset, "preset", "p", "", "start from a named preset (see 'pixelsort presets')")
	f.BoolVar(&opts.pick, "pick", false, "choose a preset interactively")
	f.StringVar(&opts.mask, "mask", "", "grayscale mask image: white sorts, black keeps")
	f.BoolVar(&opts.alphaMask, "alpha-mask", false, "only sort where the input is opaque")
	f.StringVarP(&opts.format, "format", "f", "", "output format: "+strings.Join(imageio.EncodeFormats(), ", "))
	f.IntVar(&opts.quality, "quality", imageio.DefaultQuality, "JPEG quality (1-100)")
	f.Uint64Var(&opts.seed, "seed", pixelsort.DefaultSeed, "random seed")
	f.IntVar(&opts.workers, "workers", 0, "sort lines on this many goroutines (output differs from sequential)")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	f.BoolVar(&opts.refresh, "refresh", false, "ignore cached results")

	f.StringVarP(&opts.direction, "direction", "d", "", "horizontal or vertical")
	f.StringVarP(&opts.key, "key", "k", "", "sort key: "+strings.Join(pixelsort.SortKeys(), ", "))
	f.StringVarP(&opts.mode, "mode", "m", "", "span mode: "+strings.Join(pixelsort.IntervalModes(), ", "))
	f.IntVar(&opts.lower, "lower", 0, "lower threshold (0-255)")
	f.IntVar(&opts.upper, "upper", 0, "upper threshold (0-255)")
	f.BoolVarP(&opts.reverse, "reverse", "r", false, "sort descending")
	f.IntVar(&opts.jitter, "jitter", 0, "displace sorted pixels by up to this many positions (0-100)")
	f.IntVar(&opts.spanMin, "span-min", 0, "minimum span length")
	f.IntVar(&opts.spanMax, "span-max", 0, "maximum span length (0 = unlimited)")
	f.IntVarP(&opts.angle, "angle", "a", 0, "sorting angle in degrees (horizontal only)")
	f.IntVar(&opts.falloff, "falloff", 0, "chance in percent to skip each span (0-100)")
}

func (c *CLI) runSort(ctx context.Context, flags *pflag.FlagSet, input string, opts *sortOpts) error {
	logger := loggerFromContext(ctx)
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	presetName := opts.preset
	if opts.pick {
		if presetName, err = pickPreset(cfg); err != nil {
			return err
		}
	}
	base, err := cfg.Resolve(presetName)
	if err != nil {
		return err
	}
	params, err := applyParamFlags(flags, base, opts)
	if err != nil {
		return err
	}

	pipeOpts, err := pipelineOptions(flags, cfg, params, opts)
	if err != nil {
		return err
	}
	pipeOpts.Logger = logger

	output := opts.output
	if output == "" {
		output = defaultOutputPath(input, pipeOpts.Format)
	}
	toStdout := output == stdio
	if pipeOpts.Format == "" && !toStdout {
		pipeOpts.Format = imageio.FormatFromPath(output)
	}

	in, err := readInput(input, opts.mask)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	logger.Debug("sorting", "input", input, "output", output, "preset", presetName, "params", params.String())

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Sorting "+displayName(input)+"...")
	if !toStdout {
		spinner.Start()
	}
	res, err := runner.Execute(ctx, in, pipeOpts)
	if !toStdout {
		if err != nil && !spinner.Cancelled() {
			spinner.StopWithError(errors.UserMessage(err))
		} else {
			spinner.Stop()
		}
	}
	if err != nil {
		if stderrors.Is(err, context.Canceled) {
			return context.Canceled
		}
		return err
	}

	if err := writeOutput(output, res.Artifact); err != nil {
		return err
	}
	if toStdout {
		return nil
	}

	prog.done("Sorted " + displayName(input))
	printFile(output)
	printStats(res, pipeOpts.Params)
	return nil
}

// applyParamFlags overrides base with every effect flag the user set.
func applyParamFlags(flags *pflag.FlagSet, base pixelsort.Params, o *sortOpts) (pixelsort.Params, error) {
	p := base
	var err error
	if flags.Changed("direction") {
		if p.Direction, err = pixelsort.ParseDirection(o.direction); err != nil {
			return p, errors.New(errors.ErrCodeInvalidParams, "%v", err)
		}
	}
	if flags.Changed("key") {
		if p.SortKey, err = pixelsort.ParseSortKey(o.key); err != nil {
			return p, errors.New(errors.ErrCodeInvalidParams, "%v", err)
		}
	}
	if flags.Changed("mode") {
		if p.IntervalMode, err = pixelsort.ParseIntervalMode(o.mode); err != nil {
			return p, errors.New(errors.ErrCodeInvalidParams, "%v", err)
		}
	}

	ints := []struct {
		flag string
		src  int
		dst  *int
	}{
		{"lower", o.lower, &p.LowerThreshold},
		{"upper", o.upper, &p.UpperThreshold},
		{"jitter", o.jitter, &p.Jitter},
		{"span-min", o.spanMin, &p.SpanMin},
		{"span-max", o.spanMax, &p.SpanMax},
		{"angle", o.angle, &p.Angle},
		{"falloff", o.falloff, &p.Falloff},
	}
	for _, f := range ints {
		if flags.Changed(f.flag) {
			*f.dst = f.src
		}
	}
	if flags.Changed("reverse") {
		p.Reverse = o.reverse
	}
	return p.Clamp(), nil
}

// pipelineOptions merges the non-effect flags over the config file.
func pipelineOptions(flags *pflag.FlagSet, cfg *config.Config, params pixelsort.Params, o *sortOpts) (pipeline.Options, error) {
	opts := pipeline.Options{
		Params:       params,
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
		Quality:      cfg.Quality,
		UseAlphaMask: o.alphaMask,
		Refresh:      o.refresh,
	}
	if flags.Changed("seed") {
		opts.Seed = o.seed
	}
	if flags.Changed("workers") {
		opts.Workers = o.workers
	}
	if flags.Changed("quality") {
		opts.Quality = o.quality
	}

	switch {
	case flags.Changed("format"):
		opts.Format = o.format
	case o.output != "" && o.output != stdio && imageio.FormatFromPath(o.output) != "":
		opts.Format = imageio.FormatFromPath(o.output)
	default:
		opts.Format = cfg.Format
	}
	if opts.Format != "" {
		f, err := imageio.ValidateFormat(opts.Format)
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}
	return opts, nil
}

// defaultOutputPath puts the result next to the input: photo.jpg becomes
// photo.sorted.jpg, or photo.sorted.png for PNG output. Inputs that cannot
// be written back in their own format get PNG.
func defaultOutputPath(input, format string) string {
	if input == stdio {
		return stdio
	}
	if format == "" {
		format = imageio.FormatFromPath(input)
	}
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".sorted." + outputExt(format)
}

func outputExt(format string) string {
	f, err := imageio.ValidateFormat(format)
	switch {
	case err != nil:
		return imageio.FormatPNG
	case f == imageio.FormatJPEG:
		return "jpg"
	default:
		return f
	}
}

func readInput(image, mask string) (pipeline.Input, error) {
	data, err := readFile(image)
	if err != nil {
		return pipeline.Input{}, err
	}
	in := pipeline.Input{Image: data}
	if mask != "" {
		if mask == stdio {
			return pipeline.Input{}, errors.New(errors.ErrCodeInvalidPath, "the mask cannot be read from stdin")
		}
		if in.Mask, err = readFile(mask); err != nil {
			return pipeline.Input{}, err
		}
	}
	return in, nil
}

func readFile(path string) ([]byte, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	if path == stdio {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read stdin")
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeFileNotFound, "file not found: %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "failed to read %s", path)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if path == stdio {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func displayName(path string) string {
	if path == stdio {
		return "stdin"
	}
	return filepath.Base(path)
}

func fixedCompletions(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
