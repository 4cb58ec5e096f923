// berdump prints the TLV structure of a BER stream.
//
// The input is a file or stdin, optionally zstd or LZ4 compressed. Output is
// an indented text tree, JSON, or CBOR of the same tree. --sum appends the
// BLAKE3-256 digest of the uncompressed BER bytes.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/pflag"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"github.com/oy3o/ber"
	"github.com/oy3o/ber/compress"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "berdump: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	compress   string
	format     string
	configPath string
	maxDepth   int
	sum        bool
	verbose    bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("berdump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.compress, "compress", "auto", "input compression: auto, none, zstd or lz4")
	flagSet.StringVar(&opts.format, "format", "text", "output format: text, json or cbor")
	flagSet.StringVar(&opts.configPath, "config", "", "YAML codec config file")
	flagSet.IntVar(&opts.maxDepth, "max-depth", 0, "maximum nesting depth (default from config, 1024)")
	flagSet.BoolVar(&opts.sum, "sum", false, "print the BLAKE3-256 digest of the BER bytes")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(stderr, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(stderr, flagSet)
		return nil
	}
	if flagSet.NArg() > 1 {
		return errors.Newf("unexpected argument: %s", flagSet.Arg(1))
	}

	logger, err := newLogger(opts.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg := ber.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = ber.LoadConfig(opts.configPath); err != nil {
			return err
		}
	}
	if opts.maxDepth > 0 {
		cfg.MaxDepth = opts.maxDepth
	}
	cfg.Logger = logger

	input := stdin
	if path := flagSet.Arg(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, "opening input")
		}
		defer f.Close()
		input = f
	}

	src, err := decompress(input, opts.compress)
	if err != nil {
		return err
	}
	defer src.Close()

	var hasher *blake3.Hasher
	var data io.Reader = src
	if opts.sum {
		hasher = blake3.New()
		data = io.TeeReader(src, hasher)
	}

	d, err := cfg.NewDecoder(data)
	if err != nil {
		return err
	}
	nodes, err := d.Inspect()
	if err != nil {
		return err
	}
	logger.Debug("parsed", zap.Int("nodes", len(nodes)), zap.Int64("bytes", d.Position()))

	if err := write(stdout, opts.format, nodes); err != nil {
		return err
	}
	if hasher != nil {
		fmt.Fprintf(stdout, "blake3-256 %s\n", hex.EncodeToString(hasher.Sum(nil)))
	}
	return nil
}

// decompress wraps r according to name, sniffing the frame magic for "auto".
func decompress(r io.Reader, name string) (io.ReadCloser, error) {
	var alg compress.Algorithm
	if name == "auto" {
		br := bufio.NewReader(r)
		prefix, err := br.Peek(compress.MagicLen)
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, "reading input")
		}
		alg = compress.Detect(prefix)
		r = br
	} else {
		var err error
		if alg, err = compress.ParseAlgorithm(name); err != nil {
			return nil, err
		}
	}
	return compress.NewReader(r, alg)
}

func write(w io.Writer, format string, nodes []*ber.Node) error {
	switch format {
	case "text":
		for _, n := range nodes {
			if err := n.Format(w); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	case "cbor":
		encMode, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return errors.Wrap(err, "cbor encoder")
		}
		return encMode.NewEncoder(w).Encode(nodes)
	default:
		return errors.Newf("unknown format %q", format)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `berdump prints the TLV structure of a BER stream.

Usage:
  berdump [flags] [FILE]

Reads stdin when FILE is omitted or "-".

Flags:
%s`, flagSet.FlagUsages())
}
