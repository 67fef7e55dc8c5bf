// Command qvz is the CLI front end for the qvz quality-value compressor:
// flag parsing, file path handling, and stream open/close around the
// core qvz package.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/gookit/gcli/v2"
	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz"
)

type cliOptions struct {
	decode     bool
	encode     bool
	ratio      float64
	rateBits   int
	clusters   int
	trainLines int
	verbose    bool
	stats      bool
	help       bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts cliOptions
	fs := gcli.NewFlags("qvz")
	fs.BoolOpt(&opts.decode, "x", "", false, "decode the input container")
	fs.BoolOpt(&opts.encode, "q", "", true, "encode the input (default)")
	fs.Float64Opt(&opts.ratio, "f", "", 1.0, "encode at RATIO of input entropy, RATIO in (0,1]")
	fs.IntOpt(&opts.rateBits, "r", "", 0, "fixed-rate bits (falls back to ratio mode until implemented)")
	fs.IntOpt(&opts.clusters, "c", "", qvz.DefaultClusters, "number of clusters")
	fs.IntOpt(&opts.trainLines, "t", "", qvz.DefaultTrainLines, "training-set line cap, 0 means all")
	fs.BoolOpt(&opts.verbose, "v", "", false, "print a verbose end-of-run summary")
	fs.BoolOpt(&opts.stats, "s", "", false, "print a one-line stats summary")
	fs.BoolOpt(&opts.help, "h", "", false, "show this help message")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: parse flags"))
		return 1
	}

	if opts.help || fs.RawArg(0) == "" || fs.RawArg(1) == "" {
		fs.PrintHelpPanel()
		fmt.Fprintln(stdout, "usage: qvz [-x|-q] [-f ratio] [-c n] [-t n] [-v] [-s] <input> <output>")
		if opts.help {
			return 0
		}
		return 1
	}

	logger := log.New(stderr, "", 0)

	in, err := os.Open(fs.RawArg(0))
	if err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: open input"))
		return 1
	}
	defer in.Close()

	out, err := os.Create(fs.RawArg(1))
	if err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: create output"))
		return 1
	}
	defer out.Close()

	bufOut := bufio.NewWriter(out)

	if opts.decode {
		return runDecode(bufOut, in, opts, logger, stderr)
	}
	return runEncode(bufOut, in, opts, logger, stdout, stderr)
}

func runDecode(bufOut *bufio.Writer, in io.Reader, opts cliOptions, logger *log.Logger, stderr io.Writer) int {
	stats, err := qvz.Decode(bufOut, in)
	if err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: decode"))
		return 1
	}
	if err := bufOut.Flush(); err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: flush output"))
		return 1
	}
	if opts.verbose {
		logger.Printf("Decoded %d lines in %d columns, %d cluster(s)\n", stats.Lines, stats.Columns, stats.Clusters)
	}
	return 0
}

func runEncode(bufOut *bufio.Writer, in io.Reader, opts cliOptions, logger *log.Logger, stdout, stderr io.Writer) int {
	if opts.rateBits > 0 {
		logger.Printf("fixed-rate mode (-r %d) is not implemented; falling back to ratio mode (-f %.4f)", opts.rateBits, opts.ratio)
	}

	encOpts := qvz.Options{
		Ratio:      opts.ratio,
		Clusters:   opts.clusters,
		TrainLines: opts.trainLines,
	}

	stats, err := qvz.Encode(bufOut, in, encOpts)
	if err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: encode"))
		return 1
	}
	if err := bufOut.Flush(); err != nil {
		fmt.Fprintln(stderr, errors.Wrap(err, "qvz: flush output"))
		return 1
	}

	if opts.verbose {
		logger.Printf("Lines: %d\n", stats.Lines)
		logger.Printf("Columns: %d\n", stats.Columns)
		logger.Printf("Clusters: %d\n", stats.Clusters)
		logger.Printf("Total bytes used: %d\n", stats.OutputBytes)
		logger.Printf("Actual distortion: %f\n", stats.AverageDistortion)
		var highSelects uint64
		for _, n := range stats.HighSelectCount {
			highSelects += n
		}
		logger.Printf("High quantizer selections: %d\n", highSelects)
	}
	if opts.stats {
		fmt.Fprintf(stdout, "rate, %.4f, distortion, %.4f, size, %d\n",
			stats.BitsPerSymbol(), stats.AverageDistortion, stats.OutputBytes)
	}
	return 0
}
