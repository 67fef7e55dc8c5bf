// Package qvz implements a lossy compressor and matching decompressor for
// sequencing quality-value (QV) strings: fixed-width lines of symbols
// drawn from a small integer alphabet, canonically 0..40 in the
// ASCII+33 Phred convention.
//
// The compressor trains column-conditional Lloyd-Max quantizers against
// a requested rate/distortion operating point, optionally clusters reads
// into cohorts with independent codebooks, and arithmetically codes the
// quantized output with adaptive per-context models. The decompressor
// reconstructs an approximation of the original strings by inverting
// those steps in lockstep, sharing a synchronized PRNG with the encoder
// so both sides draw the same low/high quantizer choices.
//
// Basic usage for encoding:
//
//	f, _ := os.Open("reads.qual")
//	out, _ := os.Create("reads.qvz")
//	stats, err := qvz.Encode(out, f, qvz.Options{Ratio: 0.5, Clusters: 3})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%.3f bits/symbol\n", stats.BitsPerSymbol())
//
// Basic usage for decoding:
//
//	in, _ := os.Open("reads.qvz")
//	out, _ := os.Create("reads.qual")
//	if _, err := qvz.Decode(out, in); err != nil {
//	    log.Fatal(err)
//	}
package qvz
