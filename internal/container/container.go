// Package container implements the bit-exact encoded file layout: a
// 128-byte PRNG seed header, a cluster count, one codebook payload per
// cluster, an 8-byte line count, and the arithmetic-coded body that
// follows them.
//
// This is the one package that knows the on-disk layout;
// internal/codebook stays ignorant of serialization.
package container

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/mrjoshuak/qvz/internal/alphabet"
	"github.com/mrjoshuak/qvz/internal/codebook"
	"github.com/mrjoshuak/qvz/internal/distortion"
	"github.com/mrjoshuak/qvz/internal/prng"
	"github.com/mrjoshuak/qvz/internal/quantizer"
)

// HeaderSize is the fixed size in bytes of the PRNG seed header.
const HeaderSize = prng.StateWords * 4

// ErrCodebookMalformed is returned when the codebook payload cannot be
// parsed: a bad column count, a truncated record, or a missing record
// terminator.
var ErrCodebookMalformed = errors.New("container: codebook payload malformed")

// WriteHeader writes the 32-word PRNG seed verbatim as the first 128
// bytes of the container, little-endian per word.
func WriteHeader(w io.Writer, seed [prng.StateWords]uint32) error {
	var buf [HeaderSize]byte
	for i, word := range seed {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], word)
	}
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader reads the 128-byte PRNG seed from the front of the
// container.
func ReadHeader(r io.Reader) ([prng.StateWords]uint32, error) {
	var seed [prng.StateWords]uint32
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return seed, errors.Wrap(err, "container: read header")
	}
	for i := range seed {
		seed[i] = binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
	}
	return seed, nil
}

// WriteClusterCount writes the number of per-cluster codebooks that
// follow the header, as a single byte. K is always a small constant; one
// byte comfortably bounds it.
func WriteClusterCount(w io.Writer, k int) error {
	_, err := w.Write([]byte{byte(k)})
	return err
}

// ReadClusterCount reads back the value written by WriteClusterCount.
func ReadClusterCount(r io.Reader) (int, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, errors.Wrap(err, "container: read cluster count")
	}
	return int(b[0]), nil
}

// WriteLineCount writes the total number of coded lines as an 8-byte
// big-endian value, placed after the codebook payload(s) and before the
// coded body. The decoder needs it to bound decoding and to know which
// symbol is the stream's last.
func WriteLineCount(w io.Writer, n uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	_, err := w.Write(buf[:])
	return err
}

// ReadLineCount reads back the value written by WriteLineCount.
func ReadLineCount(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "container: read line count")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteCodebook serializes cb: a 4-byte big-endian column count, then
// per-column records of ratio bytes and concatenated quantizer maps,
// each record terminated by a newline.
func WriteCodebook(w io.Writer, cb *codebook.Codebook) error {
	bw := bufio.NewWriter(w)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(cb.Columns)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	for _, col := range cb.Columns {
		ratios := make([]byte, len(col.Contexts))
		for i, pair := range col.Contexts {
			ratios[i] = ratioByte(pair.Ratio)
		}
		if err := writeRecord(bw, ratios); err != nil {
			return err
		}

		low := make([]byte, 0, len(col.Contexts)*cb.Alphabet.Size())
		high := make([]byte, 0, len(col.Contexts)*cb.Alphabet.Size())
		for _, pair := range col.Contexts {
			low = appendMap(low, pair.Low.Map)
			high = appendMap(high, pair.High.Map)
		}
		if err := writeRecord(bw, low); err != nil {
			return err
		}
		if err := writeRecord(bw, high); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func appendMap(dst []byte, m []alphabet.Symbol) []byte {
	for _, s := range m {
		dst = append(dst, byte(s))
	}
	return dst
}

func writeRecord(w *bufio.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.WriteByte('\n')
}

func ratioByte(r float64) byte {
	v := int(r*100 + 0.5)
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return byte(v)
}

// ReadCodebook parses a codebook payload written by WriteCodebook,
// rebuilding each column's quantizer pairs and Qout the same way the
// writer derived them: the output alphabets are recomputed purely from
// the maps, so the payload carries no redundant alphabet data.
func ReadCodebook(r io.Reader, a *alphabet.Alphabet, d *distortion.Table) (*codebook.Codebook, error) {
	// Deliberately not wrapped in a bufio.Reader: the container packs a
	// PRNG header, one or more codebook payloads, a line count, and the
	// arithmetic-coded body back to back on the same stream, and a
	// bufio.Reader here would read ahead past this payload's last byte
	// and silently strand the stolen bytes when this function returns.
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, errors.Wrap(ErrCodebookMalformed, err.Error())
	}
	columns := int(binary.BigEndian.Uint32(countBuf[:]))
	if err := expectNewline(r); err != nil {
		return nil, err
	}

	cb := &codebook.Codebook{Alphabet: a, Distortion: d, Columns: make([]codebook.Column, columns)}

	size := a.Size()
	var prevQout *alphabet.Alphabet

	for c := 0; c < columns; c++ {
		numContexts := 1
		if c > 0 {
			numContexts = prevQout.Size()
		}

		ratios, err := readRecord(r, numContexts)
		if err != nil {
			return nil, err
		}
		lowMaps, err := readRecord(r, numContexts*size)
		if err != nil {
			return nil, err
		}
		highMaps, err := readRecord(r, numContexts*size)
		if err != nil {
			return nil, err
		}

		contexts := make([]quantizer.Pair, numContexts)
		for i := 0; i < numContexts; i++ {
			ratio := float64(ratios[i]) / 100.0
			low := buildQuantizer(a, lowMaps[i*size:(i+1)*size], ratio)
			high := buildQuantizer(a, highMaps[i*size:(i+1)*size], ratio)
			contexts[i] = quantizer.Pair{Low: low, High: high, Ratio: ratio}
		}

		qout := unionContexts(contexts)
		col := codebook.Column{Contexts: contexts, Qout: qout}
		if c > 0 {
			col.ContextAlphabet = alphabet.Duplicate(prevQout)
		}
		cb.Columns[c] = col
		prevQout = qout
	}

	return cb, nil
}

func buildQuantizer(input *alphabet.Alphabet, mapBytes []byte, ratio float64) *quantizer.Quantizer {
	m := make([]alphabet.Symbol, len(mapBytes))
	out := alphabet.Empty()
	for i, b := range mapBytes {
		s := alphabet.Symbol(b)
		m[i] = s
		out.Add(s)
	}
	return &quantizer.Quantizer{Input: input, Output: out, Map: m, Ratio: ratio}
}

func unionContexts(contexts []quantizer.Pair) *alphabet.Alphabet {
	out := alphabet.Empty()
	for _, pair := range contexts {
		for _, s := range pair.Low.Output.Symbols() {
			out.Add(s)
		}
		for _, s := range pair.High.Output.Symbols() {
			out.Add(s)
		}
	}
	return out
}

func readRecord(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(ErrCodebookMalformed, err.Error())
		}
	}
	if err := expectNewline(r); err != nil {
		return nil, err
	}
	return buf, nil
}

func expectNewline(r io.Reader) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return errors.Wrap(ErrCodebookMalformed, err.Error())
	}
	if b[0] != '\n' {
		return ErrCodebookMalformed
	}
	return nil
}
