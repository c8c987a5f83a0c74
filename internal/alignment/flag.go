package alignment

import (
	"fmt"
	"strings"
	"sync"

	"github.com/biogo/hts/sam"
)

// ForwardStrand is the label reported for a FLAG with no bits set.
const ForwardStrand = "forward_strand"

// flagBits is the number of FLAG bits with a known label.
const flagBits = 12

// flagLabels is indexed by bit position.
var flagLabels = [flagBits]struct {
	bit   sam.Flags
	label string
}{
	{sam.Paired, "paired"},
	{sam.ProperPair, "mapped_in_proper_pair"},
	{sam.Unmapped, "unmapped"},
	{sam.MateUnmapped, "mate_unmapped"},
	{sam.Reverse, "reverse_strand"},
	{sam.MateReverse, "mate_reverse_strand"},
	{sam.Read1, "first_in_pair"},
	{sam.Read2, "second_in_pair"},
	{sam.Secondary, "not_primary_alignment"},
	{sam.QCFail, "fails_quality_checks"},
	{sam.Duplicate, "duplicate"},
	{sam.Supplementary, "supplementary_alignment"},
}

// DecodeError is returned in strict mode for a FLAG carrying a bit
// outside the label table.
type DecodeError struct {
	Flag int
	Bit  int // -1 for negative flags
}

func (e *DecodeError) Error() string {
	if e.Bit < 0 {
		return fmt.Sprintf("decode flag %d: negative flag", e.Flag)
	}
	return fmt.Sprintf("decode flag %d: bit %d has no label", e.Flag, e.Bit)
}

var (
	decodeOnce sync.Once
	decoded    [1 << flagBits]string
)

func buildDecoded() {
	for f := range decoded {
		decoded[f] = decode(f)
	}
}

func decode(flag int) string {
	if flag == 0 {
		return ForwardStrand
	}
	labels := make([]string, 0, flagBits)
	for _, fl := range flagLabels {
		if flag&int(fl.bit) != 0 {
			labels = append(labels, fl.label)
		}
	}
	return strings.Join(labels, ";")
}

// DecodeFlags renders a FLAG as ';'-joined labels in ascending bit order.
// Bits above the label table are dropped; a FLAG left with no bits decodes
// to ForwardStrand.
func DecodeFlags(flag int) string {
	decodeOnce.Do(buildDecoded)
	return decoded[flag&(1<<flagBits-1)]
}

// FlagDecoder decodes FLAG values, optionally rejecting unknown bits.
type FlagDecoder struct {
	Strict bool
}

// Decode returns the label string for flag. In strict mode a negative flag
// or a set bit without a label yields a *DecodeError.
func (d FlagDecoder) Decode(flag int) (string, error) {
	if d.Strict {
		if flag < 0 {
			return "", &DecodeError{Flag: flag, Bit: -1}
		}
		if extra := flag >> flagBits; extra != 0 {
			bit := flagBits
			for extra&1 == 0 {
				extra >>= 1
				bit++
			}
			return "", &DecodeError{Flag: flag, Bit: bit}
		}
	}
	return DecodeFlags(flag), nil
}
