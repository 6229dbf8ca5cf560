package spirv

import (
	"errors"
	"fmt"
	"strings"
)

// operandKind is how the words of an operand are read. Kinds named "variadic" or "rest" consume every
// remaining word of the instruction.
type operandKind uint8

const (
	operandResultType operandKind = iota
	operandResultID
	operandID
	operandOptionalID
	operandVariadicIDs
	operandLiteral
	operandVariadicLiterals
	operandString
	// operandContextLiteral is the value of OpConstant: one or two words, depending on the result type.
	operandContextLiteral
	operandCapability
	operandAddressingModel
	operandMemoryModel
	operandExecutionModel
	// operandExecutionMode is the mode followed by its literals.
	operandExecutionMode
	operandStorageClass
	// operandDecoration is the decoration followed by its literals.
	operandDecoration
	operandFunctionControl
	operandSelectionControl
	operandLoopControl
	// operandMemoryAccess is an optional mask, followed by the alignment when the mask has Aligned.
	operandMemoryAccess
	// operandSwitchTargets is the pairs of 32-bit literal and label of OpSwitch.
	operandSwitchTargets
	// operandExtInst is the instruction number of OpExtInst within the set named by the previous operand.
	operandExtInst
)

type opInfo struct {
	name      string
	hasType   bool
	hasResult bool
	// pure is true when the instruction has no effect other than defining its result, so it can be
	// removed when the result is unused.
	pure     bool
	operands []operandKind
}

var opcodesByName = func() map[string]Opcode {
	ret := make(map[string]Opcode, len(grammar))
	for op, info := range grammar {
		ret[info.name] = op
	}
	return ret
}()

// String implements fmt.Stringer.
func (o Opcode) String() string {
	if info, ok := grammar[o]; ok {
		return info.name
	}
	return fmt.Sprintf("Op%d", uint16(o))
}

// IsTerminator returns true if the instruction ends a block.
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpBranch, OpBranchConditional, OpSwitch, OpReturn, OpReturnValue, OpKill, OpUnreachable:
		return true
	}
	return false
}

// IsPure returns true if the instruction can be removed when its result is unused.
func (o Opcode) IsPure() bool {
	info, ok := grammar[o]
	return ok && info.pure
}

// operand is a span of Instruction.Words.
type operand struct {
	kind  operandKind
	start int
	words []uint32
}

var errTruncated = errors.New("truncated operands")

// decodeOperands splits the words of an instruction into operands. Variadic id and literal lists become
// one operand per word, so callers can visit ids without knowing the layout.
func decodeOperands(op Opcode, words []uint32) ([]operand, error) {
	info, ok := grammar[op]
	if !ok {
		return nil, fmt.Errorf("unknown opcode %d", op)
	}

	var ret []operand
	pos := 0
	take := func(kind operandKind, n int) error {
		if pos+n > len(words) {
			return fmt.Errorf("%s: %w", info.name, errTruncated)
		}
		ret = append(ret, operand{kind: kind, start: pos, words: words[pos : pos+n]})
		pos += n
		return nil
	}

	if info.hasType {
		if err := take(operandResultType, 1); err != nil {
			return nil, err
		}
	}
	if info.hasResult {
		if err := take(operandResultID, 1); err != nil {
			return nil, err
		}
	}

	for _, kind := range info.operands {
		var err error
		switch kind {
		case operandOptionalID:
			if pos < len(words) {
				err = take(operandID, 1)
			}
		case operandVariadicIDs:
			for pos < len(words) && err == nil {
				err = take(operandID, 1)
			}
		case operandVariadicLiterals:
			for pos < len(words) && err == nil {
				err = take(operandLiteral, 1)
			}
		case operandString:
			n, serr := stringWordCount(words[pos:])
			if serr != nil {
				return nil, fmt.Errorf("%s: %w", info.name, serr)
			}
			err = take(operandString, n)
		case operandContextLiteral, operandExecutionMode, operandDecoration:
			if pos >= len(words) {
				err = take(kind, 1) // reports truncation
			} else {
				err = take(kind, len(words)-pos)
			}
		case operandMemoryAccess:
			if pos < len(words) {
				n := 1
				if MemoryAccess(words[pos])&MemoryAccessAligned != 0 {
					n = 2
				}
				err = take(operandMemoryAccess, n)
			}
		case operandSwitchTargets:
			if (len(words)-pos)%2 != 0 {
				return nil, fmt.Errorf("%s: odd number of target words", info.name)
			}
			for pos < len(words) {
				_ = take(operandLiteral, 1)
				_ = take(operandID, 1)
			}
		default:
			err = take(kind, 1)
		}
		if err != nil {
			return nil, err
		}
	}

	if pos != len(words) {
		return nil, fmt.Errorf("%s: %d unexpected trailing words", info.name, len(words)-pos)
	}
	return ret, nil
}

// encodeString returns the nul-terminated UTF-8 bytes of s packed little-endian into words.
func encodeString(s string) []uint32 {
	ret := make([]uint32, len(s)/4+1)
	for i := 0; i < len(s); i++ {
		ret[i/4] |= uint32(s[i]) << (8 * uint(i%4))
	}
	return ret
}

// stringWordCount returns how many words the literal string at the start of words occupies.
func stringWordCount(words []uint32) (int, error) {
	for i, w := range words {
		if w&0xff == 0 || w&0xff00 == 0 || w&0xff0000 == 0 || w&0xff000000 == 0 {
			return i + 1, nil
		}
	}
	return 0, errors.New("literal string is not nul-terminated")
}

func decodeString(words []uint32) string {
	var sb strings.Builder
	for _, w := range words {
		for shift := uint(0); shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return sb.String()
			}
			sb.WriteByte(b)
		}
	}
	return sb.String()
}
