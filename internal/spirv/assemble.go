package spirv

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tetratelabs/wasm2spirv/api"
)

// Assemble parses the text form written by Disassemble into the binary form. Header comments are
// optional: the version defaults to 1.0 and the bound to one past the largest id.
func Assemble(text string) ([]uint32, error) {
	a := assembler{
		version: Version1_0,
		scalars: map[uint32]scalarType{},
		extSets: map[uint32]string{},
	}
	var body []uint32
	var bound uint32
	boundSet := false

	sc := bufio.NewScanner(strings.NewReader(text))
	for line := 1; sc.Scan(); line++ {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, ";") {
			if err := a.header(s, &bound, &boundSet); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			continue
		}
		inst, err := a.instruction(s)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if id := inst.ResultID(); id >= a.maxID {
			a.maxID = id
		}
		body = inst.Encode(body)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if !boundSet {
		bound = a.maxID + 1
	}
	words := []uint32{MagicNumber, a.version.Word(), a.generator, bound, a.schema}
	return append(words, body...), nil
}

type assembler struct {
	version   Version
	generator uint32
	schema    uint32
	maxID     uint32
	scalars   map[uint32]scalarType
	extSets   map[uint32]string
}

func (a *assembler) header(line string, bound *uint32, boundSet *bool) error {
	key, value, ok := cut(strings.TrimSpace(strings.TrimPrefix(line, ";")), ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)
	switch strings.TrimSpace(key) {
	case "Version":
		major, minor, ok := cut(value, ".")
		if !ok {
			return fmt.Errorf("invalid version %q", value)
		}
		ma, err1 := strconv.ParseUint(major, 10, 8)
		mi, err2 := strconv.ParseUint(minor, 10, 8)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("invalid version %q", value)
		}
		a.version = Version{Major: uint8(ma), Minor: uint8(mi)}
	case "Generator":
		return parseHeaderWord(value, &a.generator)
	case "Bound":
		*boundSet = true
		return parseHeaderWord(value, bound)
	case "Schema":
		return parseHeaderWord(value, &a.schema)
	}
	return nil
}

func parseHeaderWord(value string, dst *uint32) error {
	v, err := strconv.ParseUint(value, 0, 32)
	if err != nil {
		return fmt.Errorf("invalid header word %q", value)
	}
	*dst = uint32(v)
	return nil
}

func (a *assembler) instruction(line string) (*Instruction, error) {
	tokens, err := tokenize(line)
	if err != nil {
		return nil, err
	}

	var resultID uint32
	if len(tokens) >= 2 && tokens[1] == "=" {
		if resultID, err = parseID(tokens[0]); err != nil {
			return nil, err
		}
		tokens = tokens[2:]
	}
	if len(tokens) == 0 {
		return nil, errors.New("missing opcode")
	}
	op, ok := opcodesByName[tokens[0]]
	if !ok {
		return nil, fmt.Errorf("unknown opcode %q", tokens[0])
	}
	info := grammar[op]
	if info.hasResult != (resultID != 0) {
		if info.hasResult {
			return nil, fmt.Errorf("%s needs a result id", info.name)
		}
		return nil, fmt.Errorf("%s has no result id", info.name)
	}

	p := &operandParser{tokens: tokens[1:], op: op}
	inst := &Instruction{Opcode: op}
	var resultType uint32
	if info.hasType {
		if resultType, err = p.id(); err != nil {
			return nil, err
		}
		inst.Words = append(inst.Words, resultType)
	}
	if info.hasResult {
		inst.Words = append(inst.Words, resultID)
	}

	for i, kind := range info.operands {
		var words []uint32
		switch kind {
		case operandOptionalID:
			if p.more() {
				words, err = p.ids(1)
			}
		case operandVariadicIDs:
			words, err = p.ids(len(p.tokens))
		case operandVariadicLiterals:
			for p.more() && err == nil {
				var w uint32
				w, err = p.literal()
				words = append(words, w)
			}
		case operandContextLiteral:
			words, err = a.contextLiteral(p, resultType)
		case operandExtInst:
			prev := inst.Words[len(inst.Words)-1]
			words, err = p.extInst(a.extSets[prev])
		default:
			words, err = p.operand(kind)
		}
		if err != nil {
			return nil, fmt.Errorf("%s operand %d: %w", info.name, i, err)
		}
		inst.Words = append(inst.Words, words...)
	}
	if p.more() {
		return nil, fmt.Errorf("%s: unexpected %q", info.name, p.tokens[0])
	}

	switch op {
	case OpTypeInt:
		a.scalars[resultID] = scalarType{width: inst.Words[1], signed: inst.Words[2] != 0}
	case OpTypeFloat:
		a.scalars[resultID] = scalarType{float: true, width: inst.Words[1]}
	case OpExtInstImport:
		a.extSets[resultID] = decodeString(inst.Words[1:])
	}
	return inst, nil
}

func (a *assembler) contextLiteral(p *operandParser, typeID uint32) ([]uint32, error) {
	t, ok := a.scalars[typeID]
	if !ok {
		var words []uint32
		for p.more() {
			w, err := p.literal()
			if err != nil {
				return nil, err
			}
			words = append(words, w)
		}
		return words, nil
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	var bits uint64
	switch {
	case t.float && strings.HasPrefix(tok, "0x"):
		bits, err = strconv.ParseUint(tok, 0, int(t.width))
	case t.float && t.width == 32:
		var f float64
		f, err = strconv.ParseFloat(tok, 32)
		bits = uint64(math.Float32bits(float32(f)))
	case t.float:
		var f float64
		f, err = strconv.ParseFloat(tok, 64)
		bits = math.Float64bits(f)
	case strings.HasPrefix(tok, "-"):
		var v int64
		v, err = strconv.ParseInt(tok, 10, int(t.width))
		bits = uint64(v)
	default:
		bits, err = strconv.ParseUint(tok, 0, int(t.width))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid constant %q", tok)
	}
	if t.width > 32 {
		return []uint32{uint32(bits), uint32(bits >> 32)}, nil
	}
	return []uint32{uint32(bits)}, nil
}

type operandParser struct {
	tokens []string
	op     Opcode
}

func (p *operandParser) more() bool { return len(p.tokens) > 0 }

func (p *operandParser) next() (string, error) {
	if len(p.tokens) == 0 {
		return "", errors.New("missing operand")
	}
	tok := p.tokens[0]
	p.tokens = p.tokens[1:]
	return tok, nil
}

func (p *operandParser) id() (uint32, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	return parseID(tok)
}

func (p *operandParser) ids(n int) ([]uint32, error) {
	ret := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		id, err := p.id()
		if err != nil {
			return nil, err
		}
		ret = append(ret, id)
	}
	return ret, nil
}

func (p *operandParser) literal() (uint32, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}
	return parseLiteral(tok)
}

func (p *operandParser) literals() ([]uint32, error) {
	var ret []uint32
	for p.more() {
		w, err := p.literal()
		if err != nil {
			return nil, err
		}
		ret = append(ret, w)
	}
	return ret, nil
}

func (p *operandParser) extInst(set string) ([]uint32, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if n, ok := extInstNumber(set, tok); ok {
		return []uint32{n}, nil
	}
	n, err := parseLiteral(tok)
	if err != nil {
		return nil, fmt.Errorf("unknown extended instruction %q", tok)
	}
	return []uint32{n}, nil
}

// operand parses the kinds whose text form does not depend on other operands.
func (p *operandParser) operand(kind operandKind) ([]uint32, error) {
	if kind == operandMemoryAccess && !p.more() {
		return nil, nil
	}
	if kind == operandSwitchTargets {
		var ret []uint32
		for p.more() {
			lit, err := p.literal()
			if err != nil {
				return nil, err
			}
			id, err := p.id()
			if err != nil {
				return nil, err
			}
			ret = append(ret, lit, id)
		}
		return ret, nil
	}

	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch kind {
	case operandID:
		id, err := parseID(tok)
		return []uint32{id}, err
	case operandLiteral:
		w, err := parseLiteral(tok)
		return []uint32{w}, err
	case operandString:
		if !strings.HasPrefix(tok, `"`) {
			return nil, fmt.Errorf("expected a string but got %q", tok)
		}
		s, err := strconv.Unquote(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid string %s", tok)
		}
		return encodeString(s), nil
	case operandCapability:
		c, ok := api.ParseCapability(tok)
		return enumWord(uint32(c), ok, "capability", tok)
	case operandAddressingModel:
		v, ok := enumLookup(addressingModelNames, tok)
		return enumWord(v, ok, "addressing model", tok)
	case operandMemoryModel:
		m, ok := api.ParseMemoryModel(tok)
		return enumWord(uint32(m), ok, "memory model", tok)
	case operandExecutionModel:
		m, ok := api.ParseExecutionModel(tok)
		return enumWord(uint32(m), ok, "execution model", tok)
	case operandStorageClass:
		s, ok := api.ParseStorageClass(tok)
		return enumWord(uint32(s), ok, "storage class", tok)
	case operandExecutionMode:
		m, ok := api.ParseExecutionMode(tok)
		if !ok {
			return nil, fmt.Errorf("unknown execution mode %q", tok)
		}
		lits, err := p.literals()
		return append([]uint32{uint32(m)}, lits...), err
	case operandDecoration:
		d, ok := api.ParseDecoration(tok)
		if !ok {
			return nil, fmt.Errorf("unknown decoration %q", tok)
		}
		if d == api.DecorationBuiltIn {
			name, err := p.next()
			if err != nil {
				return nil, err
			}
			b, ok := api.ParseBuiltIn(name)
			if !ok {
				return nil, fmt.Errorf("unknown builtin %q", name)
			}
			return []uint32{uint32(d), uint32(b)}, nil
		}
		lits, err := p.literals()
		return append([]uint32{uint32(d)}, lits...), err
	case operandFunctionControl:
		return parseMask(functionControlNames, tok)
	case operandSelectionControl:
		return parseMask(selectionControlNames, tok)
	case operandLoopControl:
		return parseMask(loopControlNames, tok)
	case operandMemoryAccess:
		mask, err := parseMask(memoryAccessNames, tok)
		if err != nil || MemoryAccess(mask[0])&MemoryAccessAligned == 0 {
			return mask, err
		}
		align, err := p.literal()
		return append(mask, align), err
	}
	return nil, fmt.Errorf("unsupported operand kind %d", kind)
}

func enumWord(v uint32, ok bool, what, tok string) ([]uint32, error) {
	if !ok {
		return nil, fmt.Errorf("unknown %s %q", what, tok)
	}
	return []uint32{v}, nil
}

func enumLookup(names map[uint32]string, tok string) (uint32, bool) {
	for v, name := range names {
		if name == tok {
			return v, true
		}
	}
	v, err := strconv.ParseUint(tok, 10, 32)
	return uint32(v), err == nil
}

func parseMask(names map[uint32]string, tok string) ([]uint32, error) {
	if tok == "None" {
		return []uint32{0}, nil
	}
	var mask uint32
	for _, part := range strings.Split(tok, "|") {
		v, ok := enumLookup(names, part)
		if !ok {
			return nil, fmt.Errorf("unknown mask bit %q", part)
		}
		mask |= v
	}
	return []uint32{mask}, nil
}

func parseID(tok string) (uint32, error) {
	if !strings.HasPrefix(tok, "%") {
		return 0, fmt.Errorf("expected an id but got %q", tok)
	}
	id, err := strconv.ParseUint(tok[1:], 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", tok)
	}
	return uint32(id), nil
}

func parseLiteral(tok string) (uint32, error) {
	if strings.HasPrefix(tok, "-") {
		v, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid literal %q", tok)
		}
		return uint32(v), nil
	}
	v, err := strconv.ParseUint(tok, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid literal %q", tok)
	}
	return uint32(v), nil
}

// tokenize splits a line on spaces, keeping quoted strings whole.
func tokenize(line string) ([]string, error) {
	var ret []string
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == ';':
			return ret, nil
		case c == '"':
			j := i + 1
			for ; j < len(line) && line[j] != '"'; j++ {
				if line[j] == '\\' {
					j++
				}
			}
			if j >= len(line) {
				return nil, errors.New("unterminated string")
			}
			ret = append(ret, line[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(line) && line[j] != ' ' && line[j] != '\t' {
				j++
			}
			ret = append(ret, line[i:j])
			i = j
		}
	}
	return ret, nil
}

// cut is strings.Cut, which needs a newer Go than this module targets.
func cut(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
