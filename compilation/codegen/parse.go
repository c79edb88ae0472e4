package codegen

import (
	"bufio"
	"strings"
)

// instruction describes a single line of text assembly.
type instruction struct {
	// line describes the 1-based line number the instruction was read from.
	line int

	// mnemonic describes the upper-cased opcode, pseudo-instruction or label.
	mnemonic string

	// argument describes the optional operand.
	argument string
}

// isLabel returns a boolean indicating whether the instruction declares a jump target.
func (i instruction) isLabel() bool {
	return strings.HasSuffix(i.mnemonic, ":")
}

// label returns the name of the jump target declared by a label instruction.
func (i instruction) label() string {
	return strings.ToLower(strings.TrimSuffix(i.mnemonic, ":"))
}

// String returns the instruction as it would appear in an assembly listing.
func (i instruction) String() string {
	if i.argument == "" {
		return i.mnemonic
	}
	return i.mnemonic + " " + i.argument
}

// parse splits text assembly into instructions. Blank lines and `;` comments are skipped. Lines carry at most one
// operand.
func parse(ir string) ([]instruction, error) {
	var instructions []instruction
	scanner := bufio.NewScanner(strings.NewReader(ir))
	scanner.Buffer(make([]byte, 0, 64*1024), len(ir)+1)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if index := strings.IndexByte(text, ';'); index >= 0 {
			text = text[:index]
		}
		fields := strings.Fields(text)
		switch len(fields) {
		case 0:
			continue
		case 1:
			instructions = append(instructions, instruction{line: line, mnemonic: strings.ToUpper(fields[0])})
		case 2:
			instructions = append(instructions, instruction{line: line, mnemonic: strings.ToUpper(fields[0]), argument: fields[1]})
		default:
			return nil, newSyntaxError(line, "expected at most one operand, found %d", len(fields)-1)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return instructions, nil
}
