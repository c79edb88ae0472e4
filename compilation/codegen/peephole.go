package codegen

import (
	"strings"

	"github.com/crytic/solbuild/compilation/types"
)

// optimize applies the peephole rules enabled by the given optimizer mode until no rule applies anymore.
func optimize(instructions []instruction, mode types.OptimizerMode) []instruction {
	if mode == types.OptimizerModeNone {
		return instructions
	}
	for {
		optimized, changed := peephole(instructions)
		instructions = optimized
		if !changed {
			return instructions
		}
	}
}

// peephole performs a single pass of the peephole rules:
//   - a push immediately discarded by POP is removed,
//   - two identical adjacent SWAPs cancel out.
func peephole(instructions []instruction) ([]instruction, bool) {
	result := make([]instruction, 0, len(instructions))
	changed := false
	for i := 0; i < len(instructions); i++ {
		if i+1 < len(instructions) {
			current, next := instructions[i], instructions[i+1]
			if isPush(current) && next.mnemonic == "POP" {
				i++
				changed = true
				continue
			}
			if strings.HasPrefix(current.mnemonic, "SWAP") && current.mnemonic == next.mnemonic {
				i++
				changed = true
				continue
			}
		}
		result = append(result, instructions[i])
	}
	return result, changed
}

// isPush returns a boolean indicating whether the instruction only pushes a value without side effects.
func isPush(i instruction) bool {
	return strings.HasPrefix(i.mnemonic, "PUSH")
}
