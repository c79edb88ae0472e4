package codegen

import (
	"strconv"
	"strings"

	"github.com/crytic/medusa-geth/core/vm"
	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/holiman/uint256"
)

const (
	// MaxCodeSize is the EVM contract code size limit (EIP-170).
	MaxCodeSize = 24576

	// spillAreaOffset is the memory offset the spill area starts at.
	spillAreaOffset = 0x80

	// stackSlotSize is the size in bytes of a spilled stack slot.
	stackSlotSize = 32

	// maxStackAccess is the deepest stack slot DUP and SWAP can address.
	maxStackAccess = 16
)

// labelReference describes a PUSHTAG immediate which is patched once every label is known.
type labelReference struct {
	label  string
	offset uint64
	line   int
}

// lowering holds the state of lowering one unit's instructions into code.
type lowering struct {
	unit *types.CompilationUnit
	mode types.OptimizerMode

	code        []byte
	relocations []evmobject.Relocation
	labels      map[string]uint64
	references  []labelReference
	immutables  map[string][]uint64
}

// requiredSpillArea returns the number of spill area bytes the deepest stack access of the instructions needs.
func requiredSpillArea(instructions []instruction) uint64 {
	var deepest uint64
	for _, i := range instructions {
		if depth, ok := stackAccessDepth(i.mnemonic); ok && depth > maxStackAccess {
			deepest = max(deepest, depth-maxStackAccess)
		}
	}
	return deepest * stackSlotSize
}

// stackAccessDepth returns the depth addressed by a DUPn or SWAPn mnemonic.
func stackAccessDepth(mnemonic string) (uint64, bool) {
	var digits string
	switch {
	case strings.HasPrefix(mnemonic, "DUP"):
		digits = mnemonic[3:]
	case strings.HasPrefix(mnemonic, "SWAP"):
		digits = mnemonic[4:]
	default:
		return 0, false
	}
	depth, err := strconv.ParseUint(digits, 10, 16)
	if err != nil || depth == 0 {
		return 0, false
	}
	return depth, true
}

// lower translates instructions into code, recording relocations and immutable offsets.
func lower(unit *types.CompilationUnit, instructions []instruction, mode types.OptimizerMode) (*lowering, error) {
	l := &lowering{
		unit:       unit,
		mode:       mode,
		labels:     make(map[string]uint64),
		immutables: make(map[string][]uint64),
	}

	for _, i := range instructions {
		if err := l.emitInstruction(i); err != nil {
			return nil, err
		}
	}

	for _, reference := range l.references {
		target, ok := l.labels[reference.label]
		if !ok {
			return nil, newSyntaxError(reference.line, "undefined label '%s'", reference.label)
		}
		if target > 0xffff {
			return nil, newSyntaxError(reference.line, "label '%s' is out of PUSH2 range", reference.label)
		}
		l.code[reference.offset] = byte(target >> 8)
		l.code[reference.offset+1] = byte(target)
	}
	return l, nil
}

// emitInstruction lowers a single instruction.
func (l *lowering) emitInstruction(i instruction) error {
	if i.isLabel() {
		if _, exists := l.labels[i.label()]; exists {
			return newSyntaxError(i.line, "duplicate label '%s'", i.label())
		}
		l.labels[i.label()] = uint64(len(l.code))
		l.emit(vm.JUMPDEST)
		return nil
	}

	if depth, ok := stackAccessDepth(i.mnemonic); ok && depth > maxStackAccess {
		l.emitDeepStackAccess(i.mnemonic, depth)
		return nil
	}

	switch i.mnemonic {
	case "PUSH":
		value, err := parseValue(i)
		if err != nil {
			return err
		}
		l.emitPush(value)
	case "PUSHTAG":
		if i.argument == "" {
			return newSyntaxError(i.line, "PUSHTAG requires a label")
		}
		l.emit(vm.PUSH2)
		l.references = append(l.references, labelReference{label: strings.ToLower(i.argument), offset: uint64(len(l.code)), line: i.line})
		l.emitZeros(2)
	case "DATAOFFSET", "DATASIZE":
		return l.emitDataReference(i)
	case "LINKERSYMBOL":
		if types.ParseContractName(i.argument).Name == "" {
			return newSyntaxError(i.line, "LINKERSYMBOL requires a fully qualified library name")
		}
		l.emit(vm.PUSH20)
		l.relocate(evmobject.RelocationLinkerSymbol, i.argument)
		l.emitZeros(types.LinkReferenceLength)
	case "LOADIMMUTABLE":
		if l.unit.Segment != types.CodeSegmentRuntime {
			return diagnostics.NewError(errorCodeImmutables, "immutables can only be loaded in runtime code", nil)
		}
		l.emit(vm.PUSH32)
		l.immutables[i.argument] = append(l.immutables[i.argument], uint64(len(l.code)))
		l.emitZeros(32)
	case "ASSIGNIMMUTABLE":
		return l.emitAssignImmutable(i)
	default:
		return l.emitOpcode(i)
	}
	return nil
}

// emitOpcode lowers a plain opcode or an explicitly sized push.
func (l *lowering) emitOpcode(i instruction) error {
	op := vm.StringToOp(i.mnemonic)
	if op == vm.STOP && i.mnemonic != "STOP" {
		return newSyntaxError(i.line, "unknown instruction '%s'", i.mnemonic)
	}

	if op.IsPush() && op != vm.PUSH0 {
		width := int(op-vm.PUSH1) + 1
		value, err := parseValue(i)
		if err != nil {
			return err
		}
		if len(value.Bytes()) > width {
			return newSyntaxError(i.line, "value %s does not fit in %s", i.argument, i.mnemonic)
		}
		encoded := value.Bytes32()
		l.emit(op)
		l.code = append(l.code, encoded[32-width:]...)
		return nil
	}

	if i.argument != "" {
		return newSyntaxError(i.line, "%s takes no operand", i.mnemonic)
	}
	l.emit(op)
	return nil
}

// emitPush emits the shortest push of a value. Zero is pushed with PUSH0 only under size-oriented profiles.
func (l *lowering) emitPush(value *uint256.Int) {
	encoded := value.Bytes()
	if len(encoded) == 0 {
		if l.mode.IsSizeOriented() {
			l.emit(vm.PUSH0)
			return
		}
		encoded = []byte{0}
	}
	l.emit(vm.PUSH1 + vm.OpCode(len(encoded)-1))
	l.code = append(l.code, encoded...)
}

// emitDataReference lowers DATAOFFSET and DATASIZE into a PUSH4 relocated against the referenced object.
func (l *lowering) emitDataReference(i instruction) error {
	if i.argument == "" {
		return newSyntaxError(i.line, "%s requires an object identifier", i.mnemonic)
	}
	if i.argument != l.unit.Identifier {
		if _, ok := l.unit.IdentifierPaths[i.argument]; !ok {
			return diagnostics.NewError(errorCodeUnknownIdentifier, "object '"+i.argument+"' is not found in the identifier map", nil)
		}
	}

	kind := evmobject.RelocationDataOffset
	if i.mnemonic == "DATASIZE" {
		kind = evmobject.RelocationDataSize
	}
	l.emit(vm.PUSH4)
	l.relocate(kind, i.argument)
	l.emitZeros(4)
	return nil
}

// emitAssignImmutable writes the value on top of the stack into every offset of an immutable within the runtime code
// copied into memory. The stack holds the value and the memory offset of the runtime code, both of which are popped.
func (l *lowering) emitAssignImmutable(i instruction) error {
	if l.unit.Segment != types.CodeSegmentDeploy {
		return diagnostics.NewError(errorCodeImmutables, "immutables can only be assigned in deploy code", nil)
	}
	if l.unit.Immutables == nil {
		return diagnostics.NewError(errorCodeImmutables, "runtime immutables of "+l.unit.Name.FullPath+" are not available", nil)
	}

	for _, offset := range l.unit.Immutables[i.argument] {
		l.emit(vm.DUP2, vm.DUP2)
		l.emitPush(uint256.NewInt(offset))
		l.emit(vm.ADD, vm.MSTORE)
	}
	l.emit(vm.POP, vm.POP)
	return nil
}

// emitDeepStackAccess lowers a DUP or SWAP beyond the addressable stack into a spill area access.
func (l *lowering) emitDeepStackAccess(mnemonic string, depth uint64) {
	address := uint256.NewInt(spillAreaOffset + (depth-maxStackAccess-1)*stackSlotSize)
	encoded := address.Bytes32()

	push := func() {
		l.emit(vm.PUSH2)
		l.code = append(l.code, encoded[30:]...)
	}
	if strings.HasPrefix(mnemonic, "DUP") {
		push()
		l.emit(vm.MLOAD)
		return
	}
	push()
	l.emit(vm.MLOAD, vm.SWAP1)
	push()
	l.emit(vm.MSTORE)
}

// relocate records a relocation for the immediate about to be emitted.
func (l *lowering) relocate(kind evmobject.RelocationKind, symbol string) {
	l.relocations = append(l.relocations, evmobject.Relocation{Kind: kind, Symbol: symbol, Offset: uint64(len(l.code))})
}

// emit appends opcodes to the code.
func (l *lowering) emit(ops ...vm.OpCode) {
	for _, op := range ops {
		l.code = append(l.code, byte(op))
	}
}

// emitZeros appends n zero bytes to the code.
func (l *lowering) emitZeros(n int) {
	l.code = append(l.code, make([]byte, n)...)
}

// parseValue parses the hex (0x-prefixed) or decimal operand of a push.
func parseValue(i instruction) (*uint256.Int, error) {
	if i.argument == "" {
		return nil, newSyntaxError(i.line, "%s requires a value", i.mnemonic)
	}

	var value *uint256.Int
	var err error
	if digits, isHex := strings.CutPrefix(strings.ToLower(i.argument), "0x"); isHex {
		digits = strings.TrimLeft(digits, "0")
		if digits == "" {
			digits = "0"
		}
		value, err = uint256.FromHex("0x" + digits)
	} else {
		value, err = uint256.FromDecimal(i.argument)
	}
	if err != nil {
		return nil, newSyntaxError(i.line, "invalid value '%s': %v", i.argument, err)
	}
	return value, nil
}
