package types

import "fmt"

// CodeSegment describes which half of a contract's bytecode an object represents.
type CodeSegment int

const (
	// CodeSegmentDeploy describes the init code which is executed once upon contract creation.
	CodeSegmentDeploy CodeSegment = iota

	// CodeSegmentRuntime describes the code stored on-chain and executed on every call.
	CodeSegmentRuntime
)

// String returns the lowercase name of the code segment.
func (s CodeSegment) String() string {
	switch s {
	case CodeSegmentDeploy:
		return "deploy"
	case CodeSegmentRuntime:
		return "runtime"
	default:
		return fmt.Sprintf("segment(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler so code segments serialize by name.
func (s CodeSegment) MarshalText() ([]byte, error) {
	if s != CodeSegmentDeploy && s != CodeSegmentRuntime {
		return nil, fmt.Errorf("invalid code segment %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CodeSegment) UnmarshalText(text []byte) error {
	switch string(text) {
	case "deploy":
		*s = CodeSegmentDeploy
	case "runtime":
		*s = CodeSegmentRuntime
	default:
		return fmt.Errorf("unknown code segment '%s'", string(text))
	}
	return nil
}
