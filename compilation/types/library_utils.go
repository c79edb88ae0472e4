package types

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// libraryPlaceholderLength is the number of keccak256 hash bytes a library placeholder carries.
const libraryPlaceholderLength = 17

// placeholderExp matches a hex encoded library placeholder: `__$<34 hex characters>$__`.
var placeholderExp = regexp.MustCompile(`__\$([0-9a-fA-F]{34})\$__`)

// LibraryPlaceholder creates a library placeholder hash based on the keccak256 hash of the fully qualified library
// name (`path:Name`). The result is the first 17 bytes of the hash, hex encoded.
func LibraryPlaceholder(fullyQualifiedName string) string {
	hash := crypto.Keccak256([]byte(fullyQualifiedName))
	return hex.EncodeToString(hash[:libraryPlaceholderLength])
}

// FormatLibraryPlaceholder returns the 40 character placeholder rendered in hex bytecode for the given library.
func FormatLibraryPlaceholder(fullyQualifiedName string) string {
	return "__$" + LibraryPlaceholder(fullyQualifiedName) + "$__"
}

// LinkerSymbols maps fully qualified library names to their deployed addresses.
type LinkerSymbols map[string]common.Address

// Names returns the sorted library names of the table.
func (s LinkerSymbols) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseLibraries parses library definitions of the form `<path>:<Name>=<address>` into LinkerSymbols. A library
// defined twice with different addresses is an error.
func ParseLibraries(definitions []string) (LinkerSymbols, error) {
	symbols := make(LinkerSymbols, len(definitions))
	for _, definition := range definitions {
		name, address, found := strings.Cut(definition, "=")
		if !found {
			return nil, errors.Errorf("library definition '%s' must be of the form <path>:<name>=<address>", definition)
		}
		name = strings.TrimSpace(name)
		address = strings.TrimSpace(address)

		contractName := ParseContractName(name)
		if contractName.Path == "" || contractName.Name == "" {
			return nil, errors.Errorf("library name '%s' must be fully qualified as <path>:<name>", name)
		}
		if !common.IsHexAddress(address) {
			return nil, errors.Errorf("library '%s' has an invalid address '%s'", name, address)
		}

		parsed := common.HexToAddress(address)
		if existing, exists := symbols[name]; exists && existing != parsed {
			return nil, errors.Errorf("library '%s' is defined with conflicting addresses %s and %s", name, existing, parsed)
		}
		symbols[name] = parsed
	}
	return symbols, nil
}

// EncodeBytecodeHex hex encodes bytecode, rendering the 20 bytes at every unlinked library offset as that library's
// placeholder. Offsets which do not fit within the bytecode are ignored.
func EncodeBytecodeHex(bytecode []byte, unlinked map[string][]uint64) string {
	placeholders := make(map[string][]uint64, len(unlinked))
	for name, offsets := range unlinked {
		hash := LibraryPlaceholder(name)
		placeholders[hash] = append(placeholders[hash], offsets...)
	}
	return EncodePlaceholderHex(bytecode, placeholders)
}

// EncodePlaceholderHex hex encodes bytecode, rendering the 20 bytes at every offset as the placeholder with the given
// hash. It is the inverse of DecodeBytecodeHex, for placeholders whose library name is unknown.
func EncodePlaceholderHex(bytecode []byte, placeholders map[string][]uint64) string {
	encoded := []byte(hex.EncodeToString(bytecode))
	for hash, offsets := range placeholders {
		placeholder := "__$" + hash + "$__"
		for _, offset := range offsets {
			if offset+LinkReferenceLength > uint64(len(bytecode)) {
				continue
			}
			copy(encoded[offset*2:], placeholder)
		}
	}
	return string(encoded)
}

// DecodeBytecodeHex decodes hex bytecode which may contain library placeholders. Placeholders are decoded as zero
// bytes, and their offsets are returned keyed by placeholder hash.
func DecodeBytecodeHex(bytecodeHex string) ([]byte, map[string][]uint64, error) {
	bytecodeHex = strings.TrimPrefix(strings.TrimSpace(bytecodeHex), "0x")

	placeholders := make(map[string][]uint64)
	zeroed := []byte(bytecodeHex)
	for _, match := range placeholderExp.FindAllStringSubmatchIndex(bytecodeHex, -1) {
		if match[0]%2 != 0 {
			return nil, nil, fmt.Errorf("library placeholder at hex position %d is not byte aligned", match[0])
		}
		hash := strings.ToLower(bytecodeHex[match[2]:match[3]])
		placeholders[hash] = append(placeholders[hash], uint64(match[0]/2))
		for i := match[0]; i < match[1]; i++ {
			zeroed[i] = '0'
		}
	}

	bytecode, err := hex.DecodeString(string(zeroed))
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not decode bytecode hex")
	}
	return bytecode, placeholders, nil
}

// ResolvePlaceholders maps placeholder hashes returned by DecodeBytecodeHex back to library names, using the
// provided candidate names. Hashes which match no candidate are returned separately.
func ResolvePlaceholders(placeholders map[string][]uint64, candidates []string) (map[string][]uint64, []string) {
	hashToName := make(map[string]string, len(candidates))
	for _, name := range candidates {
		hashToName[LibraryPlaceholder(name)] = name
	}

	resolved := make(map[string][]uint64)
	var unresolved []string
	for hash, offsets := range placeholders {
		name, ok := hashToName[hash]
		if !ok {
			unresolved = append(unresolved, hash)
			continue
		}
		resolved[name] = append(resolved[name], offsets...)
	}
	slices.Sort(unresolved)
	return resolved, unresolved
}
