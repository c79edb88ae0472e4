package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/crytic/solbuild/cmd/exitcodes"
	"github.com/crytic/solbuild/compilation/evmobject"
	"github.com/crytic/solbuild/compilation/types"
	"github.com/crytic/solbuild/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// linkCmd represents the command provider for linking hex bytecode files
var linkCmd = &cobra.Command{
	Use:   "link [files]",
	Short: "Links library addresses into hex bytecode files",
	Long: `Replaces the library placeholders of hex bytecode files with the addresses of the given libraries. Files are
rewritten in place and a JSON report of linked, unlinked and ignored files is written to stdout.`,
	Args:              cobra.MinimumNArgs(1),
	ValidArgsFunction: cmdValidUnusedFlags,
	RunE:              cmdRunLink,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	linkCmd.Flags().StringSlice("libraries", []string{}, LibrariesFlagDescription)
	linkCmd.Flags().Bool("require-linked", false, "fail if any file is left with library placeholders")
	rootCmd.AddCommand(linkCmd)
}

// linkReport describes the outcome of linking a set of files.
type linkReport struct {
	// Linked describes the files which no longer contain placeholders.
	Linked []string `json:"linked"`

	// Unlinked maps files to the placeholder hashes left in them.
	Unlinked map[string][]string `json:"unlinked"`

	// Ignored describes the files which are not hex bytecode or contain no placeholders.
	Ignored []string `json:"ignored"`
}

// linkFileResult describes the outcome of linking one file.
type linkFileResult int

const (
	linkFileIgnored linkFileResult = iota
	linkFileLinked
	linkFileUnlinked
)

// linkFile links the libraries of a single hex bytecode file, rewriting it if any placeholder was resolved. The
// placeholder hashes left unresolved are returned.
func linkFile(path string, symbols types.LinkerSymbols) (linkFileResult, []string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return linkFileIgnored, nil, errors.WithStack(err)
	}

	code, placeholders, err := types.DecodeBytecodeHex(string(content))
	if err != nil {
		cmdLogger.Warn("Ignoring ", colors.Bold, path, colors.Reset, ": ", err)
		return linkFileIgnored, nil, nil
	}
	if len(placeholders) == 0 {
		return linkFileIgnored, nil, nil
	}

	resolved, unresolved := types.ResolvePlaceholders(placeholders, symbols.Names())
	linked, _, err := evmobject.Link(code, resolved, symbols)
	if err != nil {
		return linkFileIgnored, nil, err
	}

	if len(resolved) > 0 {
		remaining := make(map[string][]uint64, len(unresolved))
		for _, hash := range unresolved {
			remaining[hash] = placeholders[hash]
		}
		if err = os.WriteFile(path, []byte(types.EncodePlaceholderHex(linked, remaining)), 0644); err != nil {
			return linkFileIgnored, nil, errors.WithStack(err)
		}
	}

	if len(unresolved) > 0 {
		return linkFileUnlinked, unresolved, nil
	}
	return linkFileLinked, nil, nil
}

// linkFiles links every file and builds a report.
func linkFiles(paths []string, symbols types.LinkerSymbols) (*linkReport, error) {
	report := &linkReport{Linked: []string{}, Unlinked: map[string][]string{}, Ignored: []string{}}
	for _, path := range paths {
		result, unresolved, err := linkFile(path, symbols)
		if err != nil {
			return nil, errors.Wrapf(err, "could not link '%s'", path)
		}
		switch result {
		case linkFileLinked:
			report.Linked = append(report.Linked, path)
		case linkFileUnlinked:
			report.Unlinked[path] = unresolved
		default:
			report.Ignored = append(report.Ignored, path)
		}
	}
	return report, nil
}

// cmdRunLink executes the CLI link command
func cmdRunLink(cmd *cobra.Command, args []string) error {
	libraries, err := cmd.Flags().GetStringSlice("libraries")
	if err != nil {
		return err
	}
	requireLinked, err := cmd.Flags().GetBool("require-linked")
	if err != nil {
		return err
	}

	symbols, err := types.ParseLibraries(libraries)
	if err != nil {
		cmdLogger.Error("Failed to parse libraries", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	report, err := linkFiles(args, symbols)
	if err != nil {
		cmdLogger.Error("Failed to run the link command", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	b, err := json.MarshalIndent(report, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}
	fmt.Println(string(b))

	if len(report.Unlinked) > 0 {
		files := maps.Keys(report.Unlinked)
		slices.Sort(files)
		cmdLogger.Warn(len(files), " files still reference unlinked libraries: ", files)
		if requireLinked {
			return exitcodes.NewErrorWithExitCode(nil, exitcodes.ExitCodeUnlinkedLibraries)
		}
	}
	return nil
}
