package cmd

// TargetFlagDescription describes the --target flag shared by the build and init commands.
const TargetFlagDescription = "path to the project file holding the EVM assembly of every contract"

// LibrariesFlagDescription describes the --libraries flag shared by the build and link commands.
const LibrariesFlagDescription = "deployed libraries to link, each of the form <path>:<name>=<address>"
