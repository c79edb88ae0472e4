package logging

// These constants are used to identify the various services that may do some logging
const (
	// COMPILATION_SERVICE is the constant used to identify the dispatch and build packages
	COMPILATION_SERVICE = "compilation"
	// LINKING_SERVICE is the constant used to identify the linker
	LINKING_SERVICE = "linking"
	// WORKER_SERVICE is the constant used to identify worker processes
	WORKER_SERVICE = "worker"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
