package config

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProjectNameLength = 255

	// MaxResourceNameLength is the maximum length of a folder or item display name
	MaxResourceNameLength = 255

	// MaxDropBatchSize caps how many resources or files one drop request may carry
	MaxDropBatchSize = 500

	// MaxPathLength bounds index paths and file paths sent by clients
	MaxPathLength = 4096

	// MaxRequestBodyBytes caps JSON request bodies
	MaxRequestBodyBytes = 10 << 20

	// MaxLogFiles is how many server log files SetupLogFile keeps
	MaxLogFiles = 10
)
