package praxia

const (
	// Name is the service name reported in logs and health responses
	Name = "praxia"

	// Version is the engine release
	Version = "0.4.0"
)
