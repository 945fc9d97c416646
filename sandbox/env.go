package sandbox

import (
	"log"
	"os"
	"path/filepath"
)

const (
	rootEnvName        = "WEBIDE_SANDBOX_ROOT"
	interpreterEnvName = "WEBIDE_INTERPRETER"
)

var (
	sandboxRoot = getEnvRoot()
	interpreter = getEnvInterpreter()
)

// DefaultRoot is the configured sandbox root directory.
func DefaultRoot() string {
	return sandboxRoot
}

func getEnvRoot() string {
	if root := os.Getenv(rootEnvName); root != "" {
		return root
	}
	log.Printf("$%s not set, using a directory under the system temp dir", rootEnvName)
	return filepath.Join(os.TempDir(), "webide-sandbox")
}

func getEnvInterpreter() string {
	if interp := os.Getenv(interpreterEnvName); interp != "" {
		return interp
	}
	log.Printf("$%s not set, default to node", interpreterEnvName)
	return "node"
}
