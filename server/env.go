package server

import (
	"log"
	"os"
)

const (
	sshAddrEnvName     = "WEBIDE_SSH_ADDR"
	sshUserEnvName     = "WEBIDE_SSH_USER"
	sshPasswordEnvName = "WEBIDE_SSH_PASSWORD"
)

type sshConfig struct {
	Addr     string
	User     string
	Password string
}

// getEnvSSH returns nil when no remote sandbox host is configured, in
// which case the sandbox runs locally.
func getEnvSSH() *sshConfig {
	addr := os.Getenv(sshAddrEnvName)
	if addr == "" {
		return nil
	}

	user, password := os.Getenv(sshUserEnvName), os.Getenv(sshPasswordEnvName)
	if user == "" {
		log.Printf("$%s set but $%s is empty, ignoring remote sandbox", sshAddrEnvName, sshUserEnvName)
		return nil
	}

	return &sshConfig{Addr: addr, User: user, Password: password}
}
