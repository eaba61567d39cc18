//go:build !unix

package resolver

import "os/exec"

func killProcessGroup(cmd *exec.Cmd) {}
