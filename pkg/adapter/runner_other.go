//go:build !unix

package adapter

import "os/exec"

// configureProcessGroup keeps the exec default of killing only the direct child.
func configureProcessGroup(_ *exec.Cmd) {}
