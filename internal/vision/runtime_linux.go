//go:build linux

package vision

import (
	"os/exec"
)

func FindRuntime(runtime string) (string, error) {
	binPath, err := exec.LookPath(runtime)
	if err != nil {
		return "", err
	}

	return binPath, nil
}
