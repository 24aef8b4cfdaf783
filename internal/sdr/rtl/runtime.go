package rtl

import "os/exec"

// Runtime is the capture tool executed to stream raw I/Q samples.
const Runtime = "rtl_sdr"

func findRuntime() (string, error) {
	return exec.LookPath(Runtime)
}
