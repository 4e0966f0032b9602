package motoril

import (
	"bufio"
	"errors"
	"io"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultHelperPath is the route/ring helper shipped with the vendor RIL.
const DefaultHelperPath = "/system/bin/motorilc"

// slowHelper is how long a helper may block the dispatch goroutine before it gets reported.
const slowHelper = time.Second

// Helper runs the external helper with the given arguments and returns once it exited.
type Helper interface {
	Run(args ...string)
}

// ExecHelper starts the helper binary as a child process. Its output is logged line by line and
// the call blocks until the process exits, there is no timeout. Failures are logged only.
type ExecHelper struct {
	Path string
}

// Run implements Helper.
func (h ExecHelper) Run(args ...string) {
	entry := log.WithFields(log.Fields{"helper": h.Path, "args": args})
	start := time.Now()
	cmd := exec.Command(h.Path, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		entry.WithField("err", err).Error("could not run helper")
		return
	}
	if err := cmd.Start(); err != nil {
		entry.WithField("err", err).Error("could not run helper")
		return
	}
	// read to EOF whatever the line length, the child must never block on a full pipe
	reader := bufio.NewReader(stdout)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			entry.Info(line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				entry.WithField("err", err).Warn("could not read helper output")
				io.Copy(io.Discard, stdout) //nolint:errcheck
			}
			break
		}
	}
	err = cmd.Wait()
	elapsed := time.Since(start)
	entry = entry.WithFields(log.Fields{"elapsed": elapsed, "exit": cmd.ProcessState.ExitCode()})
	if err != nil {
		entry.WithField("err", err).Debug("helper finished")
	} else {
		entry.Debug("helper finished")
	}
	if elapsed > slowHelper {
		entry.Warn("helper blocked RIL response processing")
	}
}
