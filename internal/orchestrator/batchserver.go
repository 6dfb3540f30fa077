package orchestrator

import (
	"errors"
	"os"
	"syscall"

	"github.com/geopm-project/platformio-go/internal/ioerr"
)

// StartBatchServer is the historical out-of-process batch-server hook,
// long deprecated in favor of external batch tooling. The contract is
// kept for callers that still probe it, and it reports NotImplemented
// unconditionally.
func (o *Orchestrator) StartBatchServer(clientPID int) (serverPID int, serverKey string, err error) {
	return 0, "", ioerr.New(ioerr.KindNotImplemented, "start_batch_server", "deprecated; out-of-process batching is not implemented").WithName("")
}

// StopBatchServer delivers a termination signal to a previously started
// batch server by PID. A process that has already exited is not an error.
func (o *Orchestrator) StopBatchServer(serverPID int) error {
	proc, err := os.FindProcess(serverPID)
	if err != nil {
		return ioerr.Newf(ioerr.KindRuntime, "stop_batch_server", "%v", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) || err == syscall.ESRCH || os.IsNotExist(err) {
			return nil
		}
		return ioerr.Newf(ioerr.KindIo, "stop_batch_server", "%v", err)
	}
	return nil
}
