package tlsengine

//
// Process-wide engine initialization
//

import (
	"io"
	"os"
	"sync"

	"github.com/ooni/btls/internal/model"
)

var (
	// initOnce guarantees that Init runs once.
	initOnce sync.Once

	// keyLogMu protects keyLogWriter.
	keyLogMu sync.RWMutex

	// keyLogWriter is the OPTIONAL writer for SSLKEYLOGFILE.
	keyLogWriter io.Writer
)

// Init performs the process-wide engine initialization. It is idempotent and
// the attach operations call it implicitly. When the SSLKEYLOGFILE
// environment variable is set, we append the session secrets to such file
// using the NSS key log format (useful with Wireshark).
func Init(logger model.DebugLogger) {
	initOnce.Do(func() {
		path := os.Getenv("SSLKEYLOGFILE")
		if path == "" {
			return
		}
		filep, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err != nil {
			logger.Debugf("tlsengine: cannot open SSLKEYLOGFILE: %s", err.Error())
			return
		}
		logger.Debugf("tlsengine: logging TLS secrets to %s", path)
		SetKeyLogWriter(filep)
	})
}

// SetKeyLogWriter overrides the key log writer. Pass nil to disable
// key logging. We close the previous writer if it's an [io.Closer].
func SetKeyLogWriter(w io.Writer) {
	keyLogMu.Lock()
	defer keyLogMu.Unlock()
	if closer, ok := keyLogWriter.(io.Closer); ok {
		closer.Close()
	}
	keyLogWriter = w
}

// KeyLogWriter returns the key log writer or nil.
func KeyLogWriter() io.Writer {
	keyLogMu.RLock()
	defer keyLogMu.RUnlock()
	return keyLogWriter
}
