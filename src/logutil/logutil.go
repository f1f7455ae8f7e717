package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

const (
	LogFileName  = "screenclip_debug.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

// Setup routes the standard logger. File logging rotates at 10MB keeping 3
// archives; verbose additionally copies every line to stderr. With neither,
// logs are discarded so the terminal stays clean.
func Setup(enableFileLogging, verbose bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var writers []io.Writer
	if verbose {
		writers = append(writers, os.Stderr)
	}
	if enableFileLogging {
		w, err := OpenRotating(LogFileName, maxSizeBytes, maxArchives)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		} else {
			writers = append(writers, w)
		}
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}
}

// RotatingWriter appends to path and shifts it to path.1 .. path.N once it
// would grow past maxSize.
type RotatingWriter struct {
	mu       sync.Mutex
	path     string
	maxSize  int64
	archives int
	f        *os.File
}

func OpenRotating(path string, maxSize int64, archives int) (*RotatingWriter, error) {
	w := &RotatingWriter{path: path, maxSize: maxSize, archives: archives}
	w.rotateIfNeeded(0)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	w.f = f
	return w, nil
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size() > 0 && st.Size()+int64(len(p)) > w.maxSize {
		_ = w.f.Close()
		w.rotateIfNeeded(int64(len(p)))
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func (w *RotatingWriter) rotateIfNeeded(incoming int64) {
	st, err := os.Stat(w.path)
	if err != nil || st.Size() == 0 || st.Size()+incoming <= w.maxSize {
		return
	}
	// oldest is discarded
	_ = os.Remove(w.archiveName(w.archives))
	for i := w.archives - 1; i >= 1; i-- {
		_ = os.Rename(w.archiveName(i), w.archiveName(i+1))
	}
	_ = os.Rename(w.path, w.archiveName(1))
}

func (w *RotatingWriter) archiveName(n int) string { return fmt.Sprintf("%s.%d", w.path, n) }
