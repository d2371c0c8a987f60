package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ErrExists is returned by exclusive writers when the target file exists.
var ErrExists = errors.New("output file already exists")

// Writer is the interface for output destinations.
type Writer interface {
	// Write sends serialized bytes to the output destination.
	Write(data []byte) error
}

// StdoutWriter writes serialized output to os.Stdout.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a writer that sends output to the given writer.
// If w is nil, os.Stdout is used.
func NewStdoutWriter(w io.Writer) *StdoutWriter {
	if w == nil {
		w = os.Stdout
	}

	return &StdoutWriter{out: w}
}

// Write sends data to stdout.
func (sw *StdoutWriter) Write(data []byte) error {
	_, err := sw.out.Write(data)
	if err != nil {
		return fmt.Errorf("writing to stdout: %w", err)
	}

	return nil
}

// FileWriter writes serialized output to a file, creating parent
// directories as needed.
type FileWriter struct {
	path      string
	perm      os.FileMode
	fs        afero.Fs
	exclusive bool
	logger    *slog.Logger
}

// FileWriterOption configures a FileWriter.
type FileWriterOption func(*FileWriter)

// WithPermissions overrides the default file permissions (0644).
func WithPermissions(perm os.FileMode) FileWriterOption {
	return func(fw *FileWriter) {
		fw.perm = perm
	}
}

// WithLogger sets a logger for the FileWriter.
func WithLogger(logger *slog.Logger) FileWriterOption {
	return func(fw *FileWriter) {
		fw.logger = logger
	}
}

// WithFs sets the filesystem. The default is the OS filesystem.
func WithFs(fs afero.Fs) FileWriterOption {
	return func(fw *FileWriter) {
		fw.fs = fs
	}
}

// WithExclusive makes Write fail with ErrExists instead of replacing an
// existing file.
func WithExclusive() FileWriterOption {
	return func(fw *FileWriter) {
		fw.exclusive = true
	}
}

// NewFileWriter creates a writer that writes to the specified file path.
func NewFileWriter(path string, opts ...FileWriterOption) *FileWriter {
	fw := &FileWriter{
		path:   path,
		perm:   0o644,
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(fw)
	}

	return fw
}

// Write creates parent directories and writes data to the file.
func (fw *FileWriter) Write(data []byte) error {
	dir := filepath.Dir(fw.path)
	if err := fw.fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC

	if fw.exclusive {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	} else if exists, _ := afero.Exists(fw.fs, fw.path); exists {
		fw.logger.Warn("overwriting existing file", slog.String("path", fw.path))
	}

	f, err := fw.fs.OpenFile(fw.path, flags, fw.perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, fw.path)
		}

		return fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing file %s: %w", fw.path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", fw.path, err)
	}

	return nil
}

// Path returns the output file path.
func (fw *FileWriter) Path() string {
	return fw.path
}
