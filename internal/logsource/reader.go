package logsource

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// DefaultMaxLineSize is the default maximum size (in bytes) of a single line.
const DefaultMaxLineSize = 1024 * 1024 // 1MB

// Config holds tunable parameters for Read.
type Config struct {
	ModuleKey   string
	MaxLineSize int
}

// Read scans r until EOF or ctx is cancelled and calls emit for every
// non-empty line, in order. It returns nil at EOF and on cancellation.
// A line longer than MaxLineSize is logged and skipped; only a failing
// reader stops Read with an error.
func Read(ctx context.Context, r io.Reader, cfg Config, emit func(Line)) error {
	maxLineSize := cfg.MaxLineSize
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	parser := NewParser(cfg.ModuleKey)
	br := bufio.NewReaderSize(r, min(64*1024, maxLineSize))

	// The read blocks on r, so it runs on its own goroutine and the loop
	// below can still observe ctx.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			line, skipped, err := readLine(br, maxLineSize)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- fmt.Errorf("logsource: read: %w", err)
				}
				return
			}
			if skipped > 0 {
				slog.Warn("logsource: line exceeded max size, skipped",
					"max_line_size", maxLineSize, "bytes", skipped)
				continue
			}
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			emit(parser.Parse(line))
		}
	}
}

// readLine returns the next line without its "\n" or "\r\n" terminator.
// A line longer than limit is consumed and discarded, and skipped reports how
// many bytes were dropped. io.EOF is returned only when no bytes remain.
func readLine(br *bufio.Reader, limit int) (line string, skipped int, err error) {
	var (
		buf     []byte
		n       int
		tooLong bool
	)
	for {
		chunk, rerr := br.ReadSlice('\n')
		n += len(chunk)
		if !tooLong {
			buf = append(buf, chunk...)
			if len(trimEOL(buf)) > limit {
				tooLong, buf = true, nil
			}
		}
		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if rerr != nil && !(errors.Is(rerr, io.EOF) && n > 0) {
			return "", 0, rerr
		}
		break
	}

	if tooLong {
		return "", n, nil
	}
	return string(trimEOL(buf)), 0, nil
}

func trimEOL(b []byte) []byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	return bytes.TrimSuffix(b, []byte("\r"))
}
