package tool

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrLimitExceeded is returned by CopyWithContext when src holds more than the allowed bytes.
var ErrLimitExceeded = errors.New("size limit exceeded")

const copyBufferSize = 1024 * 1024

// CopyWithContext copies from src to dst while respecting context cancellation.
// A limit > 0 stops the copy with ErrLimitExceeded as soon as more than limit bytes were read.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader, limit int64) (int64, error) {
	if limit > 0 {
		src = io.LimitReader(src, limit+1)
	}
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		nr, readErr := src.Read(buf)
		if nr > 0 {
			if limit > 0 && written+int64(nr) > limit {
				return written, ErrLimitExceeded
			}
			nw, writeErr := dst.Write(buf[0:nr])
			if nw < 0 || nr < nw {
				nw = 0
				if writeErr == nil {
					writeErr = fmt.Errorf("invalid write result")
				}
			}
			written += int64(nw)
			if writeErr != nil {
				return written, writeErr
			}
			if nr != nw {
				return written, io.ErrShortWrite
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, readErr
		}
	}
}
