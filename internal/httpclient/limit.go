package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ResponseTooLargeError reports an upstream reply whose body ran past the
// caller's cap. The partial body is discarded; callers treat it like any
// other transport failure.
type ResponseTooLargeError struct {
	Limit int64
}

func (e *ResponseTooLargeError) Error() string {
	return fmt.Sprintf("reply body larger than the %d byte cap", e.Limit)
}

// IsResponseTooLarge reports whether err is a ResponseTooLargeError.
func IsResponseTooLarge(err error) bool {
	var tooLarge *ResponseTooLargeError
	return errors.As(err, &tooLarge)
}

// ReadAllWithLimit drains r, failing as soon as the body proves bigger than
// limit bytes. A non-positive limit disables the cap.
func ReadAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, limit)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) == limit {
		// A body of exactly limit bytes is fine; one more byte is overflow.
		var probe [1]byte
		n, err := r.Read(probe[:])
		if n > 0 {
			return nil, &ResponseTooLargeError{Limit: limit}
		}
		if err != nil && err != io.EOF {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
