// Package lines splits text input the way text-mode file reads do: a line ends
// at "\n", "\r\n" or a bare "\r", and line length is not bounded.
package lines

import (
	"bufio"
	"errors"
	"io"
)

// Each calls fn for every line in r with its terminator removed. A final line
// without a terminator is still reported; an empty input reports nothing.
func Each(r io.Reader, fn func(line string)) error {
	br := bufio.NewReader(r)
	var buf []byte

	for {
		chunk, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			buf = append(buf, chunk...)
			continue
		}
		buf = append(buf, chunk...)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		emit(buf, fn)
		buf = buf[:0]

		if err != nil {
			return nil
		}
	}
}

// emit reports the lines in chunk, which holds at most one "\n", at its end.
func emit(chunk []byte, fn func(string)) {
	if len(chunk) == 0 {
		return
	}
	if chunk[len(chunk)-1] == '\n' {
		chunk = chunk[:len(chunk)-1]
		if n := len(chunk); n > 0 && chunk[n-1] == '\r' {
			chunk = chunk[:n-1]
		}
		splitCR(chunk, fn, true)
		return
	}
	splitCR(chunk, fn, false)
}

// splitCR reports the "\r"-terminated lines in chunk. The remainder after the
// last "\r" is reported when terminated is true or when it is not empty.
func splitCR(chunk []byte, fn func(string), terminated bool) {
	start := 0
	for i, b := range chunk {
		if b == '\r' {
			fn(string(chunk[start:i]))
			start = i + 1
		}
	}
	if rest := chunk[start:]; terminated || len(rest) > 0 {
		fn(string(rest))
	}
}
