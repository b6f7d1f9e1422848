package protocol

import (
	"bufio"
	"errors"
	"io"
)

var ErrLineTooLong = errors.New("command exceeds buffer size")

// Reader splits a byte stream into lines no longer than the configured size.
// Oversized lines are skipped whole and reported as ErrLineTooLong; the
// stream stays usable afterwards.
type Reader struct {
	br *bufio.Reader
}

func NewReader(r io.Reader, maxSize int) *Reader {
	if maxSize < 16 {
		maxSize = 16
	}
	return &Reader{br: bufio.NewReaderSize(r, maxSize)}
}

// ReadLine returns the next line without its newline. The slice is a copy.
func (r *Reader) ReadLine() ([]byte, error) {
	line, err := r.br.ReadSlice('\n')
	if err == nil {
		return append([]byte(nil), line[:len(line)-1]...), nil
	}
	if errors.Is(err, bufio.ErrBufferFull) {
		for errors.Is(err, bufio.ErrBufferFull) {
			_, err = r.br.ReadSlice('\n')
		}
		if err != nil {
			return nil, err
		}
		return nil, ErrLineTooLong
	}
	if errors.Is(err, io.EOF) && len(line) > 0 {
		return append([]byte(nil), line...), nil
	}
	return nil, err
}

// ReadCommand reads and decodes the next frame.
func (r *Reader) ReadCommand() (Command, error) {
	line, err := r.ReadLine()
	if err != nil {
		return Command{}, err
	}
	return Decode(line)
}
