package backend

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// sseEvent is one dispatched server-sent event.
type sseEvent struct {
	Name string
	Data string
}

// sseReader decodes a text/event-stream body. Only the event and data fields
// matter here; id and retry are accepted and ignored.
type sseReader struct {
	sc *bufio.Scanner
}

func newSSEReader(r io.Reader, maxEventBytes int) *sseReader {
	sc := bufio.NewScanner(r)
	initial := 64 * 1024
	if maxEventBytes < initial {
		initial = maxEventBytes
	}
	sc.Buffer(make([]byte, 0, initial), maxEventBytes)
	sc.Split(scanSSELines)
	return &sseReader{sc: sc}
}

// Next returns the next complete event. It returns io.EOF once the body ends;
// a trailing event without its blank-line terminator is discarded.
func (r *sseReader) Next() (sseEvent, error) {
	var (
		name    string
		data    strings.Builder
		hasData bool
	)
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			if !hasData {
				name = ""
				continue
			}
			return sseEvent{Name: name, Data: data.String()}, nil
		}
		if line[0] == ':' {
			continue
		}

		field, value := line, []byte(nil)
		if i := bytes.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], line[i+1:]
			value = bytes.TrimPrefix(value, []byte(" "))
		}

		switch string(field) {
		case "event":
			name = string(value)
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.Write(value)
			hasData = true
		}
	}
	if err := r.sc.Err(); err != nil {
		return sseEvent{}, err
	}
	return sseEvent{}, io.EOF
}

// scanSSELines splits on LF, CRLF or a lone CR.
func scanSSELines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		// CR: need one more byte to tell CRLF from a lone CR
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
