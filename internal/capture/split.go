package capture

import "bytes"

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// splitJPEG is a bufio.SplitFunc yielding each complete SOI..EOI image in an
// MJPEG byte stream. Bytes outside an image are discarded, as is a truncated
// image at EOF.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		switch {
		case atEOF:
			return len(data), nil, nil
		case len(data) < 2:
			return 0, nil, nil
		default:
			// keep a trailing 0xFF that may begin the next marker
			return len(data) - 1, nil, nil
		}
	}

	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}

	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}
