// Package base85 implements the base-85 line encoding used to embed
// binary diff payloads inline in a patch, together with the
// deflate/inflate adapter used to compress and decompress the
// underlying binary content.
package base85

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// alphabet is the 85-character RFC 1924-style alphabet used for
// binary patch payloads.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz!#$%&()*+-;<=>?@^_`{|}~"

var decodeTable [256]int16

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}
	for i, c := range []byte(alphabet) {
		decodeTable[c] = int16(i)
	}
}

// encodeGroup encodes up to 4 bytes of src (zero-padded conceptually)
// into 5 base85 characters appended to dst.
func encodeGroup(dst []byte, src []byte) []byte {
	var word uint32
	for i := 0; i < 4; i++ {
		word <<= 8
		if i < len(src) {
			word |= uint32(src[i])
		}
	}
	var buf [5]byte
	for i := 4; i >= 0; i-- {
		buf[i] = alphabet[word%85]
		word /= 85
	}
	return append(dst, buf[:]...)
}

// decodeGroup decodes 5 base85 characters from src into up to
// len(dst) raw bytes (dst must have length 1-4).
func decodeGroup(dst []byte, src []byte) error {
	var word uint32
	for i := 0; i < 5; i++ {
		v := decodeTable[src[i]]
		if v < 0 {
			return fmt.Errorf("base85: invalid character %q", src[i])
		}
		word = word*85 + uint32(v)
	}
	var buf [4]byte
	buf[0] = byte(word >> 24)
	buf[1] = byte(word >> 16)
	buf[2] = byte(word >> 8)
	buf[3] = byte(word)
	copy(dst, buf[:len(dst)])
	return nil
}

// lengthByte encodes n (1..52) as the patch-line length prefix
// character: 'A'..'Z' for 1..26, 'a'..'z' for 27..52.
func lengthByte(n int) byte {
	if n <= 26 {
		return byte('A' + n - 1)
	}
	return byte('a' + n - 27)
}

// decodeLengthByte is the inverse of lengthByte.
func decodeLengthByte(c byte) (int, error) {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 1, nil
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 27, nil
	default:
		return 0, fmt.Errorf("base85: invalid length byte %q", c)
	}
}

// EncodeLines encodes data as a sequence of git-style base85 patch
// lines: each line carries a length-prefix byte for up to 52 raw
// bytes, followed by the base85 digits for that chunk (5 chars per 4
// raw bytes, the final group zero-padded), and a trailing newline.
func EncodeLines(data []byte) []byte {
	var out bytes.Buffer
	for len(data) > 0 {
		n := len(data)
		if n > 52 {
			n = 52
		}
		chunk := data[:n]
		data = data[n:]

		out.WriteByte(lengthByte(n))
		var line []byte
		for i := 0; i < len(chunk); i += 4 {
			end := i + 4
			if end > len(chunk) {
				end = len(chunk)
			}
			line = encodeGroup(line, chunk[i:end])
		}
		out.Write(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// DecodeLines parses base85 patch lines (each still starting with its
// length byte, with the trailing newline stripped) back into the raw
// concatenated byte stream. Each line's declared length n must satisfy
// maxLen-3 <= n <= maxLen, where maxLen is 4 bytes for each 5-digit
// group on the line.
func DecodeLines(lines [][]byte) ([]byte, error) {
	var out bytes.Buffer
	for lineno, line := range lines {
		if len(line) < 1 {
			return nil, fmt.Errorf("base85: empty line %d", lineno+1)
		}
		n, err := decodeLengthByte(line[0])
		if err != nil {
			return nil, fmt.Errorf("base85: line %d: %w", lineno+1, err)
		}
		digits := line[1:]
		if len(digits)%5 != 0 {
			return nil, fmt.Errorf("base85: line %d: digit count %d not a multiple of 5", lineno+1, len(digits))
		}
		groups := len(digits) / 5
		maxLen := groups * 4
		if n > maxLen || n < maxLen-3 {
			return nil, fmt.Errorf("base85: line %d: declared length %d out of range [%d,%d]", lineno+1, n, maxLen-3, maxLen)
		}

		raw := make([]byte, 0, maxLen)
		for i := 0; i < groups; i++ {
			var buf [4]byte
			if err := decodeGroup(buf[:], digits[i*5:i*5+5]); err != nil {
				return nil, fmt.Errorf("base85: line %d: %w", lineno+1, err)
			}
			raw = append(raw, buf[:]...)
		}
		if n < len(raw) {
			raw = raw[:n]
		}
		out.Write(raw)
	}
	return out.Bytes(), nil
}

// Deflate compresses raw bytes with zlib, the codec used for binary
// patch payloads.
func Deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a zlib stream and verifies the result is
// exactly declaredLen bytes, the size announced by the binary hunk's
// "literal <N>" / "delta <N>" header.
func Inflate(compressed []byte, declaredLen int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("base85: inflate: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("base85: inflate: %w", err)
	}
	if len(raw) != declaredLen {
		return nil, fmt.Errorf("base85: inflate: declared length %d but got %d", declaredLen, len(raw))
	}
	return raw, nil
}
