package position

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

var deckType = filetype.NewType("html", "text/html")

func init() {
	filetype.AddMatcher(deckType, func(buf []byte) bool {
		return looksLikeDeck(buf)
	})
}

// looksLikeDeck sniffs buffer content for an HTML document, skipping a
// leading BOM if present.
func looksLikeDeck(buf []byte) bool {
	switch detectUTF(buf) {
	case encUTF8:
		buf = buf[3:]
	case encUTF32BigEndian, encUTF32LittleEndian:
		// would need decoding to sniff, let the reader deal with it
		return true
	case encUTF16BigEndian, encUTF16LittleEndian:
		return true
	}
	head := strings.ToLower(string(bytes.TrimLeft(buf, " \t\r\n")))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<?xml")
}

// isArchiveFile checks if the file at path is a zip archive.
func isArchiveFile(path string) (bool, error) {
	buf, err := readFileHead(path)
	if err != nil {
		return false, err
	}
	t, err := filetype.Match(buf)
	if err != nil {
		return false, err
	}
	return t == matchers.TypeZip, nil
}

// isDeckFile checks if the file at path is an HTML deck document and detects
// its source encoding from a BOM if one is present.
func isDeckFile(path string) (bool, srcEncoding, error) {
	if !hasDeckExt(path) {
		return false, encUnknown, nil
	}
	buf, err := readFileHead(path)
	if err != nil {
		return false, encUnknown, err
	}
	return looksLikeDeck(buf), detectUTF(buf), nil
}

// isDeckInArchive checks if the zip entry is an HTML deck document.
func isDeckInArchive(f *zip.File) (bool, srcEncoding, error) {
	if !hasDeckExt(f.FileHeader.Name) {
		return false, encUnknown, nil
	}
	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, encUnknown, err
	}
	buf = buf[:n]
	return looksLikeDeck(buf), detectUTF(buf), nil
}

func hasDeckExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

func readFileHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// detectUTF looks for a unicode byte order mark at the beginning of the
// buffer. Order matters - UTF-32LE BOM starts with the UTF-16LE one.
func detectUTF(buf []byte) srcEncoding {
	if len(buf) >= 4 {
		if isUTF32BigEndianBOM4(buf) {
			return encUTF32BigEndian
		}
		if isUTF32LittleEndianBOM4(buf) {
			return encUTF32LittleEndian
		}
	}
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return encUTF8
	}
	if len(buf) >= 2 {
		if isUTF16BigEndianBOM2(buf) {
			return encUTF16BigEndian
		}
		if isUTF16LittleEndianBOM2(buf) {
			return encUTF16LittleEndian
		}
	}
	return encUnknown
}

func isUTF8BOM3(buf []byte) bool {
	return buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// selectReader wraps r with a decoder matching the detected encoding, so the
// XML parser always sees UTF-8 without a BOM.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return unicode.UTF8BOM.NewDecoder().Reader(r)
	case encUTF16BigEndian:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Reader(r)
	case encUTF16LittleEndian:
		return unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Reader(r)
	case encUTF32BigEndian:
		return utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder().Reader(r)
	case encUTF32LittleEndian:
		return utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder().Reader(r)
	default:
		// this should never happen
		panic("unsupported source encoding")
	}
}
