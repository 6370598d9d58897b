// Package document extracts the paragraph sequence of an uploaded rubric file.
package document

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	docxMIME        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	wordNamespace   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart    = "word/document.xml"
	maxDocumentPart = 32 << 20
)

var (
	// ErrUnsupportedFormat indicates a file that is neither a Word document nor plain text.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptDocument indicates a Word document that cannot be read.
	ErrCorruptDocument = errors.New("document cannot be read")
	// ErrEmptyPayload indicates an upload with no bytes.
	ErrEmptyPayload = errors.New("document is empty")
)

// Decoded is the paragraph sequence of a document together with its detected type.
type Decoded struct {
	Lines []string
	MIME  string
}

// Decode detects the payload type and returns its paragraphs in document order.
// Blank paragraphs are kept so line numbers match the source.
func Decode(name string, payload []byte) (Decoded, error) {
	if len(payload) == 0 {
		return Decoded{}, ErrEmptyPayload
	}

	detected := mimetype.Detect(payload)
	switch {
	case detected.Is(docxMIME), descendsFrom(detected, "application/zip") && strings.HasSuffix(strings.ToLower(name), ".docx"):
		lines, err := decodeDocx(payload)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Lines: lines, MIME: docxMIME}, nil
	case descendsFrom(detected, "text/plain"):
		return Decoded{Lines: splitLines(payload), MIME: "text/plain"}, nil
	default:
		return Decoded{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, detected.String())
	}
}

func descendsFrom(detected *mimetype.MIME, expected string) bool {
	for m := detected; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return true
		}
	}
	return false
}

func decodeDocx(payload []byte) ([]string, error) {
	archive, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}

	for _, file := range archive.File {
		if file.Name != documentPart {
			continue
		}
		reader, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		defer reader.Close()
		return paragraphs(io.LimitReader(reader, maxDocumentPart))
	}

	return nil, fmt.Errorf("%w: missing %s", ErrCorruptDocument, documentPart)
}

// paragraphs walks the WordprocessingML body. Runs of w:t inside one w:p form a line;
// tabs and breaks become spaces.
func paragraphs(reader io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(reader)

	var (
		lines   []string
		current strings.Builder
		inPara  bool
		inText  bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}

		switch el := token.(type) {
		case xml.StartElement:
			if el.Name.Space != wordNamespace {
				continue
			}
			switch el.Name.Local {
			case "p":
				inPara = true
				current.Reset()
			case "t":
				inText = true
			case "tab", "br", "cr":
				if inPara {
					current.WriteByte(' ')
				}
			}
		case xml.EndElement:
			if el.Name.Space != wordNamespace {
				continue
			}
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara {
					lines = append(lines, current.String())
				}
				inPara = false
			}
		case xml.CharData:
			if inPara && inText {
				current.Write(el)
			}
		}
	}

	return lines, nil
}

func splitLines(payload []byte) []string {
	payload = bytes.TrimPrefix(payload, []byte("\xef\xbb\xbf"))
	scanner := bufio.NewScanner(bytes.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), len(payload)+1)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	return lines
}
