package provider

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// DecodeFlatXML collects the text of every leaf element into a map keyed by
// the element's local name. Wrapper elements, attributes and CDATA sections
// are tolerated; the first occurrence of a repeated leaf wins.
func DecodeFlatXML(data []byte) (map[string]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	type frame struct {
		name     string
		text     strings.Builder
		hasChild bool
	}

	result := map[string]string{}
	stack := make([]*frame, 0, 4)
	sawElement := false

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			sawElement = true
			if len(stack) > 0 {
				stack[len(stack)-1].hasChild = true
			}
			stack = append(stack, &frame{name: t.Name.Local})
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if current.hasChild {
				continue
			}
			if _, exists := result[current.name]; !exists {
				result[current.name] = strings.TrimSpace(current.text.String())
			}
		}
	}

	if !sawElement {
		return nil, errors.New("xml document has no elements")
	}
	return result, nil
}

func looksLikeXML(contentType string, body []byte) bool {
	contentType = strings.ToLower(contentType)
	if strings.Contains(contentType, "xml") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}
