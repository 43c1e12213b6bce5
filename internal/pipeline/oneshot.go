package pipeline

import (
	"fmt"
	"os"

	"chemdesk/internal"
)

// ExtractItemsFromInput handles one-shot runs: text and html take the input
// verbatim (or a file path upstream has already read), xlsx and pdf take a
// file path.
func ExtractItemsFromInput(inputType string, input string) ([]internal.ExtractionItem, error) {
	switch inputType {
	case "text":
		return parseTextLines(input), nil
	case "html":
		return parseHTMLTable(input), nil
	case "xlsx":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parseXLSX(blob)
	case "pdf":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parsePDF(blob)
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}
