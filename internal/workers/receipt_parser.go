// internal/workers/receipt_parser.go
package workers

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger/internal/core/domain"
)

// Receipt file types accepted for import
const (
	FileTypeXLSX = "xlsx"
	FileTypePDF  = "pdf"
)

var (
	// SKU, quantity and optional notes separated by whitespace
	receiptLineRe = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9._/-]*)\s+(\d{1,7})(?:\s+(.+))?$`)
	receiptEndRe  = regexp.MustCompile(`(?i)^(total|subtotal|received by|signature)\b`)
)

// ParseReceipt extracts delivery lines from an uploaded file
func ParseReceipt(fileType string, data []byte) ([]domain.ReceiptLine, error) {
	switch strings.ToLower(fileType) {
	case FileTypeXLSX:
		return ParseReceiptWorkbook(data)
	case FileTypePDF:
		text, err := extractPDFText(data)
		if err != nil {
			return nil, err
		}
		return ParseReceiptText(text), nil
	default:
		return nil, domain.NewValidationError("file_type", fmt.Sprintf("unsupported receipt type %q", fileType))
	}
}

// ParseReceiptWorkbook reads the first sheet as SKU | Quantity | Notes rows.
// A leading header row is skipped; blank rows are ignored.
func ParseReceiptWorkbook(data []byte) ([]domain.ReceiptLine, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, domain.NewValidationError("file", fmt.Sprintf("unreadable workbook: %v", err))
	}
	if len(file.Sheets) == 0 {
		return nil, domain.NewValidationError("file", "workbook has no sheets")
	}

	sheet := file.Sheets[0]
	defer sheet.Close()

	var (
		lines   []domain.ReceiptLine
		rowNum  int
		seenRow bool
	)
	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		rowNum++
		get := func(i int) string {
			c := r.GetCell(i)
			if c == nil {
				return ""
			}
			return strings.TrimSpace(c.String())
		}

		sku, qty, notes := get(0), get(1), get(2)
		if sku == "" && qty == "" {
			return nil
		}

		quantity, convErr := strconv.Atoi(qty)
		if convErr != nil {
			if !seenRow {
				seenRow = true
				return nil
			}
			return domain.NewValidationError(fmt.Sprintf("row %d", rowNum), fmt.Sprintf("invalid quantity %q", qty))
		}
		seenRow = true

		lines = append(lines, domain.ReceiptLine{SKU: sku, Quantity: quantity, Notes: notes})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return lines, nil
}

// ParseReceiptText reads `SKU QTY [notes]` lines from delivery note text.
// Lines that do not match are treated as headings and skipped; a totals or
// signature line ends the list.
func ParseReceiptText(text string) []domain.ReceiptLine {
	var lines []domain.ReceiptLine
	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			continue
		}
		if receiptEndRe.MatchString(line) {
			break
		}

		m := receiptLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err := strconv.Atoi(m[2])
		if err != nil || qty <= 0 {
			continue
		}
		lines = append(lines, domain.ReceiptLine{SKU: m[1], Quantity: qty, Notes: strings.TrimSpace(m[3])})
	}
	return lines
}

func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", domain.NewValidationError("file", fmt.Sprintf("unreadable PDF: %v", err))
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", pageNum, err)
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
