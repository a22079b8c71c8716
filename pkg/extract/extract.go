// Package extract turns uploaded files into plain text for ingestion.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/quka-ai/airag/pkg/errors"
	"github.com/quka-ai/airag/pkg/i18n"
)

const (
	FILE_TYPE_TXT      = "txt"
	FILE_TYPE_MARKDOWN = "md"
	FILE_TYPE_PDF      = "pdf"
)

// NormalizeFileType 兼容 ".PDF"、"markdown"、"text/plain" 等写法
func NormalizeFileType(fileType string) string {
	t := strings.ToLower(strings.TrimSpace(fileType))
	t = strings.TrimPrefix(t, ".")
	switch t {
	case "markdown", "text/markdown":
		return FILE_TYPE_MARKDOWN
	case "text", "text/plain":
		return FILE_TYPE_TXT
	case "application/pdf":
		return FILE_TYPE_PDF
	}
	return t
}

// Text 按文件类型提取文本，未知类型按 utf-8 文本读取
func Text(fileType string, data []byte) (string, error) {
	switch NormalizeFileType(fileType) {
	case FILE_TYPE_PDF:
		return pdfText(data)
	default:
		return plainText(data)
	}
}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", errors.New("extract.plainText", i18n.ERROR_UNSUPPORTED_FILETYPE,
			fmt.Errorf("%w: content is not valid utf-8 text", errors.ErrValidation))
	}
	return string(data), nil
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.New("extract.pdfText.NewReader", i18n.ERROR_UNSUPPORTED_FILETYPE,
			fmt.Errorf("%w: open pdf: %w", errors.ErrValidation, err))
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", errors.New("extract.pdfText.GetPlainText", i18n.ERROR_UNSUPPORTED_FILETYPE,
			fmt.Errorf("%w: extract pdf text: %w", errors.ErrValidation, err))
	}

	buf := &bytes.Buffer{}
	if _, err = io.Copy(buf, plain); err != nil {
		return "", errors.New("extract.pdfText.Read", i18n.ERROR_INTERNAL, err)
	}

	lines := strings.Split(strings.ReplaceAll(buf.String(), "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n"), nil
}
