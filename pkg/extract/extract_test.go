package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quka-ai/airag/pkg/errors"
)

func TestNormalizeFileType(t *testing.T) {
	tests := map[string]string{
		".PDF":            FILE_TYPE_PDF,
		"markdown":        FILE_TYPE_MARKDOWN,
		"text/plain":      FILE_TYPE_TXT,
		" md ":            FILE_TYPE_MARKDOWN,
		"application/pdf": FILE_TYPE_PDF,
		"docx":            "docx",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeFileType(in), in)
	}
}

func TestText(t *testing.T) {
	text, err := Text("md", []byte("\xef\xbb\xbf# 标题\n\n正文"))
	require.NoError(t, err)
	assert.Equal(t, "# 标题\n\n正文", text)

	text, err = Text("unknown", []byte("plain"))
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	_, err = Text("txt", []byte{0xff, 0xfe, 0x00})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = Text("pdf", []byte("not a pdf"))
	assert.ErrorIs(t, err, errors.ErrValidation)
}
