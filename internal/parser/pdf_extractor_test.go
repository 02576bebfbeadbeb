package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestPDF 生成一个每页一行文字的最小 PDF，xref 偏移按实际字节计算
func buildTestPDF(t *testing.T, pageTexts ...string) []byte {
	t.Helper()

	n := len(pageTexts)
	// 对象编号: 1 Catalog, 2 Pages, 3 Font, 之后每页占两个对象(Page, Contents)
	var objects []string
	kids := ""
	for i := range pageTexts {
		kids += fmt.Sprintf("%d 0 R ", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, text := range pageTexts {
		stream := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestPageExtractor_PagesJoinedInOrder(t *testing.T) {
	data := buildTestPDF(t, "Hello page 1", "Hello page 2")

	text, err := NewPageExtractor().ExtractFromBytes(context.Background(), data, "mem://two-pages.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello page 1")
	assert.Contains(t, text, "Hello page 2")
	assert.Less(t, bytes.Index([]byte(text), []byte("page 1")), bytes.Index([]byte(text), []byte("page 2")))
	assert.Contains(t, text, "\n")
}

func TestPageExtractor_CorruptPageIsSkipped(t *testing.T) {
	data := buildTestPDF(t, "Hello page 1", "BROKEN", "Hello page 3")
	// Tf 只有一个操作数，解析第 2 页时报错；长度不变，xref 偏移仍然有效
	corrupted := bytes.Replace(data, []byte("(BROKEN) Tj"), []byte("(BROKEN) Tf"), 1)
	require.Len(t, corrupted, len(data))
	require.NotEqual(t, data, corrupted)

	text, err := NewPageExtractor().ExtractFromBytes(context.Background(), corrupted, "mem://corrupt-page.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello page 1")
	assert.Contains(t, text, "Hello page 3")
	assert.NotContains(t, text, "BROKEN")
	assert.Less(t, strings.Index(text, "page 1"), strings.Index(text, "page 3"))
}

func TestPageExtractor_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, buildTestPDF(t, "Jane Doe"), 0644))

	text, err := NewPageExtractor().ExtractFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
}

func TestPageExtractor_UnopenableDocumentYieldsEmptyText(t *testing.T) {
	e := NewPageExtractor()

	for _, data := range [][]byte{nil, []byte("not a pdf at all"), []byte("%PDF-1.4\ngarbage")} {
		text, err := e.ExtractFromBytes(context.Background(), data, "mem://broken.pdf")
		require.NoError(t, err)
		assert.Empty(t, text)
	}
}

func TestPageExtractor_MissingFileIsAnError(t *testing.T) {
	_, err := NewPageExtractor().ExtractFromFile(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Error(t, err)
}

func TestPageExtractor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPageExtractor().ExtractFromBytes(ctx, buildTestPDF(t, "x y z"), "mem://cancel.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEinoExtractor(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	e, err := NewEinoExtractor(ctx, WithEinoTimeout(5*time.Second))
	require.NoError(t, err)
	require.NotNil(t, e.parser)
	assert.Equal(t, 5*time.Second, e.timeout)

	text, err := e.ExtractFromBytes(ctx, buildTestPDF(t, "Hello page 1", "Hello page 2"), "mem://eino.pdf")
	require.NoError(t, err)
	assert.Contains(t, text, "Hello page 1")

	text, err = e.ExtractFromBytes(ctx, []byte("garbage"), "mem://garbage.pdf")
	require.NoError(t, err)
	assert.Empty(t, text)
}
