package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeImagePDF writes a PDF with one page per image. Every page draws its
// image as a Flate compressed DeviceGray XObject filling the media box.
func writeImagePDF(t *testing.T, dir, name string, pages ...*image.Gray) string {
	t.Helper()

	var objects [][]byte
	add := func(body []byte) int {
		objects = append(objects, body)
		return len(objects)
	}

	catalog := add(nil)
	pagesObj := add(nil)
	var kids []int
	for _, img := range pages {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()

		var raw bytes.Buffer
		zw := zlib.NewWriter(&raw)
		for y := 0; y < h; y++ {
			row := img.Pix[y*img.Stride : y*img.Stride+w]
			_, err := zw.Write(row)
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())

		imgObj := add(stream(fmt.Sprintf(
			"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray "+
				"/BitsPerComponent 8 /Filter /FlateDecode /Length %d >>", w, h, raw.Len()), raw.Bytes()))
		content := []byte(fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im0 Do Q", w, h))
		contentObj := add(stream(fmt.Sprintf("<< /Length %d >>", len(content)), content))
		page := add([]byte(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %d %d] /Resources << /XObject << /Im0 %d 0 R >> >> /Contents %d 0 R >>",
			pagesObj, w, h, imgObj, contentObj)))
		kids = append(kids, page)
	}

	objects[catalog-1] = []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj))
	var kidRefs bytes.Buffer
	for _, k := range kids {
		fmt.Fprintf(&kidRefs, "%d 0 R ", k)
	}
	objects[pagesObj-1] = []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kidRefs.String(), len(kids)))

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n", i+1)
		out.Write(body)
		out.WriteString("\nendobj\n")
	}
	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o600))
	return path
}

func stream(dict string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString(dict)
	b.WriteString("\nstream\n")
	b.Write(data)
	b.WriteString("\nendstream")
	return b.Bytes()
}
