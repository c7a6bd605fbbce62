// Package pdftext extracts plain text from PDF files.
package pdftext

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfqa/src/log"
)

var (
	ErrEncrypted = errors.New("pdf is encrypted")
	ErrMalformed = errors.New("pdf is malformed")
)

// Extract returns the text of every page of the PDF at path, in page order,
// joined by single spaces. Pages whose text cannot be decoded are skipped.
func Extract(path string) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return "", fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return "", fmt.Errorf("%w: failed to open pdf: %v", ErrMalformed, err)
	}
	defer f.Close()

	totalPage := r.NumPage()
	pages := make([]string, 0, totalPage)
	for i := 1; i <= totalPage; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}

		txt, err := p.GetPlainText(nil)
		if err != nil {
			log.Debug("skipping undecodable page", "path", path, "page", i, "error", err.Error())
			continue
		}
		pages = append(pages, txt)
	}

	return strings.Join(pages, " "), nil
}
