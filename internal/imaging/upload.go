// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

package imaging

import (
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// Multipart field names used by the article form.
const (
	FieldImages = "images"
	FieldAlts   = "alts"
)

// Upload is one submitted file with its optional caption.
type Upload struct {
	Name        string
	ContentType string // sniffed
	Data        []byte
	Alt         string
}

// ReadUploads collects the non-empty files from the images field of a
// parsed multipart form, pairing file i with alts[i]. Files are sniffed
// and size-checked; nothing is decoded yet.
func ReadUploads(form *multipart.Form) ([]Upload, error) {
	if form == nil {
		return nil, nil
	}
	alts := form.Value[FieldAlts]

	var uploads []Upload
	for i, fh := range form.File[FieldImages] {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		if len(uploads) == MaxFiles {
			return nil, ErrTooManyFiles
		}
		if fh.Size > MaxFileSize {
			return nil, fmt.Errorf("%s: %w", fh.Filename, ErrFileTooLarge)
		}

		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		ct, err := Sniff(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}

		up := Upload{Name: fh.Filename, ContentType: ct, Data: data}
		if i < len(alts) {
			up.Alt = strings.TrimSpace(alts[i])
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
