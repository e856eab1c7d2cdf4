// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"

	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
	"github.com/dustin/go-humanize"
)

// FormFile is one file part of a multipart upload.
type FormFile struct {
	Field       string
	Name        string
	ContentType string
	Body        io.Reader
}

// UploadAndDecodeContext sends a multipart/form-data request with the
// given fields and files to ep, and unmarshals the JSON response into
// dst. The body is streamed; files are not buffered in memory unless
// retries are enabled.
func (c *Client) UploadAndDecodeContext(ctx context.Context, dst interface{}, ep APIEndpoint, fields map[string]string, files []FormFile, vars ...string) error {
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, fields, files))
	}()
	req, err := c.newRequest(ctx, ep, pr, vars...)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	return c.DoAndDecode(dst, req)
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, files []FormFile) error {
	// Sorted, so requests are reproducible.
	var keys []string
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}
	for _, f := range files {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		hdr.Set("Content-Type", ct)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return err
		}
	}
	return mw.Close()
}

// FileUploadResponse lists the files stored by an upload.
type FileUploadResponse struct {
	Files []UploadedFile `json:"fileUploadResponseList"`
}

type UploadedFile struct {
	FileName string `json:"fileName"`
	Path     string `json:"path"`
	Status   string `json:"status"`
}

// UploadFile uploads a local model or transform file and returns the
// location the server stored it at, suitable for ModelOptions.Location.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	name := filepath.Base(path)
	logger := ctxlog.FromContext(ctx).WithField("File", name)
	logger.Infof("uploading %s", humanize.Bytes(uint64(fi.Size())))

	var resp FileUploadResponse
	err = c.UploadAndDecodeContext(ctx, &resp, EndpointFileUpload, nil, []FormFile{{
		Field: "file",
		Name:  name,
		Body:  f,
	}})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	for _, up := range resp.Files {
		if up.FileName == name {
			logger.WithField("Location", up.Path).Info("upload finished")
			return up.Path, nil
		}
	}
	return "", fmt.Errorf("upload %s: server response does not list the uploaded file", name)
}
