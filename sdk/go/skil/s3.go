// Copyright (C) The SKIL Go SDK Authors. All rights reserved.
//
// SPDX-License-Identifier: Apache-2.0

package skil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"git.skymind.io/skil-go.git/sdk/go/ctxlog"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/dustin/go-humanize"
)

// S3Options configures an S3Uploader.
type S3Options struct {
	Bucket string
	// Key prefix for uploaded files, e.g. "models/".
	Prefix string
	// AWS region. Empty means the SDK default.
	Region string
	// Static credentials. If both are empty, the default AWS
	// credential chain (env, shared config, IAM role) is used.
	AccessKeyID     string
	SecretAccessKey string
	// Non-AWS endpoint URL, e.g. a MinIO server. Implies path-style
	// addressing.
	Endpoint string
}

// S3Uploader copies local model files into an S3 bucket that a SKIL
// S3Storage resource points at. The returned s3:// URI can be used as
// ModelOptions.Location.
type S3Uploader struct {
	Bucket string
	Prefix string

	uploader *manager.Uploader
}

// NewS3Uploader returns an uploader for opts.Bucket.
func NewS3Uploader(ctx context.Context, opts S3Options) (*S3Uploader, error) {
	if opts.Bucket == "" {
		return nil, errors.New("no S3 bucket specified")
	}
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" || opts.SecretAccessKey != "" {
		ctxlog.FromContext(ctx).Debug("using static S3 credentials")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.StaticCredentialsProvider{
			Value: aws.Credentials{
				AccessKeyID:     opts.AccessKeyID,
				SecretAccessKey: opts.SecretAccessKey,
				Source:          "SKIL client configuration",
			},
		}))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("error loading aws client config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3UploaderFromClient(client, opts.Bucket, opts.Prefix), nil
}

// NewS3UploaderFromClient returns an uploader that uses the given S3
// API client.
func NewS3UploaderFromClient(client manager.UploadAPIClient, bucket, prefix string) *S3Uploader {
	return &S3Uploader{
		Bucket:   bucket,
		Prefix:   prefix,
		uploader: manager.NewUploader(client),
	}
}

// Upload copies the local file at localPath to the bucket, under
// Prefix plus the file's base name, and returns its s3:// URI.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	key := path.Join(u.Prefix, filepath.Base(localPath))
	ctxlog.FromContext(ctx).WithField("Bucket", u.Bucket).WithField("Key", key).
		Infof("uploading %s to S3", humanize.Bytes(uint64(fi.Size())))
	_, err = u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(u.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3://%s/%s: %w", localPath, u.Bucket, key, translateS3Error(err))
	}
	return "s3://" + u.Bucket + "/" + key, nil
}

// translateS3Error maps S3 API errors that have an obvious local
// meaning to standard errors.
func translateS3Error(err error) error {
	if cerr := (interface{ CanceledError() bool })(nil); errors.As(err, &cerr) && cerr.CanceledError() {
		return context.Canceled
	}
	var aerr smithy.APIError
	if errors.As(err, &aerr) {
		switch aerr.ErrorCode() {
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s", os.ErrNotExist, aerr.ErrorMessage())
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
			return fmt.Errorf("%w: %s", os.ErrPermission, aerr.ErrorMessage())
		}
	}
	return err
}
