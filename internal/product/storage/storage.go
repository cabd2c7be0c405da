// Package storage uploads product images and hands back browser-usable URLs.
package storage

import (
	"context"
	"errors"
	"io"
)

// ImageStore persists an uploaded image and returns the URL to serve it from.
type ImageStore interface {
	Upload(ctx context.Context, productID int64, filename, contentType string, body io.Reader) (string, error)
}

var ErrStoreDisabled = errors.New("image store not configured")

// Disabled is the ImageStore used when no storage account is configured.
type Disabled struct{}

func (Disabled) Upload(context.Context, int64, string, string, io.Reader) (string, error) {
	return "", ErrStoreDisabled
}
