package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/google/uuid"
)

type AzureConfig struct {
	AccountName string
	AccountKey  string
	Container   string
	SASExpiry   time.Duration
}

// AzureStore writes images to an Azure Blob Storage container and returns
// account-key SAS URLs with read permission.
type AzureStore struct {
	client    *azblob.Client
	cred      *azblob.SharedKeyCredential
	account   string
	container string
	sasExpiry time.Duration
}

func NewAzureStore(cfg AzureConfig) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	expiry := cfg.SASExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}

	return &AzureStore{
		client:    client,
		cred:      cred,
		account:   cfg.AccountName,
		container: cfg.Container,
		sasExpiry: expiry,
	}, nil
}

func (s *AzureStore) Upload(ctx context.Context, productID int64, filename, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read image body: %w", err)
	}

	blobName := blobName(productID, filename)
	_, err = s.client.UploadBuffer(ctx, s.container, blobName, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload blob %s: %w", blobName, err)
	}

	return s.signedURL(blobName)
}

func (s *AzureStore) signedURL(blobName string) (string, error) {
	perms := sas.BlobPermissions{Read: true}
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    time.Now().UTC().Add(s.sasExpiry),
		ContainerName: s.container,
		BlobName:      blobName,
		Permissions:   perms.String(),
	}

	qp, err := values.SignWithSharedKey(s.cred)
	if err != nil {
		return "", fmt.Errorf("sign sas: %w", err)
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s?%s",
		s.account, s.container, blobName, qp.Encode()), nil
}

// blobName keys images by product so re-uploads never collide, while the
// uuid keeps old SAS URLs from pointing at replaced content.
func blobName(productID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("products/%d/%s%s", productID, uuid.NewString(), ext)
}
