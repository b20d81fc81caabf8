package fcf

import (
	"context"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobOpener reads case files from an Azure blob container. Completed studies
// are archived to object storage and their cut stores decode exactly as local
// ones do: the whole blob is streamed once per read, nothing is cached and no
// handle outlives the call.
type BlobOpener struct {
	client    *azblob.Client
	container string
}

// NewBlobOpener creates an opener over the container at serviceURL using the
// provided credential.
func NewBlobOpener(serviceURL, container string, cred azcore.TokenCredential) (*BlobOpener, error) {
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, err
	}
	return &BlobOpener{client: client, container: container}, nil
}

// NewBlobOpenerFromConnectionString creates an opener authenticated by a
// storage account connection string.
func NewBlobOpenerFromConnectionString(connectionString, container string) (*BlobOpener, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, err
	}
	return &BlobOpener{client: client, container: container}, nil
}

// Open satisfies Opener. name is the blob name within the configured
// container.
func (o *BlobOpener) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := o.client.DownloadStream(ctx, o.container, name, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
