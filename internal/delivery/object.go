package delivery

import (
	"CloudHunter/internal/storage"
	"CloudHunter/utils"
	"context"
	"fmt"
	"path"
	"time"
)

// ObjectStore delivers files into an object storage bucket.
type ObjectStore struct {
	name   string
	store  storage.Store
	bucket string
	expiry time.Duration
}

func NewObjectStore(name string, store storage.Store, bucket string, expiry time.Duration) *ObjectStore {
	return &ObjectStore{name: name, store: store, bucket: bucket, expiry: expiry}
}

func (o *ObjectStore) Name() string { return o.name }

// Send stores the document under <owner>/<token>/<name>; the key is the file id.
func (o *ObjectStore) Send(ctx context.Context, doc Document) (string, error) {
	key := fmt.Sprintf("%d/%s/%s", doc.OwnerID, utils.GetToken(), utils.SanitizeFileName(doc.Name))
	err := o.store.PutObject(ctx, o.bucket, key, doc.Body, doc.Size, storage.PutOptions{
		ContentType: doc.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

func (o *ObjectStore) Resolve(ctx context.Context, fileID string) (*Resolved, error) {
	params := map[string]string{
		"response-content-disposition": fmt.Sprintf(`attachment; filename="%s"`, path.Base(fileID)),
	}
	u, err := o.store.PresignedGetObject(ctx, o.bucket, fileID, o.expiry, params)
	if err != nil {
		return nil, fmt.Errorf("presign object: %w", err)
	}
	return &Resolved{Path: fileID, URL: u}, nil
}
