// Package firestore stores cart snapshots as Firestore documents.
package firestore

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DefaultCollection = "cart_snapshots"

// KV keeps one document per snapshot key: {value, updatedAt}.
type KV struct {
	client     *firestore.Client
	collection string
}

func New(client *firestore.Client, collection string) *KV {
	if strings.TrimSpace(collection) == "" {
		collection = DefaultCollection
	}
	return &KV{client: client, collection: collection}
}

func Open(ctx context.Context, projectID, collection string) (*KV, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return New(client, collection), nil
}

type snapshotDoc struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (k *KV) Get(ctx context.Context, key string) (string, bool, error) {
	if k == nil || k.client == nil {
		return "", false, errors.New("firestore kv: client is nil")
	}

	snap, err := k.client.Collection(k.collection).Doc(DocID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, err
	}

	var d snapshotDoc
	if err := snap.DataTo(&d); err != nil {
		return "", false, err
	}
	return d.Value, true, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	if k == nil || k.client == nil {
		return errors.New("firestore kv: client is nil")
	}

	_, err := k.client.Collection(k.collection).Doc(DocID(key)).Set(ctx, snapshotDoc{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	return err
}

func (k *KV) Close() error {
	if k == nil || k.client == nil {
		return nil
	}
	return k.client.Close()
}

// DocID makes a snapshot key safe to use as a document id.
func DocID(key string) string {
	return url.PathEscape(key)
}
