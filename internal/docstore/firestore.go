package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements Client against Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the given project. credentialsFile may be empty, in
// which case application default credentials apply.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to firestore: %w", err)
	}
	return &Firestore{client: client}, nil
}

func (f *Firestore) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	ref, _, err := f.client.Collection(path).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add document: %w", err)
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, path, id string, data map[string]any) error {
	if _, err := f.client.Collection(path).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	return nil
}

func (f *Firestore) Get(ctx context.Context, path, id string) (map[string]any, error) {
	snap, err := f.client.Collection(path).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return snap.Data(), nil
}

func (f *Firestore) Update(ctx context.Context, path, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for key, value := range fields {
		if value == nil {
			value = firestore.Delete
		}
		updates = append(updates, firestore.Update{Path: key, Value: value})
	}
	_, err := f.client.Collection(path).Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (f *Firestore) Delete(ctx context.Context, path, id string) error {
	if _, err := f.client.Collection(path).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (f *Firestore) Query(ctx context.Context, path string, q Query) ([]Snapshot, error) {
	fq := f.client.Collection(path).Query
	for _, filter := range q.Filters {
		fq = fq.Where(filter.Field, "==", filter.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		fq = fq.Limit(q.Limit)
	}

	iter := fq.Documents(ctx)
	defer iter.Stop()

	snapshots := make([]Snapshot, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate documents: %w", err)
		}
		snapshots = append(snapshots, Snapshot{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return snapshots, nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}
