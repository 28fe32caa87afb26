package vectorstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEmbedder returns fixed vectors keyed by text so similarity
// ordering in tests is deterministic.
type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v, ok := f.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

func newTestEmbedder() *fakeEmbedder {
	return &fakeEmbedder{vectors: map[string][]float32{
		"reset your password from the login page": {1, 0, 0},
		"restart the service to clear the cache":  {0, 1, 0},
		"how do I reset my password":              {0.9, 0.1, 0},
	}}
}

func newTestStore(t *testing.T) *ChromemStore {
	t.Helper()
	store, err := NewChromemStore(ChromemConfig{
		Path:       t.TempDir(),
		Collection: "test_kb",
		VectorSize: 3,
	}, newTestEmbedder(), zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestChromemConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ChromemConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg:  ChromemConfig{Path: "/tmp/store", Collection: "kb", VectorSize: 384},
		},
		{
			name:    "missing path",
			cfg:     ChromemConfig{Collection: "kb", VectorSize: 384},
			wantErr: true,
		},
		{
			name:    "bad collection name",
			cfg:     ChromemConfig{Path: "/tmp/store", Collection: "Bad Name!", VectorSize: 384},
			wantErr: true,
		},
		{
			name:    "zero vector size",
			cfg:     ChromemConfig{Path: "/tmp/store", Collection: "kb"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCollectionName(t *testing.T) {
	assert.NoError(t, ValidateCollectionName("resolvd_kb"))
	assert.ErrorIs(t, ValidateCollectionName(""), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("Upper"), ErrInvalidCollectionName)
	assert.ErrorIs(t, ValidateCollectionName("has space"), ErrInvalidCollectionName)
}

func TestNewChromemStoreRequiresEmbedder(t *testing.T) {
	_, err := NewChromemStore(ChromemConfig{Path: t.TempDir()}, nil, zap.NewNop())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemAddAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ids, err := store.AddDocuments(ctx, []Document{
		{ID: "sol-1", Content: "reset your password from the login page", Metadata: map[string]interface{}{"category": "login_issue"}},
		{ID: "sol-2", Content: "restart the service to clear the cache"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sol-1", "sol-2"}, ids)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.Search(ctx, "how do I reset my password", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sol-1", results[0].ID)
	assert.Equal(t, "login_issue", results[0].Metadata["category"])
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestChromemSearchCapsKAtCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.AddDocuments(ctx, []Document{
		{ID: "sol-1", Content: "reset your password from the login page"},
	})
	require.NoError(t, err)

	results, err := store.Search(ctx, "how do I reset my password", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChromemSearchEmptyCollection(t *testing.T) {
	store := newTestStore(t)

	results, err := store.Search(context.Background(), "how do I reset my password", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemAddDocumentsEmpty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddDocuments(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyDocuments)
}

func TestChromemSearchValidatesInputs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Search(ctx, "", 5)
	assert.Error(t, err)

	_, err = store.Search(ctx, "query", 0)
	assert.Error(t, err)
}

func TestChromemAutoGeneratesIDs(t *testing.T) {
	store := newTestStore(t)

	ids, err := store.AddDocuments(context.Background(), []Document{
		{Content: "reset your password from the login page"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.NotEmpty(t, ids[0])
}

func TestMetadataConversionRoundTrip(t *testing.T) {
	in := map[string]interface{}{"category": "login_issue", "chunk": 3}
	out := metadataToString(in)
	assert.Equal(t, "login_issue", out["category"])
	assert.Equal(t, "3", out["chunk"])

	back := metadataFromString(out)
	assert.Equal(t, "login_issue", back["category"])

	assert.Nil(t, metadataToString(nil))
	assert.Nil(t, metadataFromString(nil))
}
