package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/readlater/internal/config"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	require.Equal(t, "local", store.Type())

	ctx := context.Background()
	body := "https://example.com\n"
	require.NoError(t, store.Save(ctx, "import-1.csv", strings.NewReader(body), int64(len(body))))

	rc, err := store.Open(ctx, "import-1.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, body, string(data))

	require.NoError(t, store.Delete(ctx, "import-1.csv"))
	require.NoError(t, store.Delete(ctx, "import-1.csv"))
	_, err = store.Open(ctx, "import-1.csv")
	require.Error(t, err)
}

func TestLocalStoreRejectsPathKeys(t *testing.T) {
	store, err := New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	require.Error(t, store.Save(context.Background(), "../escape", strings.NewReader("x"), 1))
	require.Error(t, store.Save(context.Background(), "a/b", strings.NewReader("x"), 1))
}

func TestNewUnknownType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{Type: "local"})
	require.Error(t, err)
}

func TestBuildEndpoint(t *testing.T) {
	require.Equal(t, "https://s3.example.com", buildEndpoint("s3.example.com", true))
	require.Equal(t, "http://minio:9000", buildEndpoint("minio:9000/", false))
	require.Equal(t, "https://s3.example.com", buildEndpoint("https://s3.example.com/", false))
}
