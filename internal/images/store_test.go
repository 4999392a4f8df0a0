package images

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	key, err := store.Save("Cover.JPG", strings.NewReader("front"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)

	data, err := store.Read(key)
	require.NoError(t, err)
	assert.Equal(t, []byte("front"), data)

	other, err := store.Save("back.png", strings.NewReader("back"))
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	files, err := store.List()
	require.NoError(t, err)
	assert.Len(t, files, 2)

	require.NoError(t, store.Delete(key))
	require.NoError(t, store.Delete(key), "deleting twice is fine")

	_, err = store.Read(key)
	assert.True(t, errors.Is(err, ErrNotFound))

	files, err = store.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, other, files[0].Key)
	assert.Equal(t, int64(4), files[0].Size)
}

func TestDiskStoreRejectsPathKeys(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "..", "../etc/passwd", "a/b.jpg"} {
		_, err := store.Read(key)
		assert.Error(t, err, key)
		assert.Error(t, store.Delete(key), key)
	}
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 180, B: 120, A: 255})
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestNormalize(t *testing.T) {
	out, err := Normalize(testImage(t, 3000, 1500), 1000)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 1000, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())

	small, err := Normalize(testImage(t, 40, 30), 1000)
	require.NoError(t, err)
	img, err = imaging.Decode(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	_, err := Normalize([]byte("not an image"), 1000)
	assert.Error(t, err)
}

func TestCheckUpload(t *testing.T) {
	assert.NoError(t, CheckUpload("front.JPG", 100, 1000, nil))
	assert.NoError(t, CheckUpload("spine.gif", 100, 1000, nil))
	assert.Error(t, CheckUpload("notes.txt", 100, 1000, nil))
	assert.Error(t, CheckUpload("", 100, 1000, nil))

	err := CheckUpload("huge.png", 2000, 1000, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoader(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	key, err := store.Save("a.jpg", strings.NewReader("local"))
	require.NoError(t, err)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("remote"))
	}))
	defer ts.Close()

	loader := NewLoader(store, nil)

	data, err := loader.Load(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, []byte("local"), data)

	data, err = loader.Load(context.Background(), ts.URL+"/b.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote"), data)

	_, err = loader.Load(context.Background(), "missing.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))
}
