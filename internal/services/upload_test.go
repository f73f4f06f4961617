package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// fileHeader builds a parsed multipart file part holding content
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func newUploadService(t *testing.T) (*UploadService, *config.StorageConfig) {
	t.Helper()
	cfg := &config.StorageConfig{
		UploadDir:     t.TempDir(),
		PublicBaseURL: "https://cdn.example.com/files/",
		MaxUploadMB:   1,
		AllowedTypes:  []string{"image/png", "application/pdf"},
	}
	return NewUploadService(newTestDB(t), cfg), cfg
}

func TestUpload_SaveSniffsContent(t *testing.T) {
	svc, _ := newUploadService(t)
	owner := Actor{UserID: 3, Role: models.RoleFreelancer}

	upload, err := svc.Save(owner, fileHeader(t, "../../avatar.jpg", pngHeader), models.UploadPurposeAvatar)
	require.NoError(t, err)
	assert.Equal(t, "image/png", upload.MimeType)
	assert.Equal(t, "avatar.jpg", upload.OriginalName)
	assert.Equal(t, int64(len(pngHeader)), upload.Size)
	assert.Regexp(t, `\.png$`, upload.StoredName)
	assert.Equal(t, "https://cdn.example.com/files/"+upload.StoredName, upload.URL)

	data, err := os.ReadFile(svc.Path(upload.StoredName))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestUpload_Rejections(t *testing.T) {
	svc, _ := newUploadService(t)
	owner := Actor{UserID: 3, Role: models.RoleFreelancer}

	_, err := svc.Save(owner, fileHeader(t, "notes.png", []byte("plain text pretending to be an image")), "")
	requireAppError(t, err, 400)

	_, err = svc.Save(owner, fileHeader(t, "a.png", pngHeader), "wallpaper")
	requireAppError(t, err, 400)

	_, err = svc.Save(owner, fileHeader(t, "empty.png", nil), "")
	requireAppError(t, err, 400)

	big := append(append([]byte{}, pngHeader...), make([]byte, 1<<20)...)
	_, err = svc.Save(owner, fileHeader(t, "big.png", big), "")
	requireAppError(t, err, 400)
}

func TestUpload_DeleteOwnerOrAdmin(t *testing.T) {
	svc, _ := newUploadService(t)
	owner := Actor{UserID: 3, Role: models.RoleFreelancer}

	upload, err := svc.Save(owner, fileHeader(t, "a.png", pngHeader), "")
	require.NoError(t, err)
	assert.Equal(t, models.UploadPurposeAttachment, upload.Purpose)

	requireAppError(t, svc.Delete(Actor{UserID: 4, Role: models.RoleClient}, upload.ID), 403)
	require.NoError(t, svc.Delete(Actor{UserID: 9, Role: models.RoleAdmin}, upload.ID))

	_, err = os.Stat(svc.Path(upload.StoredName))
	assert.True(t, os.IsNotExist(err))
	_, err = svc.Get(upload.ID)
	requireAppError(t, err, 404)
}
