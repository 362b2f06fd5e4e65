package handlers

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/storage"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

const (
	// multipartMemory is how much of a multipart body is held in memory before spilling to disk.
	multipartMemory = 8 << 20
	maxPhotos       = 5
	maxDocuments    = 10
	payloadField    = "data"
)

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// decodeSubmission decodes the request payload into v and stages any files
// uploaded under fileField. JSON bodies carry no files; multipart bodies carry
// the JSON payload in the "data" field.
func decodeSubmission(ctx context.Context, st storage.Store, r *http.Request, v interface{}, fileField string, maxFiles int) ([]storage.Staged, error) {
	if !isMultipart(r) {
		return nil, decodeJSON(r, v)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, invalid("failed to parse multipart form")
	}
	if err := json.Unmarshal([]byte(r.FormValue(payloadField)), v); err != nil {
		return nil, invalid("the %q field must hold the JSON payload", payloadField)
	}

	headers := r.MultipartForm.File[fileField]
	if len(headers) > maxFiles {
		return nil, invalid("at most %d files may be attached", maxFiles)
	}
	if len(headers) > 0 && st == nil {
		return nil, invalid("attachments are not accepted")
	}

	staged := make([]storage.Staged, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			discardStaged(ctx, st, staged)
			return nil, invalid("failed to read %s", fh.Filename)
		}
		s, err := st.Stage(ctx, storage.File{Name: fh.Filename, Size: fh.Size, Body: f})
		f.Close()
		if err != nil {
			discardStaged(ctx, st, staged)
			return nil, err
		}
		staged = append(staged, s)
	}
	return staged, nil
}

// attachmentsFrom turns staged files into the attachment entries stored on a record.
func attachmentsFrom(staged []storage.Staged, now time.Time) []workflow.Attachment {
	out := make([]workflow.Attachment, 0, len(staged))
	for _, s := range staged {
		out = append(out, workflow.Attachment{
			ID:           primitive.NewObjectID(),
			OriginalName: s.OriginalName,
			StoragePath:  s.Key,
			URL:          s.URL,
			MimeType:     s.MimeType,
			Size:         s.Size,
			UploadedAt:   now,
		})
	}
	return out
}

func discardStaged(ctx context.Context, st storage.Store, staged []storage.Staged) {
	if len(staged) == 0 {
		return
	}
	if err := storage.DiscardAll(ctx, st, staged); err != nil {
		zap.S().Errorw("failed to discard staged files", "count", len(staged), "error", err)
	}
}

// deleteFiles removes committed attachments. Failures are logged only; the
// staging sweeper never sees committed files so they must be cleaned up by hand.
func deleteFiles(ctx context.Context, st storage.Store, attachments []workflow.Attachment) {
	if st == nil {
		return
	}
	for _, a := range attachments {
		if err := st.Delete(ctx, a.StoragePath); err != nil {
			zap.S().Errorw("failed to delete attachment", "key", a.StoragePath, "error", err)
		}
	}
}
