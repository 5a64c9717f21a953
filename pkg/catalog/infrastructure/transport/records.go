package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"recordstore/pkg/catalog/domain/model"
)

// RecordGateway is the HTTP client of the remote record CRUD endpoints.
type RecordGateway struct {
	client *Client
}

func NewRecordGateway(c *Client) *RecordGateway {
	return &RecordGateway{client: c}
}

func (g *RecordGateway) List(ctx context.Context) ([]model.Record, error) {
	body, err := g.client.doJSON(ctx, http.MethodGet, "records", nil)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	return decodeRecords(body), nil
}

func (g *RecordGateway) Create(ctx context.Context, r model.Record) (model.Record, error) {
	body, err := g.send(ctx, http.MethodPost, "records", r)
	if err != nil {
		return model.Record{}, errors.Wrap(err, "create record")
	}
	return decodeSavedRecord(body, r)
}

func (g *RecordGateway) Update(ctx context.Context, r model.Record) (model.Record, error) {
	path := fmt.Sprintf("records/%d", r.ID)
	body, err := g.send(ctx, http.MethodPut, path, r)
	if err != nil {
		return model.Record{}, errors.Wrap(err, "update record")
	}
	return decodeSavedRecord(body, r)
}

func (g *RecordGateway) Delete(ctx context.Context, id int) error {
	_, err := g.client.doJSON(ctx, http.MethodDelete, fmt.Sprintf("records/%d", id), nil)
	return errors.Wrap(err, "delete record")
}

// send picks the wire shape: multipart when a pending photo upload is
// attached, plain JSON otherwise.
func (g *RecordGateway) send(ctx context.Context, method, path string, r model.Record) ([]byte, error) {
	if !r.HasPendingPhoto() {
		return g.client.doJSON(ctx, method, path, r)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	writeField(w, "titleRecord", r.Title)
	if r.YearOfPublication != nil {
		writeField(w, "yearOfPublication", strconv.Itoa(*r.YearOfPublication))
	}
	writeField(w, "price", strconv.FormatFloat(r.Price, 'f', -1, 64))
	writeField(w, "stock", strconv.Itoa(r.Stock))
	writeField(w, "discontinued", strconv.FormatBool(r.Discontinued))
	if r.GroupID != nil {
		writeField(w, "groupId", strconv.Itoa(*r.GroupID))
	}
	if err := writeFile(w, "photo", r.PhotoName, r.Photo); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}
	return g.client.do(ctx, method, path, &buf, w.FormDataContentType())
}

func decodeSavedRecord(body []byte, fallback model.Record) (model.Record, error) {
	if len(body) == 0 {
		return fallback, nil
	}
	var saved model.Record
	if err := json.Unmarshal(body, &saved); err != nil {
		return model.Record{}, errors.Wrap(err, "decode saved record")
	}
	return saved, nil
}

func writeField(w *multipart.Writer, name, value string) {
	// CreateFormField on a bytes.Buffer cannot fail in practice.
	_ = w.WriteField(name, value)
}

func writeFile(w *multipart.Writer, field, name string, content []byte) error {
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return errors.Wrap(err, "create photo part")
	}
	if _, err := part.Write(content); err != nil {
		return errors.Wrap(err, "write photo part")
	}
	return nil
}
