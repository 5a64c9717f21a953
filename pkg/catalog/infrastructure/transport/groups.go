package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"recordstore/pkg/catalog/domain/model"
)

// GroupGateway is the HTTP client of the remote group CRUD endpoints.
// Saves send multipart form data only when a new photo is attached;
// otherwise the existing image URL is passed through as a form field so
// the server preserves it.
type GroupGateway struct {
	client *Client
}

func NewGroupGateway(c *Client) *GroupGateway {
	return &GroupGateway{client: c}
}

func (g *GroupGateway) List(ctx context.Context) ([]model.Group, error) {
	body, err := g.client.doJSON(ctx, http.MethodGet, "groups", nil)
	if err != nil {
		return nil, errors.Wrap(err, "list groups")
	}
	return decodeGroups(body), nil
}

func (g *GroupGateway) Create(ctx context.Context, grp model.Group) (model.Group, error) {
	body, err := g.send(ctx, http.MethodPost, "groups", grp)
	if err != nil {
		return model.Group{}, errors.Wrap(err, "create group")
	}
	return decodeSavedGroup(body, grp)
}

func (g *GroupGateway) Update(ctx context.Context, grp model.Group) (model.Group, error) {
	path := fmt.Sprintf("groups/%d", grp.ID)
	body, err := g.send(ctx, http.MethodPut, path, grp)
	if err != nil {
		return model.Group{}, errors.Wrap(err, "update group")
	}
	return decodeSavedGroup(body, grp)
}

func (g *GroupGateway) Delete(ctx context.Context, id int) error {
	_, err := g.client.doJSON(ctx, http.MethodDelete, fmt.Sprintf("groups/%d", id), nil)
	return errors.Wrap(err, "delete group")
}

func (g *GroupGateway) send(ctx context.Context, method, path string, grp model.Group) ([]byte, error) {
	if !grp.HasPendingPhoto() {
		form := url.Values{}
		form.Set("nameGroup", grp.Name)
		if grp.MusicGenreID != nil {
			form.Set("musicGenreId", strconv.Itoa(*grp.MusicGenreID))
		}
		form.Set("imageGroup", grp.ImageURL)
		return g.client.do(ctx, method, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	writeField(w, "nameGroup", grp.Name)
	if grp.MusicGenreID != nil {
		writeField(w, "musicGenreId", strconv.Itoa(*grp.MusicGenreID))
	}
	if err := writeFile(w, "photo", grp.PhotoName, grp.Photo); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}
	return g.client.do(ctx, method, path, &buf, w.FormDataContentType())
}

func decodeSavedGroup(body []byte, fallback model.Group) (model.Group, error) {
	if len(body) == 0 {
		return fallback, nil
	}
	var saved model.Group
	if err := json.Unmarshal(body, &saved); err != nil {
		return model.Group{}, errors.Wrap(err, "decode saved group")
	}
	return saved, nil
}
