package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/charstore/charstore/internal/api/respond"
	"github.com/charstore/charstore/internal/model"
)

// client talks to the character service REST API.
type client struct {
	http *resty.Client
}

func newClient(base string) *client {
	c := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetTimeout(30 * time.Second)
	return &client{http: c}
}

func (c *client) list(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	resp, err := c.http.R().SetContext(ctx).SetResult(&cards).Get("/api/characters")
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *client) search(ctx context.Context, keyword string) ([]model.Card, error) {
	var cards []model.Card
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("keyword", keyword).
		SetResult(&cards).
		Get("/api/search")
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *client) get(ctx context.Context, id string) (*model.Record, error) {
	var rec model.Record
	resp, err := c.http.R().SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&rec).
		Get("/api/character/{id}")
	if err := check(resp, err, http.StatusOK); err != nil {
		return nil, err
	}
	return &rec, nil
}

// create posts fields as JSON, or as a multipart form when imagePath is set.
func (c *client) create(ctx context.Context, fields map[string]string, imagePath string) (string, error) {
	var out respond.Status
	req := c.http.R().SetContext(ctx).SetResult(&out)
	withFields(req, fields, imagePath)
	resp, err := req.Post("/api/character")
	if err := check(resp, err, http.StatusCreated); err != nil {
		return "", err
	}
	return out.ID, nil
}

// update sends only the given fields.
func (c *client) update(ctx context.Context, id string, fields map[string]string, imagePath string) error {
	req := c.http.R().SetContext(ctx).SetPathParam("id", id)
	withFields(req, fields, imagePath)
	resp, err := req.Put("/api/character/{id}")
	return check(resp, err, http.StatusOK)
}

func (c *client) delete(ctx context.Context, id string) error {
	resp, err := c.http.R().SetContext(ctx).SetPathParam("id", id).Delete("/api/character/{id}")
	return check(resp, err, http.StatusOK)
}

func withFields(req *resty.Request, fields map[string]string, imagePath string) {
	if imagePath == "" {
		req.SetBody(fields)
		return
	}
	req.SetFormData(fields).SetFile("image", imagePath)
}

func check(resp *resty.Response, err error, want int) error {
	if err != nil {
		return err
	}
	if resp.StatusCode() == want {
		return nil
	}
	var e respond.ErrorResponse
	if jerr := json.Unmarshal(resp.Body(), &e); jerr == nil && e.Message != "" {
		return fmt.Errorf("http %d: %s", resp.StatusCode(), e.Message)
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
}
