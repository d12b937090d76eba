package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/blognest/blognest-go/internal/apperr"
	"github.com/blognest/blognest-go/internal/model"
)

// Login posts credentials to /login as an HTML form; the backend rejects JSON
// on this endpoint. Unknown users, wrong passwords and 401s are reported as
// bad credentials. The request is anonymous, so a rejected login never clears
// the session that is already held.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", creds.Email)
	form.Set("password", creds.Password)

	r := request{
		method:      http.MethodPost,
		path:        "login",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}

	var resp model.TokenResponse
	if err := c.do(ctx, r, &resp); err != nil {
		return model.TokenResponse{}, loginError(err)
	}
	return resp, nil
}

func loginError(err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return err
	}

	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return &apperr.Error{Kind: apperr.KindAuth, Reason: apperr.ReasonBadCredentials, Status: e.Status, Message: e.Message}
	case http.StatusUnprocessableEntity:
		return &apperr.Error{Kind: apperr.KindValidation, Status: e.Status, Message: "Invalid email or password format."}
	}
	return err
}

// CreateUser registers a new account.
func (c *Client) CreateUser(ctx context.Context, p model.Profile) (model.User, error) {
	r, err := jsonRequest(http.MethodPost, "users/", p)
	if err != nil {
		return model.User{}, err
	}
	r.anonymous = true

	var u model.User
	if err := c.do(ctx, r, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// ListBlogs returns every blog, optionally filtered server-side by search.
func (c *Client) ListBlogs(ctx context.Context, search string) ([]model.Blog, error) {
	return c.listBlogs(ctx, "blogs", search)
}

func (c *Client) GetBlog(ctx context.Context, id int64) (model.Blog, error) {
	var b model.Blog
	if err := c.do(ctx, request{method: http.MethodGet, path: blogPath(id)}, &b); err != nil {
		return model.Blog{}, err
	}
	return b, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories := []model.Category{}
	if err := c.do(ctx, request{method: http.MethodGet, path: "categories"}, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) CategoryBlogs(ctx context.Context, categoryID int64, search string) ([]model.Blog, error) {
	return c.listBlogs(ctx, "categories/"+strconv.FormatInt(categoryID, 10)+"/blogs", search)
}

// MyBlogs returns the blogs authored by the current user.
func (c *Client) MyBlogs(ctx context.Context) ([]model.Blog, error) {
	return c.listBlogs(ctx, "users/me/blogs", "")
}

// LikedBlogs returns the blogs the current user has liked.
func (c *Client) LikedBlogs(ctx context.Context) ([]model.Blog, error) {
	return c.listBlogs(ctx, "users/me/liked-blogs", "")
}

func (c *Client) CreateBlog(ctx context.Context, in model.BlogInput) (model.Blog, error) {
	r, err := jsonRequest(http.MethodPost, "blog", in)
	if err != nil {
		return model.Blog{}, err
	}

	var b model.Blog
	if err := c.do(ctx, r, &b); err != nil {
		return model.Blog{}, err
	}
	return b, nil
}

func (c *Client) UpdateBlog(ctx context.Context, id int64, in model.BlogInput) (model.Blog, error) {
	r, err := jsonRequest(http.MethodPut, blogPath(id), in)
	if err != nil {
		return model.Blog{}, err
	}

	var b model.Blog
	if err := c.do(ctx, r, &b); err != nil {
		return model.Blog{}, err
	}
	return b, nil
}

func (c *Client) DeleteBlog(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: blogPath(id)}, nil)
}

// Interact toggles the current user's like or dislike on a blog.
func (c *Client) Interact(ctx context.Context, id int64, kind model.Interaction) error {
	if !kind.Valid() {
		return apperr.Validation("unknown interaction " + strconv.Quote(string(kind)))
	}
	return c.do(ctx, request{method: http.MethodPost, path: blogPath(id) + "/" + string(kind)}, nil)
}

func (c *Client) listBlogs(ctx context.Context, path, search string) ([]model.Blog, error) {
	r := request{method: http.MethodGet, path: path}
	if s := strings.TrimSpace(search); s != "" {
		r.query = url.Values{"search": {s}}
	}

	blogs := []model.Blog{}
	if err := c.do(ctx, r, &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

func blogPath(id int64) string {
	return "blog/" + strconv.FormatInt(id, 10)
}
