package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/blognest/blognest-go/internal/client"
	"github.com/blognest/blognest-go/internal/crypto"
	"github.com/blognest/blognest-go/internal/model"
	"github.com/blognest/blognest-go/internal/repository"
	"github.com/blognest/blognest-go/internal/session"
	"github.com/blognest/blognest-go/internal/stubapi"
)

func newTestApp(t *testing.T, stdin string) (*app, *bytes.Buffer, *stubapi.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := stubapi.New(stubapi.Options{
		Secret:    "test-secret",
		KeyParams: crypto.KeyParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16},
		Logger:    logger,
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	api, err := client.New(ts.URL, client.Options{Logger: logger})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	mgr := session.New(repository.NewMemoryTokenStore(), api, session.WithLogger(logger))
	t.Cleanup(mgr.Close)
	if err := mgr.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	out := &bytes.Buffer{}
	a := &app{
		logger:  logger,
		api:     api,
		session: mgr,
		in:      bufio.NewReader(strings.NewReader(stdin)),
		out:     out,
	}
	return a, out, srv
}

func TestCommands_RequireLogin(t *testing.T) {
	a, _, _ := newTestApp(t, "")

	err := cmdMine(context.Background(), a, nil)
	if err == nil {
		t.Fatal("cmdMine() error = nil before login")
	}
	if got := displayError(err); !strings.Contains(got, "not logged in") {
		t.Errorf("displayError() = %q", got)
	}
}

func TestCommands_SignupCreateAndFeed(t *testing.T) {
	a, out, _ := newTestApp(t, "")
	ctx := context.Background()

	if err := cmdSignup(ctx, a, []string{"-username", "ana", "-email", "ana@x.com", "-password", "pw"}); err != nil {
		t.Fatalf("signup error = %v", err)
	}
	for i := 0; i < 10; i++ {
		args := []string{"-title", "post", "-description", "d", "-body", "b", "-category", "1"}
		if err := cmdCreate(ctx, a, args); err != nil {
			t.Fatalf("create error = %v", err)
		}
	}

	out.Reset()
	if err := cmdFeed(ctx, a, nil); err != nil {
		t.Fatalf("feed error = %v", err)
	}
	// header plus the nine newest
	if lines := strings.Count(out.String(), "\n"); lines != homeFeedSize+1 {
		t.Errorf("feed printed %d lines, want %d", lines, homeFeedSize+1)
	}
}

func TestCommands_CreateValidation(t *testing.T) {
	a, _, _ := newTestApp(t, "")
	ctx := context.Background()

	if err := cmdSignup(ctx, a, []string{"-username", "ana", "-email", "ana@x.com", "-password", "pw"}); err != nil {
		t.Fatalf("signup error = %v", err)
	}

	err := cmdCreate(ctx, a, []string{"-title", "only a title"})
	if got := displayError(err); got != "Description is required" {
		t.Errorf("displayError() = %q", got)
	}
}

func TestCommands_DeleteDeclined(t *testing.T) {
	a, out, srv := newTestApp(t, "n\n")
	ctx := context.Background()

	if err := cmdSignup(ctx, a, []string{"-username", "ana", "-email", "ana@x.com", "-password", "pw"}); err != nil {
		t.Fatalf("signup error = %v", err)
	}
	user, _ := srv.Store().UserByEmail("ana@x.com")
	b, err := srv.Store().CreateBlog(user.ID, model.BlogInput{Title: "keep", Description: "d", Body: "b", CategoryID: 1})
	if err != nil {
		t.Fatalf("CreateBlog() error = %v", err)
	}

	out.Reset()
	if err := cmdDelete(ctx, a, []string{"-id", "1"}); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if !strings.Contains(out.String(), "Cancelled") {
		t.Errorf("output = %q, want Cancelled", out.String())
	}
	if _, err := srv.Store().Blog(b.ID); err != nil {
		t.Errorf("blog gone after declined delete: %v", err)
	}
}

func TestCommands_DeleteWithYes(t *testing.T) {
	a, out, srv := newTestApp(t, "")
	ctx := context.Background()

	if err := cmdSignup(ctx, a, []string{"-username", "ana", "-email", "ana@x.com", "-password", "pw"}); err != nil {
		t.Fatalf("signup error = %v", err)
	}
	user, _ := srv.Store().UserByEmail("ana@x.com")
	b, err := srv.Store().CreateBlog(user.ID, model.BlogInput{Title: "gone", Description: "d", Body: "b", CategoryID: 1})
	if err != nil {
		t.Fatalf("CreateBlog() error = %v", err)
	}

	out.Reset()
	if err := cmdDelete(ctx, a, []string{"-id", "1", "-yes"}); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if !strings.Contains(out.String(), "Deleted blog 1") {
		t.Errorf("output = %q, want Deleted blog 1", out.String())
	}
	if _, err := srv.Store().Blog(b.ID); err == nil {
		t.Error("blog still present after confirmed delete")
	}
}

func TestCommands_LikeThenUnlike(t *testing.T) {
	a, out, srv := newTestApp(t, "")
	ctx := context.Background()

	if err := cmdSignup(ctx, a, []string{"-username", "ana", "-email", "ana@x.com", "-password", "pw"}); err != nil {
		t.Fatalf("signup error = %v", err)
	}
	user, _ := srv.Store().UserByEmail("ana@x.com")
	b, _ := srv.Store().CreateBlog(user.ID, model.BlogInput{Title: "t", Description: "d", Body: "b", CategoryID: 1})

	if err := cmdInteract(model.Like)(ctx, a, []string{"-id", "1"}); err != nil {
		t.Fatalf("like error = %v", err)
	}
	if !strings.Contains(out.String(), "local estimate 1 likes, 0 dislikes (your reaction: like)") {
		t.Errorf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "Server reports 1 likes, 0 dislikes") {
		t.Errorf("output = %q, want server counters", out.String())
	}

	if err := cmdUnlike(ctx, a, []string{"-id", "1"}); err != nil {
		t.Fatalf("unlike error = %v", err)
	}
	if got := srv.Store().Reaction(user.ID, b.ID); got != model.InteractionNone {
		t.Errorf("reaction = %s, want none", got)
	}
}
