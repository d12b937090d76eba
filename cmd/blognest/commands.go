package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/blognest/blognest-go/internal/apperr"
	"github.com/blognest/blognest-go/internal/model"
	"github.com/blognest/blognest-go/internal/mutation"
	"github.com/blognest/blognest-go/internal/session"
)

const homeFeedSize = 9

var errUsage = errors.New("usage")

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"login":      cmdLogin,
	"signup":     cmdSignup,
	"logout":     cmdLogout,
	"whoami":     cmdWhoami,
	"feed":       cmdFeed,
	"categories": cmdCategories,
	"category":   cmdCategory,
	"mine":       cmdMine,
	"liked":      cmdLiked,
	"show":       cmdShow,
	"like":       cmdInteract(model.Like),
	"dislike":    cmdInteract(model.Dislike),
	"unlike":     cmdUnlike,
	"create":     cmdCreate,
	"update":     cmdUpdate,
	"delete":     cmdDelete,
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	return nil
}

func requireID(fs *flag.FlagSet, id int64) error {
	if id <= 0 {
		fmt.Fprintf(fs.Output(), "%s: -id is required\n", fs.Name())
		return errUsage
	}
	return nil
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}

	creds := model.Credentials{Email: *email, Password: *password}
	if creds.Password == "" {
		creds.Password = a.prompt("Password: ")
	}

	if _, err := a.session.Login(ctx, creds); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged in as", a.session.Snapshot().Identity.Subject)
	return nil
}

func cmdSignup(ctx context.Context, a *app, args []string) error {
	fs := newFlags("signup")
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (prompted when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}

	p := model.Profile{Username: *username, Email: *email, Password: *password}
	if p.Password == "" {
		p.Password = a.prompt("Password: ")
	}

	if _, err := a.session.Signup(ctx, p); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account created. Logged in as", a.session.Snapshot().Identity.Subject)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func cmdWhoami(ctx context.Context, a *app, args []string) error {
	id, err := a.session.Require(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (session expires %s)\n", id.Subject, id.Expiry.Local().Format(time.DateTime))
	return nil
}

func cmdFeed(ctx context.Context, a *app, args []string) error {
	fs := newFlags("feed")
	search := fs.String("search", "", "server-side search on title or author")
	all := fs.Bool("all", false, "show every blog instead of the latest")
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	var opts []mutation.FeedOption
	if !*all {
		opts = append(opts, mutation.WithLimit(homeFeedSize))
	}
	feed := mutation.NewFeed(func(ctx context.Context) ([]model.Blog, error) {
		return a.api.ListBlogs(ctx, *search)
	}, opts...)

	return a.showFeed(ctx, feed)
}

func cmdCategories(ctx context.Context, a *app, args []string) error {
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	categories, err := a.api.ListCategories(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBLOGS\tDESCRIPTION")
	for _, c := range categories {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", c.ID, c.Name, c.BlogCount, c.Description)
	}
	return tw.Flush()
}

func cmdCategory(ctx context.Context, a *app, args []string) error {
	fs := newFlags("category")
	id := fs.Int64("id", 0, "category id")
	search := fs.String("search", "", "filter term")
	by := fs.String("by", "title", "filter field: title or author")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	filter := mutation.Filter{Term: *search, By: mutation.ByTitle}
	switch *by {
	case "title":
	case "author":
		filter.By = mutation.ByAuthor
	default:
		fmt.Fprintf(fs.Output(), "category: -by must be title or author\n")
		return errUsage
	}

	feed := mutation.NewFeed(func(ctx context.Context) ([]model.Blog, error) {
		return a.api.CategoryBlogs(ctx, *id, "")
	}, mutation.WithFilter(filter))

	return a.showFeed(ctx, feed)
}

func cmdMine(ctx context.Context, a *app, args []string) error {
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}
	return a.showFeed(ctx, mutation.NewFeed(a.api.MyBlogs))
}

func cmdLiked(ctx context.Context, a *app, args []string) error {
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}
	return a.showFeed(ctx, mutation.NewFeed(a.api.LikedBlogs))
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := newFlags("show")
	id := fs.Int64("id", 0, "blog id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	b, err := a.api.GetBlog(ctx, *id)
	if err != nil {
		return err
	}
	printBlog(a.out, b)
	return nil
}

func cmdInteract(kind model.Interaction) command {
	return func(ctx context.Context, a *app, args []string) error {
		fs := newFlags(string(kind))
		id := fs.Int64("id", 0, "blog id")
		if err := parse(fs, args); err != nil {
			return err
		}
		if err := requireID(fs, *id); err != nil {
			return err
		}
		if _, err := a.session.Require(ctx); err != nil {
			return err
		}

		b, err := a.api.GetBlog(ctx, *id)
		if err != nil {
			return err
		}

		view := mutation.NewItemView(a.api, b, a.knownReaction(ctx, *id))
		defer view.Close()

		if err := view.Toggle(ctx, kind); err != nil {
			return err
		}

		c := view.Counters()
		fmt.Fprintf(a.out, "%s: local estimate %d likes, %d dislikes (your reaction: %s)\n", b.Title, c.Likes, c.Dislikes, c.Mine)

		if view.Committed() {
			if fresh, err := a.api.GetBlog(ctx, *id); err == nil {
				fmt.Fprintf(a.out, "Server reports %d likes, %d dislikes\n", fresh.Likes, fresh.Dislikes)
			}
		}
		return nil
	}
}

// knownReaction infers the user's current reaction. Only likes can be
// recovered from the backend; anything else is reported as none.
func (a *app) knownReaction(ctx context.Context, id int64) model.Interaction {
	liked, err := a.api.LikedBlogs(ctx)
	if err != nil {
		a.logger.Debug("could not load liked blogs", "error", err)
		return model.InteractionNone
	}
	for _, b := range liked {
		if b.ID == id {
			return model.Like
		}
	}
	return model.InteractionNone
}

func cmdUnlike(ctx context.Context, a *app, args []string) error {
	fs := newFlags("unlike")
	id := fs.Int64("id", 0, "blog id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	list := mutation.NewLikedList(a.api, a.api.LikedBlogs)
	defer list.Close()

	if err := list.Refetch(ctx); err != nil {
		return err
	}
	if err := list.Unlike(ctx, *id); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Removed blog %d from your liked blogs\n", *id)
	printBlogs(a.out, list.Items())
	return nil
}

type blogFlags struct {
	title       *string
	description *string
	body        *string
	category    *int64
}

func addBlogFlags(fs *flag.FlagSet) blogFlags {
	return blogFlags{
		title:       fs.String("title", "", "title"),
		description: fs.String("description", "", "short description"),
		body:        fs.String("body", "", "content"),
		category:    fs.Int64("category", 0, "category id"),
	}
}

// merge overrides the fields of in that were given on the command line.
func (f blogFlags) merge(in model.BlogInput) model.BlogInput {
	if *f.title != "" {
		in.Title = *f.title
	}
	if *f.description != "" {
		in.Description = *f.description
	}
	if *f.body != "" {
		in.Body = *f.body
	}
	if *f.category > 0 {
		in.CategoryID = *f.category
	}
	return in
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create")
	bf := addBlogFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	editor := mutation.NewEditor(a.api)
	mine := mutation.NewFeed(a.api.MyBlogs)
	defer mine.Close()

	saved, err := editor.Submit(ctx, bf.merge(editor.Input()), mine)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created blog %d. You now have %d blogs.\n", saved.ID, len(mine.Items()))
	return nil
}

func cmdUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("update")
	id := fs.Int64("id", 0, "blog id")
	bf := addBlogFlags(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	current, err := a.api.GetBlog(ctx, *id)
	if err != nil {
		return err
	}

	editor := mutation.EditBlog(a.api, current)
	mine := mutation.NewFeed(a.api.MyBlogs)
	defer mine.Close()

	saved, err := editor.Submit(ctx, bf.merge(editor.Input()), mine)
	if err != nil {
		return err
	}

	printBlog(a.out, saved)
	return nil
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("delete")
	id := fs.Int64("id", 0, "blog id")
	yes := fs.Bool("yes", false, "confirm the deletion up front instead of prompting")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := requireID(fs, *id); err != nil {
		return err
	}
	if _, err := a.session.Require(ctx); err != nil {
		return err
	}

	var confirm mutation.Confirmer = mutation.ConfirmFunc(a.confirm)
	if *yes {
		confirm = mutation.ConfirmFunc(func(context.Context, string) (bool, error) { return true, nil })
	}

	mine := mutation.NewFeed(a.api.MyBlogs)
	defer mine.Close()

	if err := mutation.NewDeleter(a.api, confirm).Delete(ctx, *id, mine); err != nil {
		if errors.Is(err, mutation.ErrNotConfirmed) {
			fmt.Fprintln(a.out, "Cancelled")
			return nil
		}
		return err
	}

	fmt.Fprintf(a.out, "Deleted blog %d\n", *id)
	printBlogs(a.out, mine.Items())
	return nil
}

func (a *app) showFeed(ctx context.Context, feed *mutation.Feed) error {
	defer feed.Close()
	if err := feed.Refetch(ctx); err != nil {
		return err
	}
	printBlogs(a.out, feed.Items())
	return nil
}

// confirm asks on stdin. Anything but y or yes declines.
func (a *app) confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	answer := strings.ToLower(a.prompt(prompt + " [y/N]: "))
	return answer == "y" || answer == "yes", nil
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimSpace(line)
}

func printBlogs(w io.Writer, blogs []model.Blog) {
	if len(blogs) == 0 {
		fmt.Fprintln(w, "No blogs found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tCATEGORY\tLIKES\tDISLIKES\tCREATED")
	for _, b := range blogs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			b.ID, b.Title, b.Creator.Username, b.Category.Name, b.Likes, b.Dislikes, formatDate(b.CreatedAt))
	}
	_ = tw.Flush()
}

func printBlog(w io.Writer, b model.Blog) {
	fmt.Fprintf(w, "#%d %s\n", b.ID, b.Title)
	fmt.Fprintf(w, "by %s in %s, %s\n", b.Creator.Username, b.Category.Name, formatDate(b.CreatedAt))
	fmt.Fprintf(w, "%d likes, %d dislikes\n\n", b.Likes, b.Dislikes)
	if b.Description != "" {
		fmt.Fprintf(w, "%s\n\n", b.Description)
	}
	fmt.Fprintln(w, b.Body)
}

func formatDate(ts model.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("Jan 2, 2006")
}

// displayError renders err for the terminal, pointing at login when the
// session is gone.
func displayError(err error) string {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return "You are not logged in. Run: blognest login -email <email>"
	case errors.Is(err, apperr.ErrInvalidToken), errors.Is(err, apperr.ErrExpired):
		return apperr.Message(err) + " Run: blognest login -email <email>"
	}
	return apperr.Message(err)
}
