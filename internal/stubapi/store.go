// Package stubapi is an in-memory blog backend serving the same endpoints,
// payloads and status codes as the production API. It backs local
// development and the client's integration tests.
package stubapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blognest/blognest-go/internal/crypto"
	"github.com/blognest/blognest-go/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrEmailTaken        = errors.New("email already registered")
	ErrBlogNotFound      = errors.New("blog not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrForbidden         = errors.New("not the author of this blog")
)

var seedCategories = []model.Category{
	{Name: "Personal Blog", Description: "Life updates, stories, thoughts, and reflections from an individual."},
	{Name: "Tech Blog", Description: "Tutorials, news, and discussions around programming, gadgets, and tech trends."},
	{Name: "Travel Blog", Description: "Travel guides, itineraries, cultural experiences, and destination reviews."},
	{Name: "Food Blog", Description: "Recipes, cooking tips, restaurant reviews, and culinary experiences."},
	{Name: "Finance Blog", Description: "Personal finance, investing, saving tips, and budgeting."},
	{Name: "Health & Fitness Blog", Description: "Exercise routines, nutrition advice, wellness strategies."},
	{Name: "Educational Blog", Description: "Teach academic or skill-based topics (math, coding, languages, etc.)."},
	{Name: "Lifestyle Blog", Description: "A mix of daily life, routines, productivity, home, and personal development."},
	{Name: "Gaming Blog", Description: "Game reviews, news, guides, walkthroughs, and gaming culture."},
	{Name: "Coding/Dev Blog", Description: "Tutorials, tools, frameworks, and software engineering topics."},
}

type account struct {
	model.User
	passwordHash string
}

type post struct {
	id          int64
	title       string
	description string
	body        string
	createdAt   time.Time
	creatorID   int64
	categoryID  int64
}

// Store holds users, categories, blogs and reactions in memory.
type Store struct {
	params crypto.KeyParams
	now    func() time.Time

	mu         sync.RWMutex
	users      map[int64]*account
	byEmail    map[string]int64
	categories []model.Category
	posts      map[int64]*post
	reactions  map[int64]map[int64]model.Interaction // blog -> user -> reaction
	nextUser   int64
	nextPost   int64
}

// NewStore returns a Store seeded with the default categories.
func NewStore(params crypto.KeyParams, now func() time.Time) *Store {
	s := &Store{
		params:    params,
		now:       now,
		users:     make(map[int64]*account),
		byEmail:   make(map[string]int64),
		posts:     make(map[int64]*post),
		reactions: make(map[int64]map[int64]model.Interaction),
	}
	for i, c := range seedCategories {
		c.ID = int64(i + 1)
		s.categories = append(s.categories, c)
	}
	return s
}

func (s *Store) CreateUser(p model.Profile) (model.User, error) {
	email := strings.TrimSpace(p.Email)

	s.mu.RLock()
	_, taken := s.byEmail[email]
	s.mu.RUnlock()
	if taken {
		return model.User{}, ErrEmailTaken
	}

	hash, err := crypto.HashPassword(p.Password, s.params)
	if err != nil {
		return model.User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return model.User{}, ErrEmailTaken
	}

	s.nextUser++
	a := &account{
		User:         model.User{ID: s.nextUser, Username: strings.TrimSpace(p.Username), Email: email},
		passwordHash: hash,
	}
	s.users[a.ID] = a
	s.byEmail[email] = a.ID
	return a.User, nil
}

// Authenticate checks a login. An unknown email and a wrong password are
// distinct errors, as the login endpoint reports them with different codes.
func (s *Store) Authenticate(email, password string) (model.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[strings.TrimSpace(email)]
	var a account
	if ok {
		a = *s.users[id]
	}
	s.mu.RUnlock()

	if !ok {
		return model.User{}, ErrUserNotFound
	}

	match, err := crypto.VerifyPassword(password, a.passwordHash)
	if err != nil {
		return model.User{}, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return model.User{}, ErrIncorrectPassword
	}
	return a.User, nil
}

func (s *Store) UserByEmail(email string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return model.User{}, false
	}
	return s.users[id].User, true
}

// Categories returns every category with its blog count.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int)
	for _, p := range s.posts {
		counts[p.categoryID]++
	}

	out := make([]model.Category, len(s.categories))
	for i, c := range s.categories {
		c.BlogCount = counts[c.ID]
		out[i] = c
	}
	return out
}

// Blogs returns blogs matching search, newest first.
func (s *Store) Blogs(search string) []model.Blog {
	return s.list(search, func(*post) bool { return true })
}

func (s *Store) CategoryBlogs(categoryID int64, search string) []model.Blog {
	return s.list(search, func(p *post) bool { return p.categoryID == categoryID })
}

func (s *Store) BlogsBy(userID int64) []model.Blog {
	return s.list("", func(p *post) bool { return p.creatorID == userID })
}

func (s *Store) LikedBy(userID int64) []model.Blog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked("", func(p *post) bool {
		return s.reactions[p.id][userID] == model.Like
	})
}

func (s *Store) list(search string, keep func(*post) bool) []model.Blog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(search, keep)
}

func (s *Store) listLocked(search string, keep func(*post) bool) []model.Blog {
	term := strings.ToLower(strings.TrimSpace(search))

	out := []model.Blog{}
	for _, p := range s.posts {
		if !keep(p) {
			continue
		}
		b := s.viewLocked(p)
		if term != "" &&
			!strings.Contains(strings.ToLower(b.Title), term) &&
			!strings.Contains(strings.ToLower(b.Creator.Username), term) {
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].CreatedAt.After(out[j].CreatedAt.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) Blog(id int64) (model.Blog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return model.Blog{}, ErrBlogNotFound
	}
	return s.viewLocked(p), nil
}

func (s *Store) CreateBlog(userID int64, in model.BlogInput) (model.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasCategoryLocked(in.CategoryID) {
		return model.Blog{}, ErrCategoryNotFound
	}

	s.nextPost++
	p := &post{
		id:          s.nextPost,
		title:       in.Title,
		description: in.Description,
		body:        in.Body,
		createdAt:   s.now().UTC(),
		creatorID:   userID,
		categoryID:  in.CategoryID,
	}
	s.posts[p.id] = p
	return s.viewLocked(p), nil
}

func (s *Store) UpdateBlog(userID, id int64, in model.BlogInput) (model.Blog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.ownedLocked(userID, id)
	if err != nil {
		return model.Blog{}, err
	}
	if !s.hasCategoryLocked(in.CategoryID) {
		return model.Blog{}, ErrCategoryNotFound
	}

	p.title = in.Title
	p.description = in.Description
	p.body = in.Body
	p.categoryID = in.CategoryID
	return s.viewLocked(p), nil
}

func (s *Store) DeleteBlog(userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ownedLocked(userID, id); err != nil {
		return err
	}
	delete(s.posts, id)
	delete(s.reactions, id)
	return nil
}

// Interact toggles userID's reaction on a blog: the same reaction again
// removes it and the other reaction replaces it. It returns a description of
// what changed.
func (s *Store) Interact(userID, blogID int64, kind model.Interaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[blogID]; !ok {
		return "", ErrBlogNotFound
	}

	byUser := s.reactions[blogID]
	if byUser == nil {
		byUser = make(map[int64]model.Interaction)
		s.reactions[blogID] = byUser
	}

	switch byUser[userID] {
	case kind:
		delete(byUser, userID)
		return "Removed " + string(kind), nil
	case model.InteractionNone:
		byUser[userID] = kind
		return "Added " + string(kind), nil
	default:
		byUser[userID] = kind
		return "Changed interaction to " + string(kind), nil
	}
}

// Reaction returns userID's current reaction to a blog.
func (s *Store) Reaction(userID, blogID int64) model.Interaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reactions[blogID][userID]
}

func (s *Store) ownedLocked(userID, id int64) (*post, error) {
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrBlogNotFound
	}
	if p.creatorID != userID {
		return nil, ErrForbidden
	}
	return p, nil
}

func (s *Store) hasCategoryLocked(id int64) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) viewLocked(p *post) model.Blog {
	b := model.Blog{
		ID:          p.id,
		Title:       p.title,
		Description: p.description,
		Body:        p.body,
		CreatedAt:   model.Timestamp{Time: p.createdAt},
	}
	if a, ok := s.users[p.creatorID]; ok {
		b.Creator = a.User
	}
	for _, c := range s.categories {
		if c.ID == p.categoryID {
			b.Category = model.Category{ID: c.ID, Name: c.Name, Description: c.Description}
			break
		}
	}
	for _, r := range s.reactions[p.id] {
		switch r {
		case model.Like:
			b.Likes++
		case model.Dislike:
			b.Dislikes++
		}
	}
	return b
}
