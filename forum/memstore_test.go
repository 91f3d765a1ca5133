package forum

import (
	"context"
	"sync"
)

// memStore is an in-memory UserStore + PostStore used by the tests so the
// handlers and gate run against real logic without a database.
type memStore struct {
	mu        sync.Mutex
	users     map[string]*User
	posts     map[string]*Post
	postOrder []string
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]*User),
		posts: make(map[string]*Post),
	}
}

func copyUser(u *User) *User {
	c := *u
	if u.GoogleID != nil {
		id := *u.GoogleID
		c.GoogleID = &id
	}
	return &c
}

func copyPost(p *Post) *Post {
	c := *p
	c.Answers = append([]Answer(nil), p.Answers...)
	return &c
}

func (s *memStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *memStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *memStore) FindOrCreateByGoogleID(_ context.Context, subject string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.GoogleID != nil && *u.GoogleID == subject {
			return copyUser(u), nil
		}
	}
	user := NewGoogleUser(subject)
	for _, u := range s.users {
		if u.Username == user.Username {
			user.Username = user.Username + "-" + user.ID[:8]
			break
		}
	}
	s.users[user.ID] = copyUser(user)
	return user, nil
}

func (s *memStore) CreatePost(_ context.Context, post *Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[post.ID] = copyPost(post)
	s.postOrder = append(s.postOrder, post.ID)
	return nil
}

func (s *memStore) ListPosts(_ context.Context) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []Post
	for _, id := range s.postOrder {
		posts = append(posts, *copyPost(s.posts[id]))
	}
	return posts, nil
}

func (s *memStore) ListPostsByOwner(_ context.Context, ownerID string) ([]Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []Post
	for _, id := range s.postOrder {
		if s.posts[id].OwnerID == ownerID {
			posts = append(posts, *copyPost(s.posts[id]))
		}
	}
	return posts, nil
}

func (s *memStore) GetPost(_ context.Context, id string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyPost(p), nil
}

func (s *memStore) GetPostByTitle(_ context.Context, title string) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.postOrder {
		if s.posts[id].Title == title {
			return copyPost(s.posts[id]), nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) AppendAnswer(_ context.Context, postID string, answer Answer) (*Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[postID]
	if !ok {
		return nil, ErrNotFound
	}
	p.Answers = append(p.Answers, answer)
	return copyPost(p), nil
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
