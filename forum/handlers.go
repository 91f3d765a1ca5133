// forum/handlers.go
package forum

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// HomeViewData is rendered for both the all-posts and your-posts pages.
type HomeViewData struct {
	Posts []Post
	Flash string
}

// FormViewData backs the login and signup forms.
type FormViewData struct {
	Error string
}

// QuestionViewData is the single-question page with its answers.
type QuestionViewData struct {
	Post Post
}

// AnswerViewData carries the optional post id the answer form targets.
type AnswerViewData struct {
	PostID string
}

// ErrorViewData is the generic error page.
type ErrorViewData struct {
	Status  int
	Message string
}

type Handlers struct {
	posts     PostStore
	gate      *Gate
	google    IdentityProvider
	templates *template.Template
	logger    *slog.Logger
}

func NewHandlers(posts PostStore, gate *Gate, google IdentityProvider, logger *slog.Logger) (*Handlers, error) {
	tpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handlers{
		posts:     posts,
		gate:      gate,
		google:    google,
		templates: tpl,
		logger:    logger,
	}, nil
}

func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /login", h.showLogin)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("GET /signup", h.showSignup)
	mux.HandleFunc("POST /signup", h.signup)
	mux.HandleFunc("GET /auth/google", h.googleLogin)
	mux.HandleFunc("GET /auth/google/callback", h.googleCallback)
	mux.HandleFunc("GET /home", h.home)
	mux.HandleFunc("GET /post", h.showCompose)
	mux.HandleFunc("POST /compose", h.compose)
	mux.HandleFunc("POST /yourposts", h.yourPosts)
	mux.HandleFunc("GET /questions/{id}", h.showQuestion)
	mux.HandleFunc("GET /answer", h.showAnswer)
	mux.HandleFunc("POST /answers/{id}", h.appendAnswer)
	mux.HandleFunc("POST /search", h.search)
	mux.HandleFunc("POST /logout", h.logout)
	mux.HandleFunc("/", h.notFound)
}

// index sends the browser wherever its session entitles it to go.
func (h *Handlers) index(w http.ResponseWriter, r *http.Request) {
	if h.gate.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/home", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handlers) showLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", FormViewData{Error: h.gate.PopFlash(r.Context())})
}

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	user, err := h.gate.Authenticate(r.Context(), LocalCredentials{
		Username: r.FormValue("username"),
		Password: r.FormValue("password"),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.gate.Flash(r.Context(), "Invalid username or password.")
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.serverError(w, r, err)
		return
	}
	if err := h.gate.Establish(r.Context(), user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (h *Handlers) showSignup(w http.ResponseWriter, r *http.Request) {
	h.render(w, "signup.html", FormViewData{})
}

// signup registers and immediately establishes a session (auto-login).
func (h *Handlers) signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	user, err := h.gate.Register(r.Context(),
		r.FormValue("username"), r.FormValue("email"), r.FormValue("password"))
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			h.render(w, "signup.html", FormViewData{
				Error: "A user with the given username is already registered.",
			})
			return
		}
		h.serverError(w, r, err)
		return
	}
	if err := h.gate.Establish(r.Context(), user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (h *Handlers) googleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	h.gate.SetOAuthState(r.Context(), state)
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusFound)
}

// googleCallback finishes the authorization-code round-trip. Any failure
// lands the browser back on the login page, matching the local-login path.
func (h *Handlers) googleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := r.URL.Query().Get("state")
	if state == "" || state != h.gate.PopOAuthState(ctx) {
		h.gate.Flash(ctx, "Sign-in with Google failed.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	token, err := h.google.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Error("oauth exchange failed", "error", err)
		h.gate.Flash(ctx, "Sign-in with Google failed.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	subject, err := h.google.Subject(ctx, token)
	if err != nil {
		h.logger.Error("oauth userinfo failed", "error", err)
		h.gate.Flash(ctx, "Sign-in with Google failed.")
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	user, err := h.gate.Authenticate(ctx, GoogleIdentity{Subject: subject})
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.gate.Establish(ctx, user.ID); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	if !h.gate.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	posts, err := h.posts.ListPosts(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, "home.html", HomeViewData{Posts: posts, Flash: h.gate.PopFlash(r.Context())})
}

func (h *Handlers) showCompose(w http.ResponseWriter, r *http.Request) {
	if !h.gate.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.render(w, "post.html", nil)
}

func (h *Handlers) compose(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.Principal(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.serverError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	post := &Post{
		ID:            uuid.New().String(),
		OwnerID:       user.ID,
		OwnerUsername: user.Username,
		Title:         r.FormValue("postTitle"),
		Body:          r.FormValue("postBody"),
		Answers:       []Answer{},
	}
	if err := h.posts.CreatePost(r.Context(), post); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handlers) yourPosts(w http.ResponseWriter, r *http.Request) {
	user, err := h.gate.Principal(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.serverError(w, r, err)
		return
	}
	posts, err := h.posts.ListPostsByOwner(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, "home.html", HomeViewData{Posts: posts})
}

// showQuestion is a public read; a miss is an explicit 404 rather than the
// hung response the route historically produced.
func (h *Handlers) showQuestion(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.renderError(w, http.StatusNotFound, "No such question.")
			return
		}
		h.serverError(w, r, err)
		return
	}
	h.render(w, "question.html", QuestionViewData{Post: *post})
}

func (h *Handlers) showAnswer(w http.ResponseWriter, r *http.Request) {
	if !h.gate.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	h.render(w, "answer.html", AnswerViewData{PostID: r.URL.Query().Get("id")})
}

// appendAnswer is deliberately not gated: answering a question does not
// require a session, so this is a public write.
func (h *Handlers) appendAnswer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	answer := Answer{
		Title: r.FormValue("answerTitle"),
		Body:  r.FormValue("answerBody"),
		Link:  r.FormValue("suggestReference"),
	}
	post, err := h.posts.AppendAnswer(r.Context(), r.PathValue("id"), answer)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.renderError(w, http.StatusNotFound, "No such question.")
			return
		}
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/questions/"+post.ID, http.StatusFound)
}

// search looks up a post by its exact title. A miss flashes a message and
// returns to /home instead of dereferencing nothing.
func (h *Handlers) search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	target := r.FormValue("searchTarget")
	post, err := h.posts.GetPostByTitle(r.Context(), target)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.gate.Flash(r.Context(), "No post titled \""+target+"\".")
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/questions/"+post.ID, http.StatusFound)
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.gate.Destroy(r.Context()); err != nil {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, http.StatusNotFound, "Page not found.")
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	h.renderError(w, http.StatusInternalServerError, "Something went wrong.")
}

func (h *Handlers) renderError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "error.html", ErrorViewData{Status: status, Message: message}); err != nil {
		h.logger.Error("error executing template", "template", "error.html", "error", err)
	}
}

func (h *Handlers) render(w http.ResponseWriter, name string, data interface{}) {
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.logger.Error("error executing template", "template", name, "error", err)
	}
}
