package chirp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

// stubAPI is a fake Chirp backend for the tests, routed the way the real
// service is. State mutated by handlers is guarded by mu; tests adjust the
// exported-ish fields between calls.
type stubAPI struct {
	mu          sync.Mutex
	readyAfter  int // probe number from which /status reports ok; 0 = never
	statusCalls int

	posts     []Post
	feed      []Post
	userPosts map[uint][]Post
	profiles  map[uint]UserProfile
	me        UserProfile

	token    string
	lastAuth string // Authorization header seen by the most recent request

	liked       map[uint]bool // server-side like state per post id
	likeStatus  int           // non-zero forces an error status on like
	loginStatus int           // non-zero forces an error status on login
	loginError  string
}

func newStubAPI() *stubAPI {
	return &stubAPI{
		readyAfter: 1,
		token:      "stub-token",
		userPosts:  map[uint][]Post{},
		profiles:   map[uint]UserProfile{},
		liked:      map[uint]bool{},
	}
}

func (s *stubAPI) server() *httptest.Server {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			s.mu.Lock()
			s.lastAuth = req.Header.Get("Authorization")
			s.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	// /users/me must be registered before /users/{id}.
	r.HandleFunc("/status", s.statusHandler).Methods("GET")
	r.HandleFunc("/auth/signup", s.authHandler).Methods("POST")
	r.HandleFunc("/auth/login", s.authHandler).Methods("POST")
	r.HandleFunc("/posts", s.postsHandler).Methods("GET")
	r.HandleFunc("/feed", s.feedHandler).Methods("GET")
	r.HandleFunc("/users/me", s.meHandler).Methods("GET")
	r.HandleFunc("/users/{id}", s.userHandler).Methods("GET")
	r.HandleFunc("/users/{id}/posts", s.userPostsHandler).Methods("GET")
	r.HandleFunc("/users/{id}/follow", s.followHandler).Methods("POST", "DELETE")
	r.HandleFunc("/posts/{id}/like", s.likeHandler).Methods("POST")
	return httptest.NewServer(r)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathID(r *http.Request) uint {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return uint(id)
}

func (s *stubAPI) statusHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.statusCalls++
	ready := s.readyAfter > 0 && s.statusCalls >= s.readyAfter
	s.mu.Unlock()

	if ready {
		writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, StatusResponse{Status: "starting"})
}

func (s *stubAPI) authHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status, message, token := s.loginStatus, s.loginError, s.token
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, MessageResponse{Message: message})
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{Token: token})
}

func (s *stubAPI) postsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.posts)
}

func (s *stubAPI) feedHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.feed)
}

func (s *stubAPI) meHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.me)
}

func (s *stubAPI) userHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	profile, ok := s.profiles[pathID(r)]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, MessageResponse{Message: "User not found"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *stubAPI) userPostsHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.userPosts[pathID(r)])
}

func (s *stubAPI) followHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "User unfollowed."})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "User followed."})
}

func (s *stubAPI) likeHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.likeStatus != 0 {
		writeJSON(w, s.likeStatus, MessageResponse{Message: "Like failed"})
		return
	}

	id := pathID(r)
	s.liked[id] = !s.liked[id]
	if s.liked[id] {
		writeJSON(w, http.StatusOK, MessageResponse{Message: MSG_POST_LIKED})
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: MSG_POST_UNLIKED})
}

// newTestClient builds a client pointed at the stub with its own metrics.
func newTestClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Second},
		creds:   &MemoryCredentialStore{},
		metrics: InitMetrics(),
	}
}

// fakeSleeper records probe delays instead of waiting them out.
type fakeSleeper struct {
	slept []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}
