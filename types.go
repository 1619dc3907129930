package chirp

// Post is one post as served by the Chirp API. The same logical post can be
// cached in several scopes at once; those copies share nothing.
type Post struct {
	ID       uint   `json:"id"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
	// Likes holds the ids of the users that liked the post. It is a set:
	// no duplicates, and its length is the displayed like count.
	Likes []uint `json:"likes"`
}

// UserProfile backs the own-profile and other-profile screens.
// IsFollowing is only meaningful when the profile is not the caller's own.
type UserProfile struct {
	UserID         uint   `json:"user_id"`
	Username       string `json:"username"`
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	IsFollowing    bool   `json:"is_following"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LogInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
