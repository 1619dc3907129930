package chirp

import (
	"encoding/json"
	"os"
)

// likesContain reports whether userID is in the likes set.
func likesContain(likes []uint, userID uint) bool {
	for _, id := range likes {
		if id == userID {
			return true
		}
	}
	return false
}

// addLike returns a new likes set with userID added. Adding an id that is
// already present is a no-op, so the set invariant holds.
func addLike(likes []uint, userID uint) []uint {
	if likesContain(likes, userID) {
		return likes
	}
	out := make([]uint, 0, len(likes)+1)
	out = append(out, likes...)
	return append(out, userID)
}

// removeLike returns a new likes set with userID removed, preserving order.
func removeLike(likes []uint, userID uint) []uint {
	out := make([]uint, 0, len(likes))
	for _, id := range likes {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// clonePosts copies a view deeply enough that callers cannot alias the
// cached likes sets.
func clonePosts(posts []Post) []Post {
	out := make([]Post, len(posts))
	for i, p := range posts {
		out[i] = p
		out[i].Likes = make([]uint, len(p.Likes))
		copy(out[i].Likes, p.Likes)
	}
	return out
}

// messageFromBody pulls a human-readable message out of an error payload.
// The API is not consistent about the key it uses.
func messageFromBody(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error_msg", "error"} {
		if v, ok := payload[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// envOr reads an environment variable with a fallback.
func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
