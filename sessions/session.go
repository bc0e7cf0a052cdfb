package sessions

// Session is the identity and credential record of the current user.
// An empty field means the value is absent.
type Session struct {
	AccessToken  string // Bearer token sent on every authenticated request
	RefreshToken string // Optional, persisted alongside the access token
	Email        string // Required whenever AccessToken is set
	UserID       string // Runtime only, refetched from /user/me after restart
	Role         string // Runtime only, refetched from /user/me after restart
}

// Authenticated reports whether the session carries an access token.
// Other fields of an unauthenticated session are stale and must be ignored.
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}

// Keys of the persisted tier. Only credential fields are persisted.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserEmail    = "user_email"
)

// PersistedKeys lists every key the store writes to the persisted tier.
var PersistedKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserEmail}
