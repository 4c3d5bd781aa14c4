package contexts

import (
	"context"
	"fmt"
	"os"
	"os/user"
)

const (
	UserProviderName = "user"

	// SuperuserName is the account name that never needs elevation.
	SuperuserName = "root"
)

// User identifies the user invoking comtrya.
type User struct {
	Username string
	UID      string
	GID      string
	HomeDir  string
}

// IsSuperuser reports whether u is the superuser account.
func (u User) IsSuperuser() bool {
	return u.Username == SuperuserName || u.UID == "0"
}

// CurrentUser looks up the user running this process.
func CurrentUser() (User, error) {
	u, err := user.Current()
	if err != nil {
		name, ok := os.LookupEnv("USER")
		if !ok || name == "" {
			return User{}, fmt.Errorf("lookup current user: %w", err)
		}

		home, _ := os.UserHomeDir() //nolint:errcheck // Best effort.

		return User{Username: name, HomeDir: home}, nil
	}

	return User{
		Username: u.Username,
		UID:      u.Uid,
		GID:      u.Gid,
		HomeDir:  u.HomeDir,
	}, nil
}

// UserProvider detects the invoking user.
type UserProvider struct {
	lookup func() (User, error)
}

func NewUserProvider() *UserProvider {
	return &UserProvider{lookup: CurrentUser}
}

// NewStaticUserProvider always reports u.
func NewStaticUserProvider(u User) *UserProvider {
	return &UserProvider{lookup: func() (User, error) { return u, nil }}
}

func (p *UserProvider) Name() string {
	return UserProviderName
}

func (p *UserProvider) Detect(_ context.Context) (Values, error) {
	u, err := p.lookup()
	if err != nil {
		return nil, err
	}

	return Values{
		"username":  u.Username,
		"uid":       u.UID,
		"gid":       u.GID,
		"home_dir":  u.HomeDir,
		"superuser": u.IsSuperuser(),
	}, nil
}

func userFromValues(v Values) User {
	str := func(key string) string {
		s, _ := v[key].(string)
		return s
	}

	return User{
		Username: str("username"),
		UID:      str("uid"),
		GID:      str("gid"),
		HomeDir:  str("home_dir"),
	}
}
