package assignment

import (
	"context"
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/solatis/routekeeper/internal/types"
)

// User is a candidate actor as seen by the external user directory.
// Memberships lists the ids the user holds per dimension; the user dimension
// always contains the user's own id.
type User struct {
	ID          string                       `json:"id" yaml:"id"`
	Username    string                       `json:"username,omitempty" yaml:"username,omitempty"`
	Email       string                       `json:"email,omitempty" yaml:"email,omitempty"`
	FullName    string                       `json:"fullName,omitempty" yaml:"fullName,omitempty"`
	DisplayName string                       `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Memberships map[types.Dimension][]string `json:"memberships,omitempty" yaml:"memberships,omitempty"`
}

// Values returns the ids the user holds for d.
func (u User) Values(d types.Dimension) []string {
	vals := u.Memberships[d]
	if d != types.DimUser || u.ID == "" {
		return vals
	}
	for _, v := range vals {
		if v == u.ID {
			return vals
		}
	}
	out := make([]string, 0, len(vals)+1)
	out = append(out, u.ID)
	return append(out, vals...)
}

// Directory supplies candidate users. Implementations wrap the external
// identity service; StaticDirectory serves previews and tests.
type Directory interface {
	Users(ctx context.Context) ([]User, error)
}

// StaticDirectory is an immutable in-memory Directory.
type StaticDirectory struct {
	users []User
}

// NewStaticDirectory copies users, ordering them by id.
func NewStaticDirectory(users ...User) *StaticDirectory {
	cp := make([]User, len(users))
	copy(cp, users)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].ID < cp[j].ID })
	return &StaticDirectory{users: cp}
}

// Users implements Directory.
func (d *StaticDirectory) Users(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out, nil
}

// LoadDirectory decodes a users file (YAML, or JSON which YAML accepts)
// of the form {users: [...]}. Unknown dimensions are rejected.
func LoadDirectory(r io.Reader) (*StaticDirectory, error) {
	var f struct {
		Users []User `yaml:"users"`
	}
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		path := fmt.Sprintf("users[%d].id", i)
		if u.ID == "" {
			return nil, types.NewValidationError(path, "user id is required")
		}
		if seen[u.ID] {
			return nil, types.Validationf(path, "duplicate user %q", u.ID)
		}
		seen[u.ID] = true
	}
	return NewStaticDirectory(f.Users...), nil
}
