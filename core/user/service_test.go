package user

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

type resolveRepo struct {
	Repository

	usr User
	sch *school.School
	err error
}

func (r *resolveRepo) ResolveUser(ctx context.Context, id string) (User, *school.School, error) {
	return r.usr, r.sch, r.err
}

func TestResolve(t *testing.T) {
	sch := &school.School{ID: 1, Name: "Mwanga"}

	tests := []struct {
		name    string
		repo    *resolveRepo
		wantErr bool
	}{
		{name: "missing row", repo: &resolveRepo{err: ErrNotFound}, wantErr: true},
		{name: "fetch error", repo: &resolveRepo{err: errors.New("connection reset")}, wantErr: true},
		{name: "wrapped fetch error", repo: &resolveRepo{err: errors.Wrap(errors.New("connection reset"), "resolving user")}, wantErr: true},
		{name: "tenant role without a tenant", repo: &resolveRepo{usr: User{ID: "u1", Role: RoleSchoolAdmin}}, wantErr: true},
		{name: "unknown role", repo: &resolveRepo{usr: User{ID: "u1", Role: Role("janitor")}, sch: sch}, wantErr: true},
		{name: "superuser has no tenant", repo: &resolveRepo{usr: User{ID: "u1", Role: RoleSuperuser}}},
		{name: "tenant admin", repo: &resolveRepo{usr: User{ID: "u1", Role: RoleSchoolAdmin, SchoolID: null.IntFrom(1)}, sch: sch}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, nil, nil, &core.Config{})

			res, err := svc.Resolve(context.Background(), "u1")
			if tt.wantErr {
				// every failure mode must come back as ErrResolution; the
				// API error handler switches on the cause to map it to a
				// 401 + login redirect instead of a server error
				if errors.Cause(err) != ErrResolution {
					t.Errorf("Resolve() error cause = %v; want %v", errors.Cause(err), ErrResolution)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.User.ID != "u1" {
				t.Errorf("failed! user = %+v", res.User)
			}
		})
	}
}
