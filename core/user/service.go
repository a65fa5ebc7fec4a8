package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrUserExists     = errors.New("a user with this username or email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
	ErrEmailExists    = errors.New("a user with this email already exists")

	// ErrResolution means the authenticated principal could not be mapped to
	// a usable {user, tenant} pair. The access gate treats it exactly like
	// "not logged in": redirect to login, never a half-hydrated dashboard.
	ErrResolution = errors.New("principal could not be resolved")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// QueryUsers applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name, Username or Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]User, int, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) (int, error)
		// ResolveUser loads the user row and its school in a single joined
		// read. The school is nil when the user has none linked.
		ResolveUser(ctx context.Context, id string) (User, *school.School, error)
	}

	// Resolution is an authenticated principal mapped to its tenant scope.
	Resolution struct {
		User    User
		School  *school.School // nil for superusers
		LogoURL string         // resolved from the school's logo reference, "" when absent
	}

	ServiceInterface interface {
		CheckUniqueness(uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]User, int, error)
		Update(ctx context.Context, orig User, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Resolve(ctx context.Context, principalID string) (Resolution, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		files   core.FileStore
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, files core.FileStore, conf *core.Config) *service {
	initTokens(conf)
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		files:   files,
		conf:    conf,
	}
}

func (svc *service) CheckUniqueness(uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(context.Background(), uname, email, exclUsers...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		case ErrUserExists:
			field = "username"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Username:  null.NewString(nu.Username, nu.Username != ""),
		Email:     nu.Email,
		Role:      nu.Role,
		SchoolID:  null.NewInt(nu.SchoolID, nu.SchoolID != 0),
		StaffID:   null.NewInt(nu.StaffID, nu.StaffID != 0),
		StudentID: null.NewInt(nu.StudentID, nu.StudentID != 0),
		GuardID:   null.NewInt(nu.GuardID, nu.GuardID != 0),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: []string{uname, uname}})
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]User, int, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering, page.Normalize())
}

func (svc *service) Update(ctx context.Context, orig User, uu UpdateUser) (User, error) {
	usr := orig
	usr.Name = uu.Name
	usr.Username = null.NewString(uu.Username, uu.Username != "")
	usr.Email = uu.Email
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = time.Now().UTC()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids...)
	return err
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// Resolve maps an authenticated principal id to its user row and tenant in a
// single joined read. Any failure mode - missing row, fetch error, role that
// requires a tenant without one, role whose record link is missing - comes
// back as ErrResolution so callers cannot tell the cases apart and cannot
// render a partially-hydrated dashboard.
func (svc *service) Resolve(ctx context.Context, principalID string) (Resolution, error) {
	usr, sch, err := svc.repo.ResolveUser(ctx, principalID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Resolution{}, ErrResolution
		}
		// callers check the cause; the fetch error rides along as context
		return Resolution{}, errors.WithMessage(ErrResolution, err.Error())
	}

	if !usr.Role.Valid() {
		return Resolution{}, ErrResolution
	}
	if usr.Role.RequiresTenant() && sch == nil {
		return Resolution{}, ErrResolution
	}
	// a staff/student/guard record link may legitimately be absent (account
	// created ahead of the record); resolution still succeeds and routing
	// falls back to the generic profile surface

	res := Resolution{User: usr, School: sch}
	if sch != nil && sch.Logo.Valid && svc.files != nil {
		res.LogoURL = svc.files.PublicURL(core.BucketLogos, sch.Logo.String)
	}
	return res, nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	uid, err := decodeUID(rp.UID)
	if err != nil {
		return errInvalidToken
	}
	usr, err := svc.GetByID(ctx, uid)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return errInvalidToken
		}
		return errors.Wrap(err, "finding user by uid")
	}
	if err = verifyToken(usr, rp.Token); err != nil {
		return err
	}
	if err = usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	svc.sendPasswordResetDoneMail(usr)
	return nil
}

// mails

func (svc *service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Welcome",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nYour account has been created. Sign in at %s to get started.",
			usr.Name, svc.conf.FrontendBaseURL,
		),
	})
}

func (svc *service) sendPasswordResetMail(usr User) {
	token := makeToken(usr)
	link := fmt.Sprintf("%s/password-reset?uid=%s&token=%s", svc.conf.FrontendBaseURL, EncodeUID(usr), token)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\nFollow this link to reset your password:\n%s\n\n"+
				"If you did not request this, you can safely ignore this email.",
			usr.Name, link,
		),
	})
}

func (svc *service) sendPasswordResetDoneMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: "Password Reset Successful",
		BodyStr: fmt.Sprintf("Hi %s,\n\nYour password has been reset.", usr.Name),
	})
}
