package school

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound   = errors.New("school not found")
	ErrNameExists = errors.New("a school with this name already exists")

	errBadLogoType = errors.New("logo must be a .png, .jpg or .jpeg file")
)

type (
	Repository interface {
		CheckSchoolNameUniqueness(ctx context.Context, name string, excludedSchools ...School) error
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id int) (School, error)
		// QuerySchools applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name or Email.
		QuerySchools(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]School, int, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)
		DeleteSchoolsByID(ctx context.Context, ids ...int) (int, error)
	}

	ServiceInterface interface {
		CheckUniqueness(name string, orig School) error
		Create(ctx context.Context, ns NewSchool) (School, error)
		GetByID(ctx context.Context, id int) (School, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]School, int, error)
		Update(ctx context.Context, orig School, us UpdateSchool) (School, error)
		Renew(ctx context.Context, id int, rs RenewSubscription) (School, error)
		SetActive(ctx context.Context, id int, active bool) (School, error)
		Delete(ctx context.Context, ids ...int) error
		UploadLogo(ctx context.Context, sch School, filename string, r io.Reader) (School, error)
		LogoURL(sch School) string
		Status(sch School) SubscriptionStatus
	}

	service struct {
		repo    Repository
		files   core.FileStore
		nowFunc func() time.Time // mockable
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, files core.FileStore) *service {
	return &service{
		repo:    repo,
		files:   files,
		nowFunc: time.Now,
	}
}

func (svc *service) CheckUniqueness(name string, orig School) error {
	var excl []School
	if orig.ID != 0 {
		excl = append(excl, orig)
	}
	if err := svc.repo.CheckSchoolNameUniqueness(context.Background(), name, excl...); err != nil {
		if err == ErrNameExists {
			return core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := svc.nowFunc().UTC()
	sch := School{
		Name:      ns.Name,
		Email:     ns.Email,
		Mobile:    ns.Mobile,
		Address:   ns.Address,
		Active:    false, // stays off until a subscription is started
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSchool(ctx, sch)
}

func (svc *service) GetByID(ctx context.Context, id int) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]School, int, error) {
	return svc.repo.QuerySchools(ctx, filter, ordering, page.Normalize())
}

func (svc *service) Update(ctx context.Context, orig School, us UpdateSchool) (School, error) {
	sch := orig
	sch.Name = us.Name
	sch.Email = us.Email
	sch.Mobile = us.Mobile
	sch.Address = us.Address
	sch.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateSchool(ctx, sch)
}

// Renew starts or extends the subscription. Extension is anchored on the
// current end date when it is still in the future, on "now" otherwise, so a
// lapsed school does not lose the lapsed period and a current one keeps its
// remaining days.
func (svc *service) Renew(ctx context.Context, id int, rs RenewSubscription) (School, error) {
	sch, err := svc.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return School{}, err
	}

	now := svc.nowFunc().UTC()
	base := now
	if sch.SubscriptionEnd.Valid && sch.SubscriptionEnd.Time.After(now) {
		base = sch.SubscriptionEnd.Time
	}

	sch.Active = true
	if !sch.SubscriptionStart.Valid {
		sch.SubscriptionStart.SetValid(now)
	}
	sch.SubscriptionEnd.SetValid(base.AddDate(0, rs.Months, 0))
	sch.PaymentAmount.SetValid(rs.Amount)
	sch.LastPaymentDate.SetValid(now)
	sch.UpdatedAt = now

	return svc.repo.UpdateSchool(ctx, sch)
}

// SetActive flips the manual flag only; dates are untouched so reactivation
// restores whatever subscription window the school still has.
func (svc *service) SetActive(ctx context.Context, id int, active bool) (School, error) {
	sch, err := svc.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return School{}, err
	}
	sch.Active = active
	sch.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	_, err := svc.repo.DeleteSchoolsByID(ctx, ids...)
	return err
}

// UploadLogo stores the file first and only then references it from the
// School row; a failed upload aborts the update so a School never points at a
// file that is not there.
func (svc *service) UploadLogo(ctx context.Context, sch School, filename string, r io.Reader) (School, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		return School{}, core.NewValidationError(errBadLogoType, core.FieldError{Field: "logo", Error: errBadLogoType.Error()})
	}

	path := fmt.Sprintf("school-%d/%s%s", sch.ID, uuid.New(), ext)
	stored, err := svc.files.Upload(ctx, core.BucketLogos, path, r)
	if err != nil {
		return School{}, core.NewValidationError(
			errors.Wrap(err, "uploading logo"),
			core.FieldError{Field: "logo", Error: "upload failed"},
		)
	}

	sch.Logo.SetValid(stored)
	sch.UpdatedAt = svc.nowFunc().UTC()
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *service) LogoURL(sch School) string {
	if !sch.Logo.Valid {
		return ""
	}
	return svc.files.PublicURL(core.BucketLogos, sch.Logo.String)
}

// Status recomputes the subscription status at the current instant.
func (svc *service) Status(sch School) SubscriptionStatus {
	return ComputeSubscriptionStatus(sch, svc.nowFunc())
}
