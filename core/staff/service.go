package staff

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
	ErrNotFound = errors.New("staff member not found")

	errBadPhotoType = errors.New("photo must be a .png, .jpg or .jpeg file")
)

type (
	// Repository operations take the owning school's id first; rows outside
	// that school do not exist as far as callers are concerned.
	Repository interface {
		CreateStaff(ctx context.Context, stf Staff) (Staff, error)
		GetStaffByID(ctx context.Context, schoolID, id int) (Staff, error)
		// QueryStaff applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name or Designation.
		QueryStaff(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Staff, int, error)
		UpdateStaff(ctx context.Context, stf Staff) (Staff, error)
		DeleteStaffByID(ctx context.Context, schoolID int, ids ...int) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, schoolID int, ns NewStaff) (Staff, error)
		GetByID(ctx context.Context, schoolID, id int) (Staff, error)
		Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Staff, int, error)
		Update(ctx context.Context, orig Staff, us UpdateStaff) (Staff, error)
		Delete(ctx context.Context, schoolID int, ids ...int) error
		UploadPhoto(ctx context.Context, stf Staff, filename string, r io.Reader) (Staff, error)
		PhotoURL(stf Staff) string
	}

	service struct {
		repo  Repository
		files core.FileStore
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, files core.FileStore) *service {
	return &service{repo: repo, files: files}
}

func (svc *service) Create(ctx context.Context, schoolID int, ns NewStaff) (Staff, error) {
	now := time.Now().UTC()
	stf := Staff{
		SchoolID:      schoolID,
		Name:          ns.Name,
		Designation:   ns.Designation,
		Phone:         ns.Phone,
		MonthlySalary: ns.MonthlySalary,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateStaff(ctx, stf)
}

func (svc *service) GetByID(ctx context.Context, schoolID, id int) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, schoolID, id)
}

func (svc *service) Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Staff, int, error) {
	return svc.repo.QueryStaff(ctx, schoolID, filter, ordering, page.Normalize())
}

func (svc *service) Update(ctx context.Context, orig Staff, us UpdateStaff) (Staff, error) {
	stf := orig
	stf.Name = us.Name
	stf.Designation = us.Designation
	stf.Phone = us.Phone
	if us.MonthlySalary != nil {
		stf.MonthlySalary = *us.MonthlySalary
	}
	stf.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStaff(ctx, stf)
}

func (svc *service) Delete(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteStaffByID(ctx, schoolID, ids...)
	return err
}

// UploadPhoto stores the file first and only then references it from the row;
// a failed upload aborts the update.
func (svc *service) UploadPhoto(ctx context.Context, stf Staff, filename string, r io.Reader) (Staff, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		return Staff{}, core.NewValidationError(errBadPhotoType, core.FieldError{Field: "photo", Error: errBadPhotoType.Error()})
	}

	path := fmt.Sprintf("school-%d/staff/%s%s", stf.SchoolID, uuid.New(), ext)
	stored, err := svc.files.Upload(ctx, core.BucketProfiles, path, r)
	if err != nil {
		return Staff{}, core.NewValidationError(
			errors.Wrap(err, "uploading photo"),
			core.FieldError{Field: "photo", Error: "upload failed"},
		)
	}

	stf.Photo.SetValid(stored)
	stf.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStaff(ctx, stf)
}

func (svc *service) PhotoURL(stf Staff) string {
	if !stf.Photo.Valid {
		return ""
	}
	return svc.files.PublicURL(core.BucketProfiles, stf.Photo.String)
}
