package student

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
)

var (
	ErrNotFound = errors.New("student not found")

	errBadPhotoType = errors.New("photo must be a .png, .jpg or .jpeg file")
)

type (
	// Repository operations take the owning school's id first; rows outside
	// that school do not exist as far as callers are concerned.
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, schoolID, id int) (Student, error)
		// QueryStudents applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Name or GuardianName.
		QueryStudents(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, schoolID int, ids ...int) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, schoolID int, ns NewStudent) (Student, error)
		GetByID(ctx context.Context, schoolID, id int) (Student, error)
		Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error)
		Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, schoolID int, ids ...int) error
		UploadPhoto(ctx context.Context, std Student, filename string, r io.Reader) (Student, error)
		PhotoURL(std Student) string
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

func (svc *service) Create(ctx context.Context, schoolID int, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		SchoolID:     schoolID,
		ClassroomID:  null.NewInt(ns.ClassroomID, ns.ClassroomID != 0),
		Name:         ns.Name,
		GuardianName: ns.GuardianName,
		Phone:        ns.Phone,
		MonthlyFee:   ns.MonthlyFee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *service) GetByID(ctx context.Context, schoolID, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, schoolID, id)
}

func (svc *service) Query(ctx context.Context, schoolID int, filter *QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]Student, int, error) {
	return svc.repo.QueryStudents(ctx, schoolID, filter, ordering, page.Normalize())
}

func (svc *service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	std := orig
	std.Name = us.Name
	std.GuardianName = us.GuardianName
	std.Phone = us.Phone
	if us.ClassroomID != nil {
		std.ClassroomID = null.NewInt(*us.ClassroomID, *us.ClassroomID != 0)
	}
	if us.MonthlyFee != nil {
		std.MonthlyFee = *us.MonthlyFee
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) Delete(ctx context.Context, schoolID int, ids ...int) error {
	_, err := svc.repo.DeleteStudentsByID(ctx, schoolID, ids...)
	return err
}

// UploadPhoto stores the file first and only then references it from the row;
// a failed upload aborts the update.
func (svc *service) UploadPhoto(ctx context.Context, std Student, filename string, r io.Reader) (Student, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		return Student{}, core.NewValidationError(errBadPhotoType, core.FieldError{Field: "photo", Error: errBadPhotoType.Error()})
	}

	path := fmt.Sprintf("school-%d/students/%s%s", std.SchoolID, uuid.New(), ext)
	stored, err := svc.files.Upload(ctx, core.BucketProfiles, path, r)
	if err != nil {
		return Student{}, core.NewValidationError(
			errors.Wrap(err, "uploading photo"),
			core.FieldError{Field: "photo", Error: "upload failed"},
		)
	}

	std.Photo.SetValid(stored)
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) PhotoURL(std Student) string {
	if !std.Photo.Valid {
		return ""
	}
	return svc.files.PublicURL(core.BucketProfiles, std.Photo.String)
}
