package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/guard"
)

type guardRepository struct {
	db *DB
}

var _ guard.Repository = (*guardRepository)(nil) // interface compliance check

func NewGuardRepository(db *DB) *guardRepository {
	return &guardRepository{db: db}
}

func (repo *guardRepository) CreateGuard(ctx context.Context, grd guard.Guard) (guard.Guard, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	grd.ID = repo.db.nextID()
	repo.db.guards[grd.ID] = &grd
	return grd, nil
}

func (repo *guardRepository) GetGuardByID(ctx context.Context, schoolID, id int) (guard.Guard, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if grd, ok := repo.db.guards[id]; ok && grd.SchoolID == schoolID {
		return *grd, nil
	}
	return guard.Guard{}, guard.ErrNotFound
}

func (repo *guardRepository) QueryGuards(ctx context.Context, schoolID int, filter *guard.QueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]guard.Guard, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []guard.Guard
	for _, grd := range repo.db.guards {
		if grd.SchoolID != schoolID {
			continue
		}
		if filter != nil && !matches(filter.Search, grd.Name, grd.Shift) {
			continue
		}
		matched = append(matched, *grd)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *guardRepository) UpdateGuard(ctx context.Context, grd guard.Guard) (guard.Guard, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.guards[grd.ID]; !ok || orig.SchoolID != grd.SchoolID {
		return guard.Guard{}, guard.ErrNotFound
	}
	repo.db.guards[grd.ID] = &grd
	return grd, nil
}

func (repo *guardRepository) DeleteGuardsByID(ctx context.Context, schoolID int, ids ...int) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var n int
	for _, id := range ids {
		if grd, ok := repo.db.guards[id]; ok && grd.SchoolID == schoolID {
			delete(repo.db.guards, id)
			n++
		}
	}
	return n, nil
}

func (repo *guardRepository) CreateVisitor(ctx context.Context, vis guard.Visitor) (guard.Visitor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	vis.ID = repo.db.nextID()
	repo.db.visitors[vis.ID] = &vis
	return vis, nil
}

func (repo *guardRepository) GetVisitorByID(ctx context.Context, schoolID, id int) (guard.Visitor, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if vis, ok := repo.db.visitors[id]; ok && vis.SchoolID == schoolID {
		return *vis, nil
	}
	return guard.Visitor{}, guard.ErrVisitorNotFound
}

func (repo *guardRepository) QueryVisitors(ctx context.Context, schoolID int, filter *guard.VisitorQueryFilter, ordering []core.DBOrdering, page core.Pagination) ([]guard.Visitor, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var matched []guard.Visitor
	for _, vis := range repo.db.visitors {
		if vis.SchoolID != schoolID {
			continue
		}
		if filter != nil {
			if !matches(filter.Search, vis.Name, vis.Purpose) {
				continue
			}
			if filter.GuardID != 0 && vis.GuardID != filter.GuardID {
				continue
			}
			if filter.Present != nil && vis.LeftAt.Valid == *filter.Present {
				continue
			}
		}
		matched = append(matched, *vis)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	lo, hi := window(len(matched), page)
	return matched[lo:hi], len(matched), nil
}

func (repo *guardRepository) UpdateVisitor(ctx context.Context, vis guard.Visitor) (guard.Visitor, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.visitors[vis.ID]; !ok || orig.SchoolID != vis.SchoolID {
		return guard.Visitor{}, guard.ErrVisitorNotFound
	}
	repo.db.visitors[vis.ID] = &vis
	return vis, nil
}
