package main

import (
	"context"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/user"
)

// createSuperuser creates a superuser account, or repairs an existing one
// (reactivate, promote, set a fresh password). Any tenant scope or record
// link the account may have carried is cleared on promotion.
func (cli *commandLine) createSuperuser(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Name:      name,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
	}
	usr.Role = user.RoleSuperuser
	usr.SchoolID = null.Int{}
	usr.StaffID = null.Int{}
	usr.StudentID = null.Int{}
	usr.GuardID = null.Int{}
	usr.IsActive = true
	usr.UpdatedAt = time.Now().UTC()
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == "" {
		if usr, err = cli.usrRepo.CreateUser(ctx, usr); err != nil {
			return err
		}
	} else {
		if usr, err = cli.usrRepo.UpdateUser(ctx, usr); err != nil {
			return err
		}
	}
	fmt.Printf("superuser %s ready\n", usr.Email)
	return nil
}
