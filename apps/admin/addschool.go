package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// addSchool registers a new school tenant. The school starts inactive; it
// only becomes usable once a superuser records the first subscription payment.
func (cli *commandLine) addSchool(name, email, mobile, address string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	mobile = core.CleanString(mobile)
	address = core.CleanString(address)

	if err := cli.schoolRepo.CheckSchoolNameUniqueness(ctx, name); err != nil {
		return err
	}

	now := time.Now().UTC()
	sch, err := cli.schoolRepo.CreateSchool(ctx, school.School{
		Name:      name,
		Email:     email,
		Mobile:    mobile,
		Address:   address,
		Active:    false,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}
	fmt.Printf("school %q created with id %d\n", sch.Name, sch.ID)
	return nil
}
