package main

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
)

// remindExpiring emails every school whose subscription runs out within the
// configured warning window. Meant to be run daily from a cron job.
func (cli *commandLine) remindExpiring() error {
	ctx := context.Background()
	now := time.Now().UTC()

	var msgs []*core.EmailMessage
	page := core.Pagination{Limit: 100}
	for {
		schools, total, err := cli.schoolRepo.QuerySchools(ctx, &school.QueryFilter{}, nil, page.Normalize())
		if err != nil {
			return err
		}
		for _, sch := range schools {
			st := school.ComputeSubscriptionStatus(sch, now)
			if !st.Active || st.DaysRemaining > cli.conf.Access.ExpiryWarningDays {
				continue
			}
			msgs = append(msgs, &core.EmailMessage{
				To:      []mail.Address{{Name: sch.Name, Address: sch.Email}},
				Subject: "Subscription Expiring Soon",
				BodyStr: fmt.Sprintf(
					"Hi %s,\n\nYour subscription expires in %d day(s), on %s. "+
						"Renew before then to keep your school's account active.",
					sch.Name, st.DaysRemaining, st.SubscriptionEnd.Time.Format("02 Jan 2006"),
				),
			})
		}
		page.Offset += len(schools)
		if len(schools) == 0 || page.Offset >= total {
			break
		}
	}

	if len(msgs) > 0 {
		cli.mailSvc.SendMessages(msgs...)
	}
	fmt.Printf("%d reminder(s) sent\n", len(msgs))
	return nil
}
