package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
	testutil "github.com/trezcool/shule/tests"
)

const testPassword = "S3kr3t!pwd"

func setup(t *testing.T) *commandLine {
	t.Helper()

	emailsvc.ClearSentMessages()
	conf := testutil.NewConfig()
	db := inmemdb.NewDB()
	return &commandLine{
		usrRepo:    inmemdb.NewUserRepository(db),
		schoolRepo: inmemdb.NewSchoolRepository(db),
		mailSvc:    emailsvc.NewConsoleServiceMock(conf),
		conf:       conf,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "guards", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, cli.usrRepo, "Root", "root@test.cd", testPassword, user.RoleSuperuser, 0, 0, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "N3w-S3kr3t!"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed, %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_createSuperuser(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(testPassword), nil }

	t.Run("missing flags", func(t *testing.T) {
		if err := cli.run([]string{"admin", "createsuperuser"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("create", func(t *testing.T) {
		if err := cli.run([]string{"admin", "createsuperuser", "-name", "Root", "-email", "Root@Shule.CD"}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: "root@shule.cd"})
		if err != nil {
			t.Fatalf("GetUser() failed, %v", err)
		}
		if !usr.IsSuperuser() || !usr.IsActive {
			t.Errorf("failed! role = %v, is_active = %v", usr.Role, usr.IsActive)
		}
		if err := usr.CheckPassword(testPassword); err != nil {
			t.Errorf("CheckPassword() failed, %v", err)
		}
	})

	t.Run("repair existing account", func(t *testing.T) {
		orig := testutil.CreateUser(t, cli.usrRepo, "Demoted", "demoted@test.cd", "0ld-S3kr3t!", user.RoleSchoolAdmin, 1, 0, false)

		if err := cli.run([]string{"admin", "createsuperuser", "-name", "Demoted", "-email", orig.Email}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{ID: orig.ID})
		if err != nil {
			t.Fatalf("GetUser() failed, %v", err)
		}
		if !usr.IsSuperuser() || !usr.IsActive {
			t.Errorf("failed! role = %v, is_active = %v", usr.Role, usr.IsActive)
		}
		if usr.SchoolID.Valid {
			t.Error("failed! tenant scope not cleared")
		}
		if bytes.Equal(usr.PasswordHash, orig.PasswordHash) {
			t.Error("failed to update new password")
		}
	})
}

func Test_commandLine_addSchool(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	t.Run("missing flags", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addschool", "-name", "Mwanga"}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("create", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addschool", "-name", "Mwanga", "-email", "info@mwanga.cd"}); err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		schools, total, err := cli.schoolRepo.QuerySchools(ctx, &school.QueryFilter{}, nil, core.Pagination{}.Normalize())
		if err != nil {
			t.Fatalf("QuerySchools() failed, %v", err)
		}
		if total != 1 {
			t.Fatalf("failed! total = %v; want 1", total)
		}
		if schools[0].Active {
			t.Error("failed! new school starts inactive")
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		if err := cli.run([]string{"admin", "addschool", "-name", "Mwanga", "-email", "other@mwanga.cd"}); err != school.ErrNameExists {
			t.Errorf("cli.run() error = %v, wantErr %v", err, school.ErrNameExists)
		}
	})
}

func Test_commandLine_remindExpiring(t *testing.T) {
	cli := setup(t)

	now := time.Now().UTC()
	expiring := testutil.CreateSchool(t, cli.schoolRepo, "mwanga", true, now.AddDate(0, 0, 3), 100)
	testutil.CreateSchool(t, cli.schoolRepo, "tumaini", true, now.AddDate(0, 0, 30), 100)
	testutil.CreateSchool(t, cli.schoolRepo, "upendo", true, now.AddDate(0, 0, -10), 100)

	if err := cli.run([]string{"admin", "remindexpiring"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("failed! sent = %v; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.To[0].Address != expiring.Email {
		t.Errorf("failed! to = %v; want %v", msg.To[0].Address, expiring.Email)
	}
	if msg.Subject != "Subscription Expiring Soon" {
		t.Errorf("failed! subject = %q", msg.Subject)
	}
}
