package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/lophoc/core/user"
)

func (cli *commandLine) createAdmin(uname, email, name, pwd, confirm string) error {
	if name == "" {
		name = uname
	}
	na := user.NewAdmin{
		Name:            name,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: confirm,
	}
	na.Clean()
	if err := cli.c.Validate.Struct(na); err != nil {
		return err
	}
	usr, err := cli.c.Users.CreateAdmin(context.Background(), na)
	if err != nil {
		return errors.Wrap(err, "creating administrator")
	}
	fmt.Fprintf(cli.out, "administrator %q created\n", usr.Username)
	return nil
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cli.c.Users.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	return cli.c.Users.ResetPassword(ctx, usr.ID, pwd)
}

func (cli *commandLine) recoverPassword(uname string) error {
	ctx := context.Background()
	usr, err := cli.c.Users.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	pwd, err := cli.c.Users.RecoverPassword(ctx, usr.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, pwd)
	return nil
}
