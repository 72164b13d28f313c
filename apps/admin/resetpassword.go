package main

import (
	"context"
	"time"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/user"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	adm, err := cli.findAdmin(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	if err = adm.SetPassword(pwd); err != nil {
		return err
	}
	adm.UpdatedAt = time.Now().UTC()
	_, err = cli.admRepo.UpdateAdmin(ctx, adm)
	return err
}

func (cli *commandLine) resetMemberPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
