package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/entrance"
)

// addUser updates or creates an admin.Admin
func (cli *commandLine) addUser(uname, email, pwd, role string, branches []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if !core.StringInSlice(role, admin.AllRoles) {
		return fmt.Errorf("%q: no such role", role)
	}
	for _, b := range branches {
		if !core.StringInSlice(b, entrance.AllBranches) {
			return fmt.Errorf("%q: no such branch", b)
		}
	}

	adm, err := cli.findAdmin(ctx, uname, email)
	isNew := core.IsNotFound(err)
	if err != nil && !isNew {
		return err
	}

	now := time.Now().UTC()
	if isNew {
		adm = admin.Admin{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	adm.Role = role
	if branches != nil || isNew {
		adm.Branches = append([]string{}, branches...)
	}
	adm.IsActive = true
	adm.UpdatedAt = now
	if err = adm.SetPassword(pwd); err != nil {
		return err
	}

	if isNew {
		_, err = cli.admRepo.CreateAdmin(ctx, adm)
	} else {
		_, err = cli.admRepo.UpdateAdmin(ctx, adm)
	}
	return err
}

// findAdmin looks the admin up by username first, then by email.
func (cli *commandLine) findAdmin(ctx context.Context, logins ...string) (admin.Admin, error) {
	for _, login := range logins {
		adm, err := cli.admRepo.GetAdmin(ctx, admin.GetFilter{UsernameOrEmail: login})
		if err == nil || !core.IsNotFound(err) {
			return adm, err
		}
	}
	return admin.Admin{}, admin.ErrNotFound
}
