package main

import (
	"context"
	"fmt"

	"github.com/trezcool/darasa/core/account"
)

// createAdmin updates or creates a verified ADMIN account.
func (cli *commandLine) createAdmin(uname, email, pwd string) error {
	na := account.NewAdmin{Username: uname, Email: email, Password: pwd}
	na.Clean()
	if err := cli.validate.Struct(na); err != nil {
		return err
	}
	acc, err := cli.accSvc.CreateAdmin(context.Background(), na)
	if err != nil {
		return err
	}
	fmt.Printf("admin %q ready\n", acc.Username)
	return nil
}
