package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/news"
	"github.com/amork0112-rgb/frageedu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	admRepo admin.Repository
	usrRepo user.Repository
	newsSvc news.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                                  - run goose migrations (up, down, status, create NAME sql...)")
	fmt.Println("  adduser -username USERNAME -email EMAIL [-super|-role ROLE] [-branches b1,b2] - create or update a back-office account")
	fmt.Println("  resetpassword -username USERNAME|EMAIL                  - reset an admin's password")
	fmt.Println("  resetpassword -member EMAIL                             - reset a parent's password")
	fmt.Println("  importnews -dir DIR [-author USERNAME]                  - import *.md articles with a front matter header")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func splitBranches(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The admin's username.")
	addUserEmail := addUserCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addUserSuper := addUserCmd.Bool("super", false, "Grant the super_admin role.")
	addUserRole := addUserCmd.String("role", admin.RoleStaff, "The admin's role: "+strings.Join(admin.AllRoles, ", ")+".")
	addUserBranches := addUserCmd.String("branches", "", "Comma separated branches a staff account may see.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The admin's username or email. The password will be prompted next.")
	resetPasswordMember := resetPasswordCmd.String("member", "", "The parent's email. The password will be prompted next.")

	importNewsCmd := flag.NewFlagSet("importnews", flag.ContinueOnError)
	importNewsDir := importNewsCmd.String("dir", "", "The directory holding the *.md articles.")
	importNewsAuthor := importNewsCmd.String("author", "", "Username of the admin recorded as author.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := *addUserRole
		if *addUserSuper {
			role = admin.RoleSuperAdmin
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, role, splitBranches(*addUserBranches))

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" && *resetPasswordMember == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		if *resetPasswordMember != "" {
			return cli.resetMemberPassword(*resetPasswordMember, pwd)
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "importnews":
		if err := importNewsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *importNewsDir == "" {
			importNewsCmd.Usage()
			return errHelp
		}
		return cli.importNews(*importNewsDir, *importNewsAuthor)

	default:
		cli.printUsage()
		return errHelp
	}
}
