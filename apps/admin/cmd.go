package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/lophoc/apps/di"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	c   *di.Container
	out io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  createadmin -username USERNAME [-email EMAIL] [-name NAME] - create an administrator")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset an account's password")
	fmt.Fprintln(cli.out, "  recoverpassword -username USERNAME|EMAIL - print an account's password")
	fmt.Fprintln(cli.out, "  import -kind students|teachers -file PATH - bulk create from a .xlsx or .csv file")
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ContinueOnError)
	createAdminUname := createAdminCmd.String("username", "", "The administrator's username. The password will be prompted next.")
	createAdminEmail := createAdminCmd.String("email", "", "The administrator's email.")
	createAdminName := createAdminCmd.String("name", "", "The administrator's name (defaults to the username).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	recoverPasswordCmd := flag.NewFlagSet("recoverpassword", flag.ContinueOnError)
	recoverPasswordUname := recoverPasswordCmd.String("username", "", "The user's username or email.")

	importCmd := flag.NewFlagSet("import", flag.ContinueOnError)
	importKind := importCmd.String("kind", "", "What the file holds: students or teachers.")
	importFile := importCmd.String("file", "", "Path to the .xlsx or .csv file.")

	for _, fs := range []*flag.FlagSet{createAdminCmd, resetPasswordCmd, recoverPasswordCmd, importCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminUname == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		confirm, err := cli.promptPassword("Confirm password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminUname, *createAdminEmail, *createAdminName, pwd, confirm)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword("Enter password:")
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "recoverpassword":
		if err := recoverPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *recoverPasswordUname == "" {
			recoverPasswordCmd.Usage()
			return errHelp
		}
		return cli.recoverPassword(*recoverPasswordUname)

	case "import":
		if err := importCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importFile == "" || (*importKind != kindStudents && *importKind != kindTeachers) {
			importCmd.Usage()
			return errHelp
		}
		return cli.importFile(*importKind, *importFile)

	default:
		cli.printUsage()
		return errHelp
	}
}
