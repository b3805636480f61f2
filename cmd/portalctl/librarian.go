package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ruet-portal/portal-backend/internal/model"
	"github.com/ruet-portal/portal-backend/internal/repository"
	"github.com/ruet-portal/portal-backend/internal/utils"
)

func newLibrarianCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "librarian",
		Short: "Manage librarian accounts",
	}
	cmd.AddCommand(newLibrarianAddCmd(a), newLibrarianListCmd(a))
	return cmd
}

func newLibrarianAddCmd(a *app) *cobra.Command {
	var email, name, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a librarian who can log in to the library desk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			email = strings.ToLower(strings.TrimSpace(email))
			name = strings.TrimSpace(name)
			if email == "" || name == "" {
				return errors.New("--email and --name are required")
			}
			if !strings.HasSuffix(email, "@"+a.cfg.LibrarianEmailDomain) {
				return fmt.Errorf("librarian email must end with @%s", a.cfg.LibrarianEmailDomain)
			}
			if password == "" {
				p, err := readPassword(cmd, "Password: ")
				if err != nil {
					return err
				}
				password = p
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := utils.HashPassword(password, a.cfg.BcryptCost)
			if err != nil {
				return err
			}
			repo := repository.NewLibrarianRepo(a.db)
			err = repo.Create(cmd.Context(), model.Librarian{Email: email, Name: name, PasswordHash: hash})
			if errors.Is(err, repository.ErrEmailExists) {
				return fmt.Errorf("librarian %s already exists", email)
			}
			if err != nil {
				return err
			}
			cmd.Printf("librarian %s created\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "librarian email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	return cmd
}

func newLibrarianListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List librarian accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(cmd.Context()); err != nil {
				return err
			}
			list, err := repository.NewLibrarianRepo(a.db).List(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				cmd.Println("no librarians")
				return nil
			}
			for _, l := range list {
				cmd.Printf("%-40s %s\n", l.Email, l.Name)
			}
			return nil
		},
	}
}

// readPassword masks input on a terminal and falls back to reading one
// line, so the password can also be piped in.
func readPassword(cmd *cobra.Command, prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		cmd.Print(prompt)
		b, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
