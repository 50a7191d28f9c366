// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/mail"
	"github.com/gatehouse/gatehouse/internal/store"
)

// newUserInput holds the user create flags.
type newUserInput struct {
	email     string
	password  string
	firstName string
	lastName  string
	role      string
}

// toNewUser validates the flags and builds the service input.
func (in newUserInput) toNewUser() (auth.NewUser, error) {
	if in.email == "" {
		return auth.NewUser{}, oops.Code("FLAG_REQUIRED").With("flag", "email").Errorf("--email is required")
	}
	if in.password == "" {
		return auth.NewUser{}, oops.Code("FLAG_REQUIRED").With("flag", "password").Errorf("--password is required")
	}
	role := auth.Role(in.role)
	if auth.ParseRole(in.role) != role {
		return auth.NewUser{}, oops.Code("FLAG_INVALID").With("flag", "role").Errorf("unknown role %q", in.role)
	}
	user := auth.NewUser{Email: in.email, Password: in.password, Role: role}
	if in.firstName != "" {
		user.FirstName = &in.firstName
	}
	if in.lastName != "" {
		user.LastName = &in.lastName
	}
	return user, nil
}

// NewUserCmd creates the user command group.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}

	in := &newUserInput{}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a fresh password salt",
		Long: `Create a user. Use this to seed the first admin account before
anyone can log in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := in.toNewUser()
			if err != nil {
				return err
			}
			return runUserCreate(cmd, input)
		},
	}
	create.Flags().StringVar(&in.email, "email", "", "login email (required)")
	create.Flags().StringVar(&in.password, "password", "", "initial password (required)")
	create.Flags().StringVar(&in.firstName, "first-name", "", "first name")
	create.Flags().StringVar(&in.lastName, "last-name", "", "last name")
	create.Flags().StringVar(&in.role, "role", string(auth.RoleAdmin), "role (admin, editor, author or contributor)")
	cmd.AddCommand(create)

	return cmd
}

func runUserCreate(cmd *cobra.Command, input auth.NewUser) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Setup("gatehouse", version, cfg.LogFormat, cmd.ErrOrStderr())

	pool, err := store.Connect(cmd.Context(), cfg.DatabaseURL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return err
	}
	defer pool.Close()

	// Creating a user never sends mail, so the log mailer is enough.
	notifier, err := mail.NewResetMailer(mail.NewLogMailer(logger), cfg.BaseURL)
	if err != nil {
		return err
	}
	svc, err := buildServices(pool, notifier, logger)
	if err != nil {
		return err
	}
	user, err := svc.auth.CreateUser(cmd.Context(), input)
	if err != nil {
		return err
	}
	cmd.Printf("Created %s user %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
