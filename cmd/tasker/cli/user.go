package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/taskerhq/tasker/internal/service"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "Create, list, and deactivate user accounts directly against the database.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeactivateCmd())
	cmd.AddCommand(newUserActivateCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		email    string
		username string
		fullName string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user account",
		Example: `  tasker user create --email alice@example.com --username alice
  tasker user create --email alice@example.com --username alice --password secret123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(email, username, fullName, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "Display name")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserCreate(email, username, fullName, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}

	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	authSvc := newAuthService(cfg, st)
	user, _, err := authSvc.Register(context.Background(), service.RegisterParams{
		Email:    email,
		Username: username,
		FullName: fullName,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("Created user %q (id %d)\n", user.Username, user.ID)
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	users, err := st.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No users found. Use 'tasker user create' to create one.")
		return nil
	}

	fmt.Printf("%-6s %-30s %-20s %-8s\n", "ID", "EMAIL", "USERNAME", "ACTIVE")
	fmt.Printf("%-6s %-30s %-20s %-8s\n", "--", "-----", "--------", "------")
	for _, u := range users {
		active := "yes"
		if !u.IsActive {
			active = "no"
		}
		fmt.Printf("%-6d %-30s %-20s %-8s\n", u.ID, u.Email, u.Username, active)
	}

	return nil
}

// ---------- user deactivate / activate ----------

func newUserDeactivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <email>",
		Short: "Deactivate a user account",
		Long:  "Disable a user account. The user's tokens stop resolving immediately.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserSetActive(args[0], false)
		},
	}
	return cmd
}

func newUserActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate <email>",
		Short: "Reactivate a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserSetActive(args[0], true)
		},
	}
	return cmd
}

func runUserSetActive(email string, active bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	user, err := st.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up user %q: %w", email, err)
	}

	if err := st.SetUserActive(ctx, user.ID, active); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}
	fmt.Printf("%s user %q\n", verb, user.Email)
	return nil
}
