package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/credential"
)

func newCredentialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Store secrets in the system keyring",
		Long: fmt.Sprintf(`Store secrets in the system keyring.

Known credentials: %s`, strings.Join(credential.Keys, ", ")),
	}
	cmd.AddCommand(newCredentialSetCmd(), newCredentialDeleteCmd())
	return cmd
}

func checkCredentialKey(key string) error {
	if !credential.Valid(key) {
		return fmt.Errorf("unknown credential %q (known: %s)", key, strings.Join(credential.Keys, ", "))
	}
	return nil
}

func newCredentialSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY",
		Short: "Store a credential, prompting for it or reading it from stdin",
		Example: `  threadboard credential set gpg-passphrase
  pass show gpg | threadboard credential set gpg-passphrase`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := checkCredentialKey(key); err != nil {
				return err
			}

			var value string
			if isTerminal(cmd.InOrStdin()) {
				err := huh.NewInput().
					Title(key).
					EchoMode(huh.EchoModePassword).
					Value(&value).
					Run()
				if errors.Is(err, huh.ErrUserAborted) {
					return fmt.Errorf("nothing stored: cancelled")
				}
				if err != nil {
					return err
				}
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading %s from stdin: %w", key, err)
				}
				value = strings.TrimRight(line, "\r\n")
			}
			if value == "" {
				return fmt.Errorf("nothing stored: empty value")
			}

			creds, err := openKeyring()
			if err != nil {
				return err
			}
			if err := creds.Set(key, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", key)
			return nil
		},
	}
}

func newCredentialDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Remove a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkCredentialKey(args[0]); err != nil {
				return err
			}
			creds, err := openKeyring()
			if err != nil {
				return err
			}
			_, ok, err := creds.Lookup(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no %s stored", args[0])
			}
			if err := creds.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}
