package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"property-desk/pkg/utils"
)

// newHashPasswordCommand печатает bcrypt-хеш для AUTH_PASSWORD_HASH.
func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Сгенерировать bcrypt-хеш пароля оператора",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hashed, err := utils.HashPassword(args[0])
			if err != nil {
				return fmt.Errorf("ошибка при генерации хеша: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}
}
