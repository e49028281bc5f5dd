// Файл: main.go

package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "property-desk",
		Short: "Сервис заявок на обслуживание недвижимости с AI-обработкой",
		// без подкоманды запускаем сервер
		RunE: runServe,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newHashPasswordCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
