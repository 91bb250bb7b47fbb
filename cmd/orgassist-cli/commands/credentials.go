package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	credentialsCmd.PersistentFlags().StringVar(&credentialId, "id", "default", "Keychain entry to write.")

	setLoginCmd.Flags().StringVar(&credAccountId, "account-id", "", "Account id to store.")
	setLoginCmd.Flags().StringVar(&credPassword, "password", "", "Password to store.")
	setLoginCmd.MarkFlagRequired("account-id")
	setLoginCmd.MarkFlagRequired("password")

	setCookieCmd.Flags().StringVar(&credCookie, "cookie", "", "Raw browser cookie string to store.")
	setCookieCmd.MarkFlagRequired("cookie")

	credentialsCmd.AddCommand(setLoginCmd)
	credentialsCmd.AddCommand(setCookieCmd)
	rootCmd.AddCommand(credentialsCmd)
}

var (
	credentialId  string
	credAccountId string
	credPassword  string
	credCookie    string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manages stored organizer credentials.",
}

var setLoginCmd = &cobra.Command{
	Use:   "set-login",
	Short: "Stores an account id and password in the daemon's keychain.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(map[string]string{
				"namespace":  "showroom",
				"id":         credentialId,
				"account_id": credAccountId,
				"password":   credPassword,
			}).
			Post("/keychain/login-password")
		expectOk(res, err)
		fmt.Println("stored")
	},
}

var setCookieCmd = &cobra.Command{
	Use:   "set-cookie",
	Short: "Stores a raw browser cookie string in the daemon's keychain.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(map[string]string{
				"namespace": "showroom",
				"id":        credentialId,
				"value":     credCookie,
			}).
			Post("/keychain/cookie")
		expectOk(res, err)
		fmt.Println("stored")
	},
}
