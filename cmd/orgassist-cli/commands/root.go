package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var addr string
var client *resty.Client

var rootCmd = &cobra.Command{
	Use:   "orgassist-cli",
	Short: "orgassist-cli drives a running orgassistd over its control surface.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = resty.New().SetBaseURL(addr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&addr, "addr", "http://localhost:8000",
		"Base url of the orgassistd control surface.",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}

func expectOk(res *resty.Response, err error) {
	if err != nil {
		fatal(err)
	}
	if res.StatusCode() >= 400 {
		fatal(fmt.Errorf("%s: %s", res.Status(), res.String()))
	}
}
