package commands

import (
	"fmt"
	"os"
	"strconv"

	"orgassist-backend/services/organizer"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	startCmd.Flags().StringVar(&startAccountId, "account-id", "", "Login with this account id (with --password).")
	startCmd.Flags().StringVar(&startPassword, "password", "", "Login with this password (with --account-id).")
	startCmd.Flags().StringVar(&startCookie, "cookie", "", "Seed the session from a raw browser cookie string.")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

var (
	startAccountId string
	startPassword  string
	startCookie    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the approval watcher. Uses stored credentials when no flags are given.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			SetBody(organizer.Credentials{
				AccountId: startAccountId,
				Password:  startPassword,
				Cookie:    startCookie,
			}).
			Post("/organizer/start")
		expectOk(res, err)
		fmt.Println("watcher started")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stops the approval watcher after its current cycle.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := client.R().
			SetContext(cmd.Context()).
			Post("/organizer/stop")
		expectOk(res, err)
		fmt.Println("stop requested, the current cycle will finish first")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints the watcher state and its recent cycle reports.",
	Run: func(cmd *cobra.Command, args []string) {
		var status organizer.Status
		res, err := client.R().
			SetContext(cmd.Context()).
			SetResult(&status).
			Get("/organizer/status")
		expectOk(res, err)

		fmt.Println("state:", status.State)
		if status.StartedAt != nil {
			fmt.Println("started at:", status.StartedAt.Format("2006-01-02 15:04:05 MST"))
		}
		if status.LastError != "" {
			fmt.Println("last error:", status.LastError)
		}
		if len(status.Recent) == 0 {
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Time", "Found", "Approved", "Failures"})

		for _, report := range status.Recent {
			failures := ""
			for i, f := range report.Failures {
				if i > 0 {
					failures += "\n"
				}
				failures += f.Outcome
				if f.RoomId != "" {
					failures += " room=" + f.RoomId + " event=" + f.EventId
				}
			}
			t.AppendRow(table.Row{
				report.Time.Format("15:04:05"),
				strconv.Itoa(report.Found),
				strconv.Itoa(report.Approved),
				failures,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
