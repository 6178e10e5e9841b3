package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/outrage-civic/outrage-api/internal/store"
)

var (
	campaignsCity  string
	campaignsState string
	campaignsLimit int
)

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Inspect stored campaigns",
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns with their counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		campaigns, err := st.ListCampaigns(cmd.Context(), store.CampaignFilter{
			City:  campaignsCity,
			State: campaignsState,
			Limit: campaignsLimit,
		})
		if err != nil {
			return err
		}

		if len(campaigns) == 0 {
			fmt.Println("no campaigns")
			return nil
		}

		fmt.Printf("%-38s %-30s %-6s %6s %6s\n", "ID", "TITLE", "STATE", "SENT", "VIEWS")
		for _, c := range campaigns {
			title := c.Title
			if len(title) > 30 {
				title = title[:27] + "..."
			}
			fmt.Printf("%-38s %-30s %-6s %6d %6d\n",
				c.ID, title, c.State, c.MessageSentCount, c.ViewCount)
		}
		return nil
	},
}

func init() {
	campaignsListCmd.Flags().StringVar(&campaignsCity, "city", "", "filter by city")
	campaignsListCmd.Flags().StringVar(&campaignsState, "state", "", "filter by state")
	campaignsListCmd.Flags().IntVar(&campaignsLimit, "limit", 50, "max campaigns to list")
	campaignsCmd.AddCommand(campaignsListCmd)
	rootCmd.AddCommand(campaignsCmd)
}
