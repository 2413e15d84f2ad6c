package main

import (
	"fmt"

	"github.com/harunnryd/bursar/internal/gateway"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/spf13/cobra"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "List pending approval requests",
	Long:  `Fetches the approvals currently waiting on this agent and renders them as a table.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := gatewayClient()
		if err != nil {
			return err
		}

		pending, err := client.ListPending(cmd.Context())
		if err != nil {
			return fmt.Errorf("list pending approvals: %w", err)
		}

		fmt.Println(formatApprovals(pending))
		return nil
	},
}

func formatApprovals(approvals []gateway.ApprovalRequest) string {
	if len(approvals) == 0 {
		return "No pending approvals"
	}

	purple := lipgloss.Color("99")
	gray := lipgloss.Color("245")
	lightGray := lipgloss.Color("241")

	headerStyle := lipgloss.NewStyle().
		Foreground(purple).
		Bold(true).
		Align(lipgloss.Center).
		Padding(0, 1)
	oddRowStyle := lipgloss.NewStyle().
		Foreground(gray).
		Padding(0, 1)
	evenRowStyle := lipgloss.NewStyle().
		Foreground(lightGray).
		Padding(0, 1)
	borderStyle := lipgloss.NewStyle().
		Foreground(purple)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenRowStyle
			default:
				return oddRowStyle
			}
		}).
		Headers("ID", "Vendor", "Amount", "Category", "Reason")

	for _, a := range approvals {
		t.Row(
			truncateString(a.ID, 12),
			truncateString(a.Vendor, 20),
			a.AmountDisplay(),
			truncateString(a.Category, 15),
			truncateString(a.Reason, 40),
		)
	}

	return t.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
}
