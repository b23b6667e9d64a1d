package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	domain "github.com/cardwatch/cardwatch/pkg/types"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabwriter() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func printShops(shops []domain.ShopConfig) error {
	if jsonOutput() {
		return printJSON(shops)
	}
	w := newTabwriter()
	fmt.Fprintln(w, "ID\tNAME\tENGINE\tTIER\tDISABLED")
	for _, s := range shops {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", s.ID, s.Name, s.Engine, s.FetchingTier, s.Disabled)
	}
	return w.Flush()
}

func printJobRuns(runs []domain.JobRun) error {
	if jsonOutput() {
		return printJSON(runs)
	}
	w := newTabwriter()
	fmt.Fprintln(w, "ID\tJOB\tSTATUS\tSTARTED\tSHOPS\tPRODUCTS\tNOTIFS\tERROR")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, r.JobName, r.Status, r.StartedAt.Format("2006-01-02T15:04:05"),
			r.ShopsProcessed, r.ProductsScraped, r.NotificationsSent, r.ErrorText)
	}
	return w.Flush()
}

func printNotifications(notifications []domain.Notification) error {
	if jsonOutput() {
		return printJSON(notifications)
	}
	w := newTabwriter()
	fmt.Fprintln(w, "ID\tUSER\tSTATUS\tPRODUCT\tSHOP\tPRICE\tCREATED")
	for _, n := range notifications {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			n.ID, n.UserID, n.Status, n.Payload.ProductName, n.Payload.ShopName,
			n.Payload.Price.String(), n.CreatedAt.Format("2006-01-02T15:04:05"))
	}
	return w.Flush()
}
