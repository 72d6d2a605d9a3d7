package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avremote-network/avremote/internal/domain"
)

func init() {
	rootCmd.AddCommand(peersCmd)
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "List known remote-control peers",
	RunE:  runPeers,
}

func runPeers(cmd *cobra.Command, args []string) error {
	var body struct {
		Peers []domain.PeerSnapshot `json:"peers"`
	}
	if err := getJSON("/v1/peers", &body); err != nil {
		return err
	}
	if len(body.Peers) == 0 {
		fmt.Println("No peers discovered yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PEER\tSTATUS\tTARGET\tCONTROLLER\tLISTENERS")
	for _, p := range body.Peers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			p.ID,
			p.Status,
			yesNo(p.TargetDescriptor),
			yesNo(p.ControllerDescriptor),
			p.Listeners,
		)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
