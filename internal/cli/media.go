package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/avremote-network/avremote/internal/domain"
)

func init() {
	rootCmd.AddCommand(mediaCmd)
}

var mediaCmd = &cobra.Command{
	Use:   "media PEER",
	Short: "Show what a connected peer is playing",
	Args:  cobra.ExactArgs(1),
	RunE:  runMedia,
}

func runMedia(cmd *cobra.Command, args []string) error {
	var attrs domain.MediaAttributes
	if err := getJSON("/v1/peers/"+args[0]+"/media", &attrs); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	rows := []struct{ label, value string }{
		{"Title", attrs.Title},
		{"Artist", attrs.ArtistName},
		{"Album", attrs.AlbumName},
		{"Track", attrs.TrackNumber},
		{"Of", attrs.TotalTracks},
		{"Genre", attrs.Genre},
		{"Length (ms)", attrs.PlayingTimeMs},
	}
	for _, row := range rows {
		if row.value == "" {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", row.label, row.value)
	}
	return w.Flush()
}
