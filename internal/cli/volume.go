package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(volumeCmd)
}

var volumeCmd = &cobra.Command{
	Use:   "volume PEER LEVEL",
	Short: "Set a connected peer's absolute volume (0-127)",
	Args:  cobra.ExactArgs(2),
	RunE:  runVolume,
}

func runVolume(cmd *cobra.Command, args []string) error {
	peer := args[0]
	level, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil || level > 127 {
		return fmt.Errorf("volume must be 0-127, got %q", args[1])
	}

	var body struct {
		Volume byte `json:"volume"`
	}
	if err := postJSON("/v1/peers/"+peer+"/volume",
		map[string]uint64{"volume": level}, &body); err != nil {
		return err
	}
	fmt.Printf("%s confirmed volume %d\n", peer, body.Volume)
	return nil
}
