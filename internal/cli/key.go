package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keyCmd)
}

var keyCmd = &cobra.Command{
	Use:   "key PEER KEY",
	Short: "Send a key press to a connected peer",
	Long: `Send a panel key press (press and release) to a connected peer.

Keys: play, pause, stop, next, prev, rewind, fast_forward,
volume_up, volume_down, mute.`,
	Args: cobra.ExactArgs(2),
	RunE: runKey,
}

func runKey(cmd *cobra.Command, args []string) error {
	peer, key := args[0], args[1]
	if err := postJSON("/v1/peers/"+peer+"/key",
		map[string]string{"key": key}, nil); err != nil {
		return err
	}
	fmt.Printf("sent %s to %s\n", key, peer)
	return nil
}
