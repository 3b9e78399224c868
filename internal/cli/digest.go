package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stormont-systems/shadowcopy-go/internal/digest"
)

var digestCommand = &cobra.Command{
	Use:     "digest PATH",
	GroupID: "shadowcopy",
	Args:    cobra.ExactArgs(1),
	Short:   "Print the SHA-1 content digest of a file",
	Long:    `Operational spot-check for the streaming content digest used by the hypervisor backup collaborator to skip re-copying unchanged files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sum, err := digest.Compute(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%x\n", sum)
		return nil
	},
}

func init() {
	rootCommand.AddCommand(digestCommand)
}
